package hl7

import "fmt"

// Builder provides fluent construction of a Message, starting from its MSH
// header.
type Builder struct {
	msg *Message
	msh *Segment
}

// NewBuilder starts a message using the default delimiter set.
func NewBuilder() *Builder {
	msg := NewMessage()
	msh := &Segment{Type: "MSH"}
	msg.AppendSegment(msh)
	b := &Builder{msg: msg, msh: msh}
	b.msh.SetField(1, NewField(string(msg.Delimiters.Field)))
	b.msh.SetField(2, NewField("^~\\&"))
	return b
}

// MSH sets the header fields most callers need. timestamp is HL7 TS format
// (YYYYMMDDhhmmss); controlID must be unique per sender per message.
func (b *Builder) MSH(sendingApp, sendingFacility, receivingApp, receivingFacility, timestamp, messageCode, triggerEvent, controlID, processingID, version string) *Builder {
	b.msh.SetField(3, NewField(sendingApp))
	b.msh.SetField(4, NewField(sendingFacility))
	b.msh.SetField(5, NewField(receivingApp))
	b.msh.SetField(6, NewField(receivingFacility))
	b.msh.SetField(7, NewField(timestamp))
	msgType := &Field{Repetitions: []*Repetition{{Components: []*Component{
		{Subcomponents: []string{messageCode}},
		{Subcomponents: []string{triggerEvent}},
	}}}}
	b.msh.SetField(9, msgType)
	b.msh.SetField(10, NewField(controlID))
	b.msh.SetField(11, NewField(processingID))
	b.msh.SetField(12, NewField(version))
	return b
}

// AppendSegment appends a fully-formed segment (e.g. built by a caller via
// NewSegment/SetField) to the message under construction.
func (b *Builder) AppendSegment(seg *Segment) *Builder {
	b.msg.AppendSegment(seg)
	return b
}

// Segment starts a new segment of the given type, appends it, and returns
// it so the caller can set fields directly.
func (b *Builder) Segment(segType string) *Segment {
	seg := &Segment{Type: segType}
	b.msg.AppendSegment(seg)
	return seg
}

// Build finalizes and returns the constructed Message.
func (b *Builder) Build() *Message {
	return b.msg
}

// NewSegment constructs a segment with the given 1-based field values
// (index 0 of values becomes field 1), for callers who don't need the
// fluent Builder.
func NewSegment(segType string, values ...string) *Segment {
	seg := &Segment{Type: segType}
	for i, v := range values {
		seg.SetField(i+1, NewField(v))
	}
	return seg
}

// AckCode enumerates MSA-1 acknowledgment codes.
type AckCode string

const (
	AckCommitAccept      AckCode = "AA"
	AckApplicationError  AckCode = "AE"
	AckApplicationReject AckCode = "AR"
	AckEnhancedAccept    AckCode = "CA"
	AckEnhancedError     AckCode = "CE"
	AckEnhancedReject    AckCode = "CR"
)

// BuildAck constructs an ACK/NAK for inbound: MSH swaps sender/receiver,
// MSH-9 is "ACK^<trigger>^ACK", MSA-1 is code, MSA-2 is
// the inbound control ID. errText, if non-empty, is carried in an ERR
// segment (appropriate for AE/AR).
func BuildAck(inbound *Message, code AckCode, ackControlID, timestamp, errText string) *Message {
	inMSH := inbound.MSH()
	_, trigger := inbound.MessageType()

	sendingApp, sendingFacility := "", ""
	receivingApp, receivingFacility := "", ""
	version := "2.5"
	if inMSH != nil {
		receivingApp = inMSH.Field(3).Value()
		receivingFacility = inMSH.Field(4).Value()
		sendingApp = inMSH.Field(5).Value()
		sendingFacility = inMSH.Field(6).Value()
		if v := inMSH.Field(12).Value(); v != "" {
			version = v
		}
	}

	b := NewBuilder().MSH(
		sendingApp, sendingFacility, receivingApp, receivingFacility,
		timestamp, "ACK", trigger, ackControlID, "P", version,
	)
	msgType := b.msh.Field(9).Repetition(1)
	msgType.Components = append(msgType.Components, &Component{Subcomponents: []string{"ACK"}})

	msa := b.Segment("MSA")
	msa.SetField(1, NewField(string(code)))
	msa.SetField(2, NewField(inbound.ControlID()))

	if errText != "" {
		err := b.Segment("ERR")
		err.SetField(3, NewField(errText))
	}

	return b.Build()
}

// BuildAA builds a commit-accept ACK for inbound.
func BuildAA(inbound *Message, ackControlID, timestamp string) *Message {
	return BuildAck(inbound, AckCommitAccept, ackControlID, timestamp, "")
}

// BuildAE builds an application-error ACK carrying errText in ERR-3.
func BuildAE(inbound *Message, ackControlID, timestamp, errText string) *Message {
	return BuildAck(inbound, AckApplicationError, ackControlID, timestamp, errText)
}

// BuildAR builds an application-reject ACK carrying errText in ERR-3.
func BuildAR(inbound *Message, ackControlID, timestamp, errText string) *Message {
	return BuildAck(inbound, AckApplicationReject, ackControlID, timestamp, errText)
}

// String implements fmt.Stringer for debugging/logging; production
// serialization should use Serialize().
func (m *Message) String() string {
	code, trigger := m.MessageType()
	return fmt.Sprintf("hl7.Message{type=%s^%s, control=%s, segments=%d}", code, trigger, m.ControlID(), len(m.Segments))
}
