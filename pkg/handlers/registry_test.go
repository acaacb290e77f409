package handlers

import (
	"context"
	"strings"
	"testing"

	"mercator-hq/jupiter/pkg/cache"
	"mercator-hq/jupiter/pkg/config"
	"mercator-hq/jupiter/pkg/hl7"
	"mercator-hq/jupiter/pkg/hl7/parser"
	"mercator-hq/jupiter/pkg/hl7/validator"
	"mercator-hq/jupiter/pkg/mllp"
	"mercator-hq/jupiter/pkg/mwl"
	"mercator-hq/jupiter/pkg/telemetry/tracing"
)

const ormNewOrder = "MSH|^~\\&|HIS|HOSP|BRIDGE|HOSP|20250101120000||ORM^O01|MSG00001|P|2.5\r" +
	"PID|||P-123^^^MRN||Smith^John||19700101|M\r" +
	"ORC|NW|ORD-1|FILL-1\r" +
	"OBR|1|ORD-1|FILL-1|CT-HEAD^CT Head|||20250102130000||||||||||||||AE100|||CT\r"

const adtA01WithPV1 = "MSH|^~\\&|HIS|HOSP|BRIDGE|HOSP|20250101120000||ADT^A01|MSG00004|P|2.5\r" +
	"PID|||P-200^^^MRN||Doe^Jane||19800101|F\r" +
	"PV1|1|I\r"

const ormMissingPID = "MSH|^~\\&|HIS|HOSP|BRIDGE|HOSP|20250101120000||ORM^O01|MSG00002|P|2.5\r" +
	"ORC|NW|ORD-2|FILL-2\r" +
	"OBR|1|ORD-2|FILL-2|CT-HEAD^CT Head\r"

const unsupportedType = "MSH|^~\\&|HIS|HOSP|BRIDGE|HOSP|20250101120000||QRY^A19|MSG00003|P|2.5\r" +
	"QRD|20250101120000|R|I|Q1\r"

func newTestRegistry(t *testing.T) (*Registry, mwl.Store, *cache.PatientCache) {
	t.Helper()
	tr, err := tracing.New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("tracing.New() error: %v", err)
	}
	store := mwl.NewMemStore()
	pc := cache.NewPatientCache(0, 0)
	t.Cleanup(pc.Close)
	deps := &Deps{MWL: store, Cache: pc, Validator: validator.New(), Tracer: tr}
	return NewRegistry(deps), store, pc
}

func ackCode(t *testing.T, payload []byte) string {
	t.Helper()
	msg, err := parser.Parse(payload)
	if err != nil {
		t.Fatalf("parse ACK error: %v", err)
	}
	return msg.Segment("MSA").Field(1).Value()
}

func TestRegistry_ORMCreatesMWLEntry(t *testing.T) {
	reg, store, _ := newTestRegistry(t)
	sess := &mllp.Session{ID: "sess-1"}

	resp, err := reg.Handle(context.Background(), sess, []byte(ormNewOrder))
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if got := ackCode(t, resp); got != "AA" {
		t.Fatalf("ack code = %q, want AA", got)
	}

	entry, err := store.Get(context.Background(), "FILL-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if entry == nil {
		t.Fatal("expected MWL entry to be created")
	}
	if entry.PatientID != "P-123" {
		t.Fatalf("PatientID = %q, want P-123", entry.PatientID)
	}
}

func TestRegistry_ADTUpdatesPatientCache(t *testing.T) {
	reg, _, pc := newTestRegistry(t)
	sess := &mllp.Session{ID: "sess-2"}

	resp, err := reg.Handle(context.Background(), sess, []byte(adtA01WithPV1))
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if got := ackCode(t, resp); got != "AA" {
		t.Fatalf("ack code = %q, want AA", got)
	}

	info, ok := pc.Get("P-200")
	if !ok {
		t.Fatal("expected patient cache entry for P-200")
	}
	if info.Name.Family != "Doe" {
		t.Fatalf("Name.Family = %q, want Doe", info.Name.Family)
	}
}

func TestRegistry_ValidationFailureProducesNegativeAck(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	sess := &mllp.Session{ID: "sess-3"}

	resp, err := reg.Handle(context.Background(), sess, []byte(ormMissingPID))
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if got := ackCode(t, resp); got != "AE" {
		t.Fatalf("ack code = %q, want AE for a missing required segment", got)
	}
}

func TestRegistry_UnsupportedTypeIsNoOpAccept(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	sess := &mllp.Session{ID: "sess-4"}

	resp, err := reg.Handle(context.Background(), sess, []byte(unsupportedType))
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if got := ackCode(t, resp); got != "AA" {
		t.Fatalf("ack code = %q, want AA for an unmapped message type", got)
	}
}

func TestRegistry_MalformedPayloadReturnsError(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	sess := &mllp.Session{ID: "sess-5"}

	if _, err := reg.Handle(context.Background(), sess, []byte("not an hl7 message")); err == nil {
		t.Fatal("expected an error for a payload with no MSH segment")
	}
}

func TestRegistry_Register_OverridesDefault(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	called := false
	reg.Register("ORM", "O01", func(ctx context.Context, deps *Deps, msg *hl7.Message) error {
		called = true
		return nil
	})

	sess := &mllp.Session{ID: "sess-6"}
	if _, err := reg.Handle(context.Background(), sess, []byte(ormNewOrder)); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if !called {
		t.Fatal("expected the overridden handler to run")
	}
	if !strings.Contains(ormNewOrder, "ORM^O01") {
		t.Fatal("sanity check on fixture")
	}
}
