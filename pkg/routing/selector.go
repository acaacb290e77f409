package routing

// DestinationSelector resolves RoutingRequests to a FailoverGroup by
// evaluating configured rules in order, first match wins.
type DestinationSelector struct {
	rules      []*Rule
	defaultGrp *FailoverGroup
}

// NewDestinationSelector builds a selector from an ordered rule list and an
// optional default group used when no rule matches.
func NewDestinationSelector(rules []*Rule, defaultGroup *FailoverGroup) *DestinationSelector {
	return &DestinationSelector{rules: rules, defaultGrp: defaultGroup}
}

// Select returns the matching rule's name and failover group, or an error
// if nothing matched and no default group was configured.
func (s *DestinationSelector) Select(req *RoutingRequest) (string, *FailoverGroup, error) {
	for _, r := range s.rules {
		if r.Matches(req) {
			return r.Name, r.Group, nil
		}
	}
	if s.defaultGrp != nil {
		return "default", s.defaultGrp, nil
	}
	return "", nil, &NoRuleMatchedError{MessageType: req.MessageType, TriggerEvent: req.TriggerEvent}
}

// UpdateRules replaces the rule set, e.g. after a destination-table reload.
func (s *DestinationSelector) UpdateRules(rules []*Rule, defaultGroup *FailoverGroup) {
	s.rules = rules
	s.defaultGrp = defaultGroup
}
