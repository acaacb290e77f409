package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mercator-hq/jupiter/pkg/routing"
)

// destinationsFile is the on-disk shape of a destination table: named
// destinations, named failover groups referencing them, and routing rules
// referencing groups. Resolved into routing.FailoverGroup/routing.Rule by
// LoadDestinationTable.
type destinationsFile struct {
	Destinations []destinationSpec `yaml:"destinations"`
	Groups       []groupSpec       `yaml:"groups"`
	Rules        []ruleSpec        `yaml:"rules"`
}

type destinationSpec struct {
	Name      string `yaml:"name"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Transport string `yaml:"transport"` // "plain" or "tls"
	Priority  int    `yaml:"priority"`
}

type groupSpec struct {
	Name         string   `yaml:"name"`
	Destinations []string `yaml:"destinations"`
}

type ruleSpec struct {
	Name         string `yaml:"name"`
	MessageType  string `yaml:"message_type"`
	TriggerEvent string `yaml:"trigger_event"`
	Sender       string `yaml:"sender"`
	Group        string `yaml:"group"`
}

// DestinationTable is the resolved result of loading a destinations file:
// every named failover group, and the ordered rule list a Router can be
// built or updated from.
type DestinationTable struct {
	Groups map[string]*routing.FailoverGroup
	Rules  []*routing.Rule
}

// LoadDestinationTable reads and resolves a YAML destination file into a
// DestinationTable: one declarative YAML document parsed into domain
// objects, with rule groups resolved against named destinations.
func LoadDestinationTable(path string) (*DestinationTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read destinations file %q: %w", path, err)
	}

	var doc destinationsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse destinations file %q: %w", path, err)
	}

	destinations := make(map[string]*routing.Destination, len(doc.Destinations))
	for _, d := range doc.Destinations {
		if d.Name == "" {
			return nil, fmt.Errorf("config: destination with empty name in %q", path)
		}
		transport := routing.TransportPlain
		if d.Transport == string(routing.TransportTLS) {
			transport = routing.TransportTLS
		}
		destinations[d.Name] = routing.NewDestination(d.Name, d.Host, d.Port, transport, d.Priority)
	}

	groups := make(map[string]*routing.FailoverGroup, len(doc.Groups))
	for _, g := range doc.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("config: group with empty name in %q", path)
		}
		fg := &routing.FailoverGroup{Name: g.Name}
		for _, destName := range g.Destinations {
			d, ok := destinations[destName]
			if !ok {
				return nil, fmt.Errorf("config: group %q references unknown destination %q", g.Name, destName)
			}
			fg.Destinations = append(fg.Destinations, d)
		}
		groups[g.Name] = fg
	}

	rules := make([]*routing.Rule, 0, len(doc.Rules))
	for _, r := range doc.Rules {
		group, ok := groups[r.Group]
		if !ok {
			return nil, fmt.Errorf("config: rule %q references unknown group %q", r.Name, r.Group)
		}
		rules = append(rules, &routing.Rule{
			Name:         r.Name,
			MessageType:  r.MessageType,
			TriggerEvent: r.TriggerEvent,
			Sender:       r.Sender,
			Group:        group,
		})
	}

	return &DestinationTable{Groups: groups, Rules: rules}, nil
}
