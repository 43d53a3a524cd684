package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldList is an ordered list of field names. In YAML it may be written
// either as a sequence or as a comma-separated scalar; both forms decode
// to the same value. It always encodes back as a sequence, so a decoded
// document re-encodes to a canonical form.
type FieldList []string

// UnmarshalYAML decodes a sequence or a comma-separated scalar.
func (f *FieldList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*f = splitFields(raw)
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		for i, name := range names {
			names[i] = strings.TrimSpace(name)
		}
		*f = names
		return nil
	default:
		return fmt.Errorf("line %d: field list must be a sequence or a comma-separated string", node.Line)
	}
}

// Contains reports whether name is in the list.
func (f FieldList) Contains(name string) bool {
	for _, n := range f {
		if n == name {
			return true
		}
	}
	return false
}

// splitFields splits a comma-separated field list, dropping empty entries.
func splitFields(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
