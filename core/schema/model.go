// Package schema defines the model-configuration document consumed by the
// generated admin API. A document maps app-qualified model keys to the
// per-model exposure rules (prefix, search, filters, ordering, fieldsets,
// list/view surfaces and their custom actions).
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Document is the root of the model-configuration document.
type Document struct {
	// Models maps "<app>.<model>" keys to their exposure configuration.
	Models map[string]Model `yaml:"models"`
}

// Model configures how one external model is exposed.
type Model struct {
	// Prefix is the URL path segment the model's endpoints mount under.
	// Required; unique across the document.
	Prefix string `yaml:"prefix"`

	// Search lists field paths eligible for free-text search.
	// Related fields use the double-underscore syntax (groups__name).
	Search FieldList `yaml:"search,omitempty"`

	// Filters lists fields eligible for exact-match filtering.
	Filters FieldList `yaml:"filters,omitempty"`

	// Ordering is the default sort order. A leading "-" sorts descending.
	Ordering FieldList `yaml:"ordering,omitempty"`

	// Fieldsets groups fields for detail-view rendering, keyed by group name.
	Fieldsets map[string]FieldList `yaml:"fieldsets,omitempty"`

	// List configures the list surface (columns and list-level actions).
	List Surface `yaml:"list,omitempty"`

	// View configures the detail surface (fields and record-level actions).
	View Surface `yaml:"view,omitempty"`
}

// Surface selects fields and actions for one rendering surface.
type Surface struct {
	// Fields are the field names shown on this surface.
	Fields FieldList `yaml:"fields,omitempty"`

	// Actions maps action names to handler identifiers.
	Actions map[string]string `yaml:"actions,omitempty"`
}

// IsZero reports whether the surface was absent from the document.
func (s Surface) IsZero() bool {
	return len(s.Fields) == 0 && len(s.Actions) == 0
}

// ActionNames returns the surface's action names, sorted.
func (s Surface) ActionNames() []string {
	names := make([]string, 0, len(s.Actions))
	for name := range s.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keys returns the document's model keys, sorted.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.Models))
	for key := range d.Models {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SplitKey splits an "<app>.<model>" key into its app and model parts.
func SplitKey(key string) (app, model string, err error) {
	if !validKey(key) {
		return "", "", fmt.Errorf("model key %q is not of the form <app>.<model>", key)
	}
	app, model, _ = strings.Cut(key, ".")
	return app, model, nil
}

// validKey reports whether key matches <app>.<model>: two non-empty
// lowercase identifiers joined by a single dot.
func validKey(key string) bool {
	app, model, ok := strings.Cut(key, ".")
	if !ok {
		return false
	}
	return validKeyPart(app) && validKeyPart(model)
}

func validKeyPart(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
