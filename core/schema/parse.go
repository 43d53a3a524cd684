package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MalformedError reports a document that cannot be loaded: YAML that does
// not parse, a document without a models mapping, a model key that is not
// "<app>.<model>", or a model entry without a prefix. Fatal at startup.
type MalformedError struct {
	// Key is the offending model key, empty when the whole document
	// failed to parse.
	Key string
	Err error
}

func (e *MalformedError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("malformed model configuration: %v", e.Err)
	}
	return fmt.Sprintf("malformed model configuration: model %q: %v", e.Key, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// PrefixConflictError reports two model entries claiming the same prefix.
type PrefixConflictError struct {
	Prefix string
	Keys   []string
}

func (e *PrefixConflictError) Error() string {
	return fmt.Sprintf("prefix %q claimed by models [%s]", e.Prefix, strings.Join(e.Keys, ", "))
}

// ParseFile parses a model-configuration document from a YAML file.
func ParseFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read file %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Parse parses a model-configuration document from YAML bytes.
// The document is validated; an invalid document returns an error.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, &MalformedError{Err: err}
	}

	if err := Validate(doc); err != nil {
		return Document{}, err
	}

	return doc, nil
}

// Marshal serializes the document back to YAML. The output is canonical:
// comma-separated field lists come back out as sequences, and re-parsing
// the output yields an identical in-memory document.
func (d Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// Validate checks the document's shape: every key is "<app>.<model>",
// every entry has a prefix, and prefixes are unique.
// Whether referenced fields exist on the external model is not checked
// here; that surfaces at request time.
func Validate(doc Document) error {
	if len(doc.Models) == 0 {
		return &MalformedError{Err: fmt.Errorf("document declares no models under the top-level models key")}
	}

	byPrefix := make(map[string]string, len(doc.Models))

	for _, key := range doc.Keys() {
		model := doc.Models[key]

		if !validKey(key) {
			return &MalformedError{Key: key, Err: fmt.Errorf("key is not of the form <app>.<model>")}
		}

		prefix := strings.Trim(strings.TrimSpace(model.Prefix), "/")
		if prefix == "" {
			return &MalformedError{Key: key, Err: fmt.Errorf("prefix is required")}
		}

		if other, claimed := byPrefix[prefix]; claimed {
			return &PrefixConflictError{Prefix: prefix, Keys: []string{other, key}}
		}
		byPrefix[prefix] = key

		for name, handler := range combinedActions(model) {
			if handler == "" {
				return &MalformedError{Key: key, Err: fmt.Errorf("action %q has no handler identifier", name)}
			}
		}
	}

	return nil
}

// combinedActions merges list and view actions; view wins on a name clash.
func combinedActions(m Model) map[string]string {
	merged := make(map[string]string, len(m.List.Actions)+len(m.View.Actions))
	for name, handler := range m.List.Actions {
		merged[name] = handler
	}
	for name, handler := range m.View.Actions {
		merged[name] = handler
	}
	return merged
}
