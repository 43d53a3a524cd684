// Package storage provides a generic record store for registered models.
// Records are schemaless JSON documents; the model-configuration document
// only decides which fields are searched, filtered, and ordered, never
// what fields exist.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Store provides generic record operations for any registered model.
type Store interface {
	// EnsureModel prepares backing storage for a model key.
	EnsureModel(ctx context.Context, model string) error

	// Create inserts a new record and returns its id.
	Create(ctx context.Context, model string, data map[string]any) (string, error)

	// Get retrieves a record by id.
	Get(ctx context.Context, model string, id string) (map[string]any, error)

	// List retrieves records plus the total count before pagination.
	List(ctx context.Context, model string, opts ListOptions) ([]map[string]any, int64, error)

	// Update modifies an existing record. With replace set the stored
	// document is replaced wholesale, otherwise fields are merged.
	Update(ctx context.Context, model string, id string, data map[string]any, replace bool) error

	// Delete removes a record.
	Delete(ctx context.Context, model string, id string) error

	// Close closes the store.
	Close() error
}

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = fmt.Errorf("record not found")

// ListOptions configures list queries.
type ListOptions struct {
	// SearchTerm is the free-text query. Space-separated terms must all
	// match; each term may match any of the SearchFields.
	SearchTerm string

	// SearchFields are the field paths eligible for search. Related
	// fields use the double-underscore syntax (groups__name).
	SearchFields []string

	// Filters are exact-match field/value pairs.
	Filters map[string]any

	// Ordering lists sort fields; a leading "-" sorts descending.
	Ordering []string

	// Limit caps the number of records returned (0 = no cap).
	Limit int

	// Offset skips records before the first returned one.
	Offset int
}

// ValidFieldPath reports whether a field path is safe to use in a query:
// lowercase identifier segments joined by double underscores.
func ValidFieldPath(path string) bool {
	if path == "" {
		return false
	}
	for _, seg := range strings.Split(path, "__") {
		if !validSegment(seg) {
			return false
		}
	}
	return true
}

func validSegment(s string) bool {
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

// ResolvePath returns every value reachable at a double-underscore path.
// Maps are descended by key; slices fan out over their elements, so
// groups__name on a record with several groups yields every group name.
func ResolvePath(record map[string]any, path string) []any {
	values := []any{any(record)}

	for _, seg := range strings.Split(path, "__") {
		var next []any
		for _, v := range values {
			switch node := v.(type) {
			case map[string]any:
				if child, ok := node[seg]; ok {
					next = append(next, child)
				}
			case []any:
				for _, elem := range node {
					if m, ok := elem.(map[string]any); ok {
						if child, ok := m[seg]; ok {
							next = append(next, child)
						}
					}
				}
			}
		}
		values = next
		if len(values) == 0 {
			return nil
		}
	}

	// Flatten trailing slices so callers always see scalars or maps.
	var out []any
	for _, v := range values {
		if list, ok := v.([]any); ok {
			out = append(out, list...)
		} else {
			out = append(out, v)
		}
	}
	return out
}

// NormText renders a value in the canonical text form used for
// exact-match comparison. Booleans become "1"/"0" and whole floats lose
// their fraction, matching how SQLite casts extracted JSON to text.
func NormText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "1"
		}
		return "0"
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return NormText(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// MatchesFilters reports whether a record satisfies every filter exactly.
// Object values stand in for their "id", so a filter on a related field
// matches against the related record's id.
func MatchesFilters(record map[string]any, filters map[string]any) bool {
	for field, want := range filters {
		matched := false
		for _, got := range ResolvePath(record, field) {
			if m, ok := got.(map[string]any); ok {
				got = m["id"]
			}
			if NormText(got) == NormText(want) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// MatchesSearch reports whether a record matches a free-text query over
// the given field paths. Every space-separated term must match at least
// one field, case-insensitively.
func MatchesSearch(record map[string]any, fields []string, term string) bool {
	terms := strings.Fields(term)
	if len(terms) == 0 || len(fields) == 0 {
		return true
	}

	for _, t := range terms {
		t = strings.ToLower(t)
		matched := false
		for _, field := range fields {
			for _, v := range ResolvePath(record, field) {
				if strings.Contains(strings.ToLower(NormText(v)), t) {
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// SortRecords sorts records in place by the given ordering fields.
// Numeric values compare numerically, everything else by text; a
// leading "-" reverses the field.
func SortRecords(records []map[string]any, ordering []string) {
	if len(ordering) == 0 {
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		for _, field := range ordering {
			desc := strings.HasPrefix(field, "-")
			name := strings.TrimPrefix(field, "-")

			a := firstValue(records[i], name)
			b := firstValue(records[j], name)

			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func firstValue(record map[string]any, path string) any {
	values := ResolvePath(record, path)
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

func compareValues(a, b any) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(NormText(a), NormText(b))
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// Choice is one selectable value of a related field.
type Choice struct {
	ID   any    `json:"id"`
	Text string `json:"text"`
}

// CollectChoices gathers the distinct values of a field across records,
// optionally narrowed by a search term, capped at limit. Object values
// contribute their id and a display text; scalars stand for both.
func CollectChoices(records []map[string]any, field, search string, limit int) []Choice {
	seen := make(map[string]bool)
	var choices []Choice

	for _, record := range records {
		for _, v := range ResolvePath(record, field) {
			choice := asChoice(v)
			if search != "" && !strings.Contains(strings.ToLower(choice.Text), strings.ToLower(search)) {
				continue
			}
			key := NormText(choice.ID) + "\x00" + choice.Text
			if seen[key] {
				continue
			}
			seen[key] = true
			choices = append(choices, choice)
			if limit > 0 && len(choices) >= limit {
				return choices
			}
		}
	}
	return choices
}

func asChoice(v any) Choice {
	if m, ok := v.(map[string]any); ok {
		c := Choice{ID: m["id"]}
		for _, key := range []string{"text", "name", "nome", "username"} {
			if s, ok := m[key].(string); ok {
				c.Text = s
				break
			}
		}
		if c.Text == "" {
			c.Text = NormText(c.ID)
		}
		return c
	}
	return Choice{ID: v, Text: NormText(v)}
}
