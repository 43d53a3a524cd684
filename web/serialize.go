package web

import (
	"sort"

	"github.com/pnpstats/adminapi/core/schema"
)

// projectFields trims a record down to the given fields. An empty field
// list keeps the whole record. Missing fields render as null.
func projectFields(record map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return record
	}

	out := make(map[string]any, len(fields))
	for _, field := range fields {
		out[field] = record[field]
	}
	return out
}

// viewShape applies the view surface to a record: field selection first,
// then fieldset groups folded into nested objects keyed by group name.
func viewShape(record map[string]any, model schema.Model) map[string]any {
	shaped := projectFields(record, model.View.Fields)
	if len(model.Fieldsets) == 0 {
		return shaped
	}

	// Copy before regrouping so the stored record stays flat
	out := make(map[string]any, len(shaped))
	for k, v := range shaped {
		out[k] = v
	}

	names := make([]string, 0, len(model.Fieldsets))
	for name := range model.Fieldsets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		group := make(map[string]any)
		for _, field := range model.Fieldsets[name] {
			if value, ok := record[field]; ok {
				group[field] = value
				delete(out, field)
			}
		}
		out[name] = group
	}

	return out
}
