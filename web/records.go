package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pnpstats/adminapi/core/schema"
	"github.com/pnpstats/adminapi/core/storage"
)

const maxChoices = 100

// handleList serves the paginated collection of a model.
func (a *API) handleList(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.list(w, r, key, nil)
	}
}

// handleInactive serves records whose is_active flag is off.
func (a *API) handleInactive(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.list(w, r, key, map[string]any{"is_active": false})
	}
}

func (a *API) list(w http.ResponseWriter, r *http.Request, key string, extraFilters map[string]any) {
	entry, ok := a.reg.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown model")
		return
	}
	model := entry.Model

	opts, only, err := listOptions(r, model)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for field, value := range extraFilters {
		opts.Filters[field] = value
	}

	if a.serveChoices(w, r, key, opts) {
		return
	}

	records, count, err := a.store.List(r.Context(), key, opts)
	if err != nil {
		a.logger.Error().Err(err).Str("model", key).Msg("list failed")
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}

	results := make([]map[string]any, 0, len(records))
	fields := only
	if fields == nil {
		fields = model.List.Fields
	}
	for _, record := range records {
		results = append(results, projectFields(record, fields))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    count,
		"next":     pageLink(r, opts, count, opts.Offset+opts.Limit),
		"previous": pageLink(r, opts, count, opts.Offset-opts.Limit),
		"results":  results,
	})
}

// serveChoices answers the choices_field lookup shared by the list,
// create, and action endpoints, so clients can fill related-field
// inputs from any of them. Reports whether it wrote a response.
func (a *API) serveChoices(w http.ResponseWriter, r *http.Request, key string, opts storage.ListOptions) bool {
	q := r.URL.Query()
	field := q.Get("choices_field")
	if field == "" {
		return false
	}

	if !storage.ValidFieldPath(field) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid choices_field %q", field))
		return true
	}

	opts.Limit = 0
	opts.Offset = 0
	records, _, err := a.store.List(r.Context(), key, opts)
	if err != nil {
		a.logger.Error().Err(err).Str("model", key).Msg("list failed")
		writeError(w, http.StatusInternalServerError, "list failed")
		return true
	}

	choices := storage.CollectChoices(records, field, q.Get("choices_search"), maxChoices)
	writeJSON(w, http.StatusOK, choices)
	return true
}

// handleRetrieve serves a single record shaped by the view surface.
func (a *API) handleRetrieve(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, _ := a.reg.Get(key)

		record, err := a.store.Get(r.Context(), key, chi.URLParam(r, "id"))
		if err != nil {
			a.respondStoreError(w, key, err)
			return
		}

		only, err := onlyFields(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if only != nil {
			writeJSON(w, http.StatusOK, projectFields(record, only))
			return
		}

		writeJSON(w, http.StatusOK, viewShape(record, entry.Model))
	}
}

// handleCreate inserts a new record. A choices_field parameter turns
// the request into a choices lookup instead.
func (a *API) handleCreate(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.serveChoices(w, r, key, storage.ListOptions{Filters: map[string]any{}}) {
			return
		}

		data, err := decodeBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		id, err := a.store.Create(r.Context(), key, data)
		if err != nil {
			a.logger.Error().Err(err).Str("model", key).Msg("create failed")
			writeError(w, http.StatusInternalServerError, "create failed")
			return
		}

		record, err := a.store.Get(r.Context(), key, id)
		if err != nil {
			a.respondStoreError(w, key, err)
			return
		}
		writeJSON(w, http.StatusCreated, record)
	}
}

// handleUpdate modifies a record. PUT replaces, PATCH merges.
func (a *API) handleUpdate(key string, replace bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		data, err := decodeBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := a.store.Update(r.Context(), key, id, data, replace); err != nil {
			a.respondStoreError(w, key, err)
			return
		}

		record, err := a.store.Get(r.Context(), key, id)
		if err != nil {
			a.respondStoreError(w, key, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

// handleDelete removes a record.
func (a *API) handleDelete(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.store.Delete(r.Context(), key, chi.URLParam(r, "id")); err != nil {
			a.respondStoreError(w, key, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) respondStoreError(w http.ResponseWriter, key string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	a.logger.Error().Err(err).Str("model", key).Msg("store operation failed")
	writeError(w, http.StatusInternalServerError, "storage error")
}

// listOptions builds storage options from the request query. Field paths
// arriving in the query or declared by the model are validated here so
// bad references fail the request, never the server.
func listOptions(r *http.Request, model schema.Model) (storage.ListOptions, []string, error) {
	q := r.URL.Query()

	opts := storage.ListOptions{
		SearchTerm: q.Get("search"),
		Filters:    map[string]any{},
	}

	if opts.SearchTerm != "" {
		for _, field := range model.Search {
			if !storage.ValidFieldPath(field) {
				return opts, nil, fmt.Errorf("invalid search field %q", field)
			}
		}
		opts.SearchFields = model.Search
	}

	for _, field := range model.Filters {
		if !q.Has(field) {
			continue
		}
		if !storage.ValidFieldPath(field) {
			return opts, nil, fmt.Errorf("invalid filter field %q", field)
		}
		opts.Filters[field] = coerceFilterValue(q.Get(field))
	}

	ordering := model.Ordering
	if raw := q.Get("ordering"); raw != "" {
		ordering = splitCSV(raw)
	}
	for _, field := range ordering {
		if !storage.ValidFieldPath(strings.TrimPrefix(field, "-")) {
			return opts, nil, fmt.Errorf("invalid ordering field %q", field)
		}
	}
	opts.Ordering = ordering

	var err error
	if opts.Limit, err = intParam(q, "limit"); err != nil {
		return opts, nil, err
	}
	if opts.Offset, err = intParam(q, "offset"); err != nil {
		return opts, nil, err
	}

	only, err := onlyFields(r)
	if err != nil {
		return opts, nil, err
	}

	return opts, only, nil
}

// onlyFields parses the only parameter. nil means no trimming requested.
func onlyFields(r *http.Request) ([]string, error) {
	raw := r.URL.Query().Get("only")
	if raw == "" {
		return nil, nil
	}

	fields := splitCSV(raw)
	for _, field := range fields {
		if !storage.ValidFieldPath(field) {
			return nil, fmt.Errorf("invalid only field %q", field)
		}
	}
	return fields, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

// coerceFilterValue maps the textual booleans of query strings onto real
// booleans so they compare equal to stored JSON values.
func coerceFilterValue(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

func splitCSV(raw string) []string {
	var fields []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			fields = append(fields, part)
		}
	}
	return fields
}

// pageLink builds the next/previous URL of the pagination envelope.
// Returns nil when pagination is off or the target page is out of range.
func pageLink(r *http.Request, opts storage.ListOptions, count int64, offset int) any {
	if opts.Limit <= 0 {
		return nil
	}
	if offset < 0 || int64(offset) >= count {
		if offset < 0 && opts.Offset > 0 {
			offset = 0
		} else {
			return nil
		}
	}

	u := *r.URL
	q := u.Query()
	q.Set("limit", strconv.Itoa(opts.Limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
