// Package memory provides an in-memory record store. It backs tests and
// the default no-database mode; semantics mirror the SQLite store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pnpstats/adminapi/core/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu     sync.RWMutex
	models map[string]*table
}

type table struct {
	records map[string]map[string]any
	order   []string // insertion order of ids
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{models: make(map[string]*table)}
}

// EnsureModel prepares a model's table.
func (s *Store) EnsureModel(ctx context.Context, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[model]; !ok {
		s.models[model] = &table{records: make(map[string]map[string]any)}
	}
	return nil
}

// Create inserts a new record.
func (s *Store) Create(ctx context.Context, model string, data map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.models[model]
	if !ok {
		return "", fmt.Errorf("model %q not prepared", model)
	}

	id, ok := data["id"].(string)
	if !ok || id == "" {
		id = uuid.New().String()
	}

	record, err := normalize(data)
	if err != nil {
		return "", err
	}
	record["id"] = id

	t.records[id] = record
	t.order = append(t.order, id)
	return id, nil
}

// Get retrieves a record by id.
func (s *Store) Get(ctx context.Context, model string, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.models[model]
	if !ok {
		return nil, fmt.Errorf("model %q not prepared", model)
	}

	record, ok := t.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(record), nil
}

// List retrieves records matching the options plus the total count.
func (s *Store) List(ctx context.Context, model string, opts storage.ListOptions) ([]map[string]any, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.models[model]
	if !ok {
		return nil, 0, fmt.Errorf("model %q not prepared", model)
	}

	for field := range opts.Filters {
		if !storage.ValidFieldPath(field) {
			return nil, 0, fmt.Errorf("invalid field path %q", field)
		}
	}

	var matched []map[string]any
	for _, id := range t.order {
		record, ok := t.records[id]
		if !ok {
			continue
		}
		if !storage.MatchesFilters(record, opts.Filters) {
			continue
		}
		if !storage.MatchesSearch(record, opts.SearchFields, opts.SearchTerm) {
			continue
		}
		matched = append(matched, clone(record))
	}

	for _, field := range opts.Ordering {
		name := field
		if len(name) > 0 && name[0] == '-' {
			name = name[1:]
		}
		if !storage.ValidFieldPath(name) {
			return nil, 0, fmt.Errorf("invalid ordering field %q", field)
		}
	}
	storage.SortRecords(matched, opts.Ordering)

	count := int64(len(matched))

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[opts.Offset:]
		}
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	return matched, count, nil
}

// Update modifies an existing record.
func (s *Store) Update(ctx context.Context, model string, id string, data map[string]any, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.models[model]
	if !ok {
		return fmt.Errorf("model %q not prepared", model)
	}

	current, ok := t.records[id]
	if !ok {
		return storage.ErrNotFound
	}

	incoming, err := normalize(data)
	if err != nil {
		return err
	}

	var record map[string]any
	if replace {
		record = incoming
	} else {
		record = clone(current)
		for k, v := range incoming {
			record[k] = v
		}
	}
	record["id"] = id

	t.records[id] = record
	return nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, model string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.models[model]
	if !ok {
		return fmt.Errorf("model %q not prepared", model)
	}
	if _, ok := t.records[id]; !ok {
		return storage.ErrNotFound
	}

	delete(t.records, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// normalize passes the record through JSON so stored values carry the
// same types the SQLite store decodes (float64 numbers, []any slices).
func normalize(data map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return record, nil
}

func clone(record map[string]any) map[string]any {
	out, _ := normalize(record)
	return out
}
