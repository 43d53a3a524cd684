package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store with SQLite. Each model gets its own
// table holding the record id and the document as JSON; search, filters,
// and ordering are pushed down with the JSON1 functions.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex

	// tables maps model keys to their table names
	tables map[string]string
}

// NewSQLiteStore opens (or creates) a SQLite record store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &SQLiteStore{
		db:     db,
		tables: make(map[string]string),
	}, nil
}

// EnsureModel creates the model's table if needed.
func (s *SQLiteStore) EnsureModel(ctx context.Context, model string) error {
	table, err := tableName(model)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  id TEXT PRIMARY KEY,\n  data TEXT NOT NULL\n)",
		table,
	)
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	s.tables[model] = table
	return nil
}

// Create inserts a new record.
func (s *SQLiteStore) Create(ctx context.Context, model string, data map[string]any) (string, error) {
	table, err := s.table(model)
	if err != nil {
		return "", err
	}

	id, ok := data["id"].(string)
	if !ok || id == "" {
		id = uuid.New().String()
	}
	data["id"] = id

	doc, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (id, data) VALUES (?, ?)", table)
	if _, err := s.db.ExecContext(ctx, insertSQL, id, string(doc)); err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}

	return id, nil
}

// Get retrieves a record by id.
func (s *SQLiteStore) Get(ctx context.Context, model string, id string) (map[string]any, error) {
	table, err := s.table(model)
	if err != nil {
		return nil, err
	}

	var doc string
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT data FROM %s WHERE id = ?", table), id)
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	return decodeRecord(doc, id)
}

// List retrieves records matching the options plus the total count.
func (s *SQLiteStore) List(ctx context.Context, model string, opts ListOptions) ([]map[string]any, int64, error) {
	table, err := s.table(model)
	if err != nil {
		return nil, 0, err
	}

	where, args, err := buildWhere(opts)
	if err != nil {
		return nil, 0, err
	}

	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where)
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	order, err := buildOrder(opts.Ordering)
	if err != nil {
		return nil, 0, err
	}

	querySQL := fmt.Sprintf("SELECT id, data FROM %s%s%s", table, where, order)
	queryArgs := args
	if opts.Limit > 0 {
		querySQL += " LIMIT ? OFFSET ?"
		queryArgs = append(append([]any{}, args...), opts.Limit, opts.Offset)
	} else if opts.Offset > 0 {
		querySQL += " LIMIT -1 OFFSET ?"
		queryArgs = append(append([]any{}, args...), opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, querySQL, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	var records []map[string]any
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		record, err := decodeRecord(doc, id)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}

	return records, count, rows.Err()
}

// Update modifies an existing record.
func (s *SQLiteStore) Update(ctx context.Context, model string, id string, data map[string]any, replace bool) error {
	table, err := s.table(model)
	if err != nil {
		return err
	}

	record := data
	if !replace {
		current, err := s.Get(ctx, model, id)
		if err != nil {
			return err
		}
		for k, v := range data {
			current[k] = v
		}
		record = current
	}
	record["id"] = id

	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	updateSQL := fmt.Sprintf("UPDATE %s SET data = ? WHERE id = ?", table)
	res, err := s.db.ExecContext(ctx, updateSQL, string(doc), id)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record.
func (s *SQLiteStore) Delete(ctx context.Context, model string, id string) error {
	table, err := s.table(model)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) table(model string) (string, error) {
	s.mu.RLock()
	table, ok := s.tables[model]
	s.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("model %q not prepared", model)
	}
	return table, nil
}

// tableName derives the table name from a model key (auth.user -> auth_user).
func tableName(model string) (string, error) {
	name := strings.ReplaceAll(model, ".", "_")
	if !ValidFieldPath(name) {
		return "", fmt.Errorf("model key %q is not a valid table name", model)
	}
	return name, nil
}

func decodeRecord(doc, id string) (map[string]any, error) {
	var record map[string]any
	if err := json.Unmarshal([]byte(doc), &record); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	record["id"] = id
	return record, nil
}

// buildWhere assembles the WHERE clause for filters and search.
func buildWhere(opts ListOptions) (string, []any, error) {
	var clauses []string
	var args []any

	// Deterministic filter order
	fields := make([]string, 0, len(opts.Filters))
	for field := range opts.Filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		clause, clauseArgs, err := filterClause(field, opts.Filters[field])
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}

	for _, term := range strings.Fields(opts.SearchTerm) {
		if len(opts.SearchFields) == 0 {
			break
		}
		var perField []string
		for _, field := range opts.SearchFields {
			clause, clauseArgs, err := searchClause(field, term)
			if err != nil {
				return "", nil, err
			}
			perField = append(perField, clause)
			args = append(args, clauseArgs...)
		}
		clauses = append(clauses, "("+strings.Join(perField, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// filterClause matches a field exactly: the value itself, an array
// element, or a related object's id.
func filterClause(field string, value any) (string, []any, error) {
	direct, head, rest, err := jsonPaths(field)
	if err != nil {
		return "", nil, err
	}

	want := NormText(value)

	if rest == "" {
		clause := fmt.Sprintf(
			"(CAST(json_extract(data, '%s') AS TEXT) = ?"+
				" OR EXISTS (SELECT 1 FROM json_each(data, '%s') AS je"+
				" WHERE CAST(je.value AS TEXT) = ? OR CAST(json_extract(je.value, '$.id') AS TEXT) = ?))",
			direct, direct,
		)
		return clause, []any{want, want, want}, nil
	}

	clause := fmt.Sprintf(
		"(CAST(json_extract(data, '%s') AS TEXT) = ?"+
			" OR EXISTS (SELECT 1 FROM json_each(data, '%s') AS je"+
			" WHERE CAST(json_extract(je.value, '%s') AS TEXT) = ?))",
		direct, head, rest,
	)
	return clause, []any{want, want}, nil
}

// searchClause matches a field path against a single LIKE term.
func searchClause(field, term string) (string, []any, error) {
	direct, head, rest, err := jsonPaths(field)
	if err != nil {
		return "", nil, err
	}

	like := "%" + escapeLike(term) + "%"

	if rest == "" {
		clause := fmt.Sprintf(
			"(CAST(json_extract(data, '%s') AS TEXT) LIKE ? ESCAPE '\\'"+
				" OR EXISTS (SELECT 1 FROM json_each(data, '%s') AS je"+
				" WHERE CAST(je.value AS TEXT) LIKE ? ESCAPE '\\'))",
			direct, direct,
		)
		return clause, []any{like, like}, nil
	}

	clause := fmt.Sprintf(
		"(CAST(json_extract(data, '%s') AS TEXT) LIKE ? ESCAPE '\\'"+
			" OR EXISTS (SELECT 1 FROM json_each(data, '%s') AS je"+
			" WHERE CAST(json_extract(je.value, '%s') AS TEXT) LIKE ? ESCAPE '\\'))",
		direct, head, rest,
	)
	return clause, []any{like, like}, nil
}

// jsonPaths converts a double-underscore field path into JSON paths:
// the direct nested path, plus the first segment and the remainder for
// traversing arrays of related records.
func jsonPaths(field string) (direct, head, rest string, err error) {
	if !ValidFieldPath(field) {
		return "", "", "", fmt.Errorf("invalid field path %q", field)
	}

	segs := strings.Split(field, "__")
	direct = "$." + strings.Join(segs, ".")
	head = "$." + segs[0]
	if len(segs) > 1 {
		rest = "$." + strings.Join(segs[1:], ".")
	}
	return direct, head, rest, nil
}

func buildOrder(ordering []string) (string, error) {
	if len(ordering) == 0 {
		return "", nil
	}

	var parts []string
	for _, field := range ordering {
		dir := "ASC"
		name := field
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			name = field[1:]
		}
		direct, _, _, err := jsonPaths(name)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("json_extract(data, '%s') %s", direct, dir))
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
