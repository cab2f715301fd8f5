// Package storage persists merged business rows in SQLite or Postgres.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/tctsung/google-maps-scraper/internal/engine/export"
	"github.com/tctsung/google-maps-scraper/internal/model"
)

// Columns is the stored layout: the session columns plus the location tag.
var Columns = append(append([]string(nil), model.BusinessColumns...), "state", "city")

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// Optimize for write throughput
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Cells are stored as '' rather than NULL so the full-row UNIQUE key
// treats two empty cells as equal.
func createSchema(db *sql.DB) error {
	var cols []string
	for _, c := range Columns {
		cols = append(cols, fmt.Sprintf("%s TEXT NOT NULL DEFAULT ''", c))
	}
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS merged_businesses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		%s,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(%s)
	);
	CREATE INDEX IF NOT EXISTS idx_merged_location ON merged_businesses(state, city);
	CREATE INDEX IF NOT EXISTS idx_merged_category ON merged_businesses(category);
	`, strings.Join(cols, ",\n\t\t"), strings.Join(Columns, ", "))
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// InsertBatch stores the rows of t, matching its header to Columns by
// case-insensitive name. Rows already present are ignored. It returns the
// number of new rows.
func (s *Store) InsertBatch(t export.Table) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT OR IGNORE INTO merged_businesses (%s) VALUES (%s)",
		strings.Join(Columns, ", "), placeholders(len(Columns), func(int) string { return "?" }),
	))
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, cells := range AlignRows(t) {
		res, err := stmt.Exec(cells...)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("inserting row: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}

	return inserted, nil
}

// Load returns every stored row in insertion order.
func (s *Store) Load() (export.Table, error) {
	rows, err := s.db.Query(fmt.Sprintf("SELECT %s FROM merged_businesses ORDER BY id", strings.Join(Columns, ", ")))
	if err != nil {
		return export.Table{}, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	t := export.Table{Header: append([]string(nil), Columns...)}
	for rows.Next() {
		cells := make([]string, len(Columns))
		ptrs := make([]any, len(cells))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return export.Table{}, fmt.Errorf("scanning row: %w", err)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, rows.Err()
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM merged_businesses").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// AlignRows reorders the cells of t into Columns order as query arguments.
// Columns t lacks are empty strings.
func AlignRows(t export.Table) [][]any {
	src := make([]int, len(Columns))
	for i, c := range Columns {
		src[i] = -1
		for j, h := range t.Header {
			if strings.EqualFold(strings.TrimSpace(h), c) {
				src[i] = j
				break
			}
		}
	}
	out := make([][]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]any, len(Columns))
		for i, j := range src {
			v := ""
			if j >= 0 && j < len(row) {
				v = row[j]
			}
			cells[i] = v
		}
		out = append(out, cells)
	}
	return out
}

func placeholders(n int, mark func(i int) string) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = mark(i)
	}
	return strings.Join(marks, ", ")
}
