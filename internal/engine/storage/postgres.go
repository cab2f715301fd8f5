package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tctsung/google-maps-scraper/internal/engine/export"
)

const defaultPGBatch = 200

// PGSink writes merged rows to a Postgres table. Rows are keyed by a hash
// of all their cells, so re-running a merge inserts nothing new.
type PGSink struct {
	pool  *pgxpool.Pool
	table string
	batch int
}

// OpenPG connects to dsn and creates the target table if needed.
func OpenPG(ctx context.Context, dsn string) (*PGSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing PG_DSN: %w", err)
	}
	if cfg.MaxConns <= 0 || cfg.MaxConns > 4 {
		cfg.MaxConns = 4
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := &PGSink{pool: pool, table: "merged_businesses", batch: defaultPGBatch}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGSink) createSchema(ctx context.Context) error {
	var cols []string
	for _, c := range Columns {
		cols = append(cols, fmt.Sprintf("%s TEXT NOT NULL DEFAULT ''", c))
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		row_key TEXT PRIMARY KEY,
		%s,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.table, strings.Join(cols, ",\n\t\t"))
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// InsertBatch sends the rows of t in batches and returns how many were new.
func (s *PGSink) InsertBatch(ctx context.Context, t export.Table) (int, error) {
	rows := AlignRows(t)
	query := fmt.Sprintf(
		"INSERT INTO %s (row_key, %s) VALUES (%s) ON CONFLICT (row_key) DO NOTHING",
		s.table, strings.Join(Columns, ", "),
		placeholders(len(Columns)+1, func(i int) string { return fmt.Sprintf("$%d", i+1) }),
	)

	total := 0
	for i := 0; i < len(rows); i += s.batch {
		j := min(i+s.batch, len(rows))
		b := &pgx.Batch{}
		for _, cells := range rows[i:j] {
			b.Queue(query, append([]any{RowKey(cells)}, cells...)...)
		}
		br := s.pool.SendBatch(ctx, b)
		for k := i; k < j; k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return total, fmt.Errorf("inserting row: %w", err)
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, fmt.Errorf("closing batch: %w", err)
		}
	}
	return total, nil
}

func (s *PGSink) Close() {
	s.pool.Close()
}

// RowKey is the hex SHA-256 of the length-prefixed cells.
func RowKey(cells []any) string {
	h := sha256.New()
	for _, c := range cells {
		s := fmt.Sprint(c)
		fmt.Fprintf(h, "%d:%s", len(s), s)
	}
	return hex.EncodeToString(h.Sum(nil))
}
