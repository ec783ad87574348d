package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	integrator   TEXT NOT NULL,
	effects      TEXT NOT NULL,
	steps        INTEGER NOT NULL,
	energy_drift REAL NOT NULL,
	metadata     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at DESC);
`

// Index is the sqlite catalogue of saved runs.
type Index struct {
	db *sql.DB
}

func OpenIndex(path string) (*Index, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("index path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Index{db: db}, nil
}

func (i *Index) Close() error {
	if i == nil || i.db == nil {
		return nil
	}
	return i.db.Close()
}

func (i *Index) Insert(ctx context.Context, meta RunMetadata) error {
	if meta.ID == "" {
		return fmt.Errorf("run id is required")
	}
	blob, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = i.db.ExecContext(ctx, `
INSERT INTO runs (id, name, created_at, integrator, effects, steps, energy_drift, metadata)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		meta.ID,
		meta.Name,
		meta.Timestamp.UTC().UnixNano(),
		meta.Integrator,
		strings.Join(meta.Effects, ","),
		meta.StepsTaken,
		meta.EnergyDrift,
		string(blob),
	)
	if err != nil {
		return fmt.Errorf("index run %s: %w", meta.ID, err)
	}
	return nil
}

func (i *Index) Has(ctx context.Context, id string) (bool, error) {
	var n int
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup run %s: %w", id, err)
	}
	return n > 0, nil
}

// List returns runs newest first; limit <= 0 means all.
func (i *Index) List(ctx context.Context, limit int) ([]RunMetadata, error) {
	query := `SELECT metadata FROM runs ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var meta RunMetadata
		if err := json.Unmarshal([]byte(blob), &meta); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}
