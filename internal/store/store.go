// Package store exports gold datasets and their run manifests to a SQLite
// database for ad-hoc analysis.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jmylchreest/ipoetl/pkg/table"
	"github.com/jmylchreest/ipoetl/pkg/transform"
)

// ErrInvalidName is returned for a table name that is not a plain
// identifier.
var ErrInvalidName = errors.New("invalid table name")

const runsSchema = `CREATE TABLE IF NOT EXISTS ipoetl_runs (
	run_id       TEXT NOT NULL,
	kind         TEXT NOT NULL,
	dataset      TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	finished_at  TEXT NOT NULL,
	input_rows   INTEGER NOT NULL,
	output_rows  INTEGER NOT NULL,
	outlier_mode TEXT NOT NULL,
	columns      TEXT NOT NULL,
	generator    TEXT,
	PRIMARY KEY (run_id, dataset)
)`

// Store is an open export database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := db.Exec(runsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// WriteTable replaces table name with the contents of t. Columns whose
// non-null cells are all numeric are stored as REAL, the rest as TEXT;
// null cells are NULL.
func (s *Store) WriteTable(ctx context.Context, name string, t *table.Table) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	cols := t.Columns()
	numeric := make([]bool, len(cols))
	defs := make([]string, len(cols))
	for i, c := range cols {
		numeric[i] = isNumeric(c)
		typ := "TEXT"
		if numeric[i] {
			typ = "REAL"
		}
		defs[i] = quote(c.Name()) + " " + typ
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(name)); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quote(name), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if len(cols) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quote(name), marks))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		args := make([]any, len(cols))
		for r := 0; r < t.Len(); r++ {
			for i, c := range cols {
				args[i] = cell(c, r, numeric[i])
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert row %d: %w", r, err)
			}
		}
	}
	return tx.Commit()
}

// WriteManifest records a gold run. Rewriting the same run and dataset
// replaces the earlier entry.
func (s *Store) WriteManifest(ctx context.Context, m transform.Manifest) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO ipoetl_runs
		(run_id, kind, dataset, started_at, finished_at, input_rows, output_rows, outlier_mode, columns, generator)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.Kind, m.Dataset,
		m.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		m.FinishedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		m.InputRows, m.OutputRows, string(m.OutlierMode),
		strings.Join(m.Columns, ","), m.Generator)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func isNumeric(c table.Column) bool {
	if c.Kind() == table.KindFloat {
		return true
	}
	seen := false
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		if math.IsNaN(c.Float(i)) {
			return false
		}
		seen = true
	}
	return seen
}

func cell(c table.Column, r int, numeric bool) any {
	if c.IsNull(r) {
		return nil
	}
	if numeric {
		return c.Float(r)
	}
	return c.Text(r)
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
