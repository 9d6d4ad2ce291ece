package tool

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store persists the registry's last successful Rescan so a process that
// starts before any tool server is reachable can still serve the
// previously-known tool list until the next Rescan succeeds.
type Store struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a cgo-free sqlite database at
// path and ensures its schema exists.
func NewSQLiteStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tool store: open %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS registrations (
	name        TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	parameters  TEXT NOT NULL,
	origin      TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("tool store: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save replaces the stored registration set with regs, atomically.
func (s *Store) Save(ctx context.Context, regs []*Registration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM registrations"); err != nil {
		return err
	}
	for _, reg := range regs {
		params, err := json.Marshal(reg.Parameters)
		if err != nil {
			return fmt.Errorf("tool store: marshal parameters for %s: %w", reg.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO registrations (name, description, parameters, origin, updated_at) VALUES (?, ?, ?, ?, ?)`,
			reg.Name, reg.Description, string(params), string(reg.Origin), reg.UpdatedAt,
		); err != nil {
			return fmt.Errorf("tool store: insert %s: %w", reg.Name, err)
		}
	}
	return tx.Commit()
}

// Load returns the last-saved registration set, without adapters — callers
// use this only as a seed to show staleness before the first live Rescan
// completes, never to actually invoke a tool.
func (s *Store) Load(ctx context.Context) ([]*Registration, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, description, parameters, origin, updated_at FROM registrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Registration
	for rows.Next() {
		var reg Registration
		var params, origin string
		if err := rows.Scan(&reg.Name, &reg.Description, &params, &origin, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		reg.Origin = Origin(origin)
		if err := json.Unmarshal([]byte(params), &reg.Parameters); err != nil {
			return nil, fmt.Errorf("tool store: unmarshal parameters for %s: %w", reg.Name, err)
		}
		out = append(out, &reg)
	}
	return out, rows.Err()
}
