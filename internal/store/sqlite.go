// internal/store/sqlite.go
//
// SQLite-backed snapshot store. Expects the `snapshots` table created by the
// embedded migrations (assets/sql). One row per session; Save upserts.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/buttonwang/wordly/internal/game"
)

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open, migrated database handle.
func NewSQLiteStore(db *sql.DB) Store {
	return &sqliteStore{db: db}
}

func (s *sqliteStore) Save(ctx context.Context, id string, snap *game.Snapshot) error {
	b, err := game.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO snapshots (id, body, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at`,
		id, string(b), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", id, err)
	}
	return nil
}

func (s *sqliteStore) Load(ctx context.Context, id string) (*game.Snapshot, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE id=?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return game.DecodeSnapshot([]byte(body))
}
