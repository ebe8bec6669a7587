// Package history is the append-only play log.
package history

import (
	"context"
	"database/sql"

	"github.com/jonboulle/clockwork"

	dbutil "github.com/llehouerou/wavesd/internal/db"
)

// ErrPersistence wraps every store failure.
var ErrPersistence = dbutil.ErrPersistence

// DefaultLimit applies when a caller asks for a non-positive limit.
const DefaultLimit = 50

// Entry is one play.
type Entry struct {
	Path     string `json:"path"`
	PlayedAt int64  `json:"played_at"`
}

// Store records plays in the play_history table.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// New creates a Store. A nil clock uses the real clock.
func New(db *sql.DB, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{db: db, clock: clock}
}

// Record appends a play of path stamped with the store clock.
func (s *Store) Record(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO play_history (path, played_at) VALUES (?, ?)`,
		path, s.clock.Now().UnixMilli())
	if err != nil {
		return dbutil.Persistence("record play", err)
	}
	return nil
}

// Recent returns up to limit plays, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, played_at FROM play_history
		ORDER BY played_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, dbutil.Persistence("read history", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.PlayedAt); err != nil {
			return nil, dbutil.Persistence("read history", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbutil.Persistence("read history", err)
	}
	return entries, nil
}

// Paths returns the paths of entries in order.
func Paths(entries []Entry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths
}
