// Package playlists stores user playlists: named, ordered lists of track
// paths with an optional cover.
package playlists

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	dbutil "github.com/llehouerou/wavesd/internal/db"
)

var (
	// ErrNotFound is returned for an unknown playlist id or name.
	ErrNotFound = errors.New("playlist not found")
	// ErrInvalidOrder is returned by Reorder when the new order is not a
	// rearrangement of the playlist's songs.
	ErrInvalidOrder = errors.New("new order does not match playlist songs")
)

// Playlist is a playlist with its songs in order.
type Playlist struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Cover     string   `json:"cover,omitempty"`
	Songs     []string `json:"songs"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
}

// Store provides database operations for playlists.
type Store struct {
	db        *sql.DB
	coversDir string
	clock     clockwork.Clock
}

// New creates a Store. Playlist covers are written to coversDir.
func New(db *sql.DB, coversDir string, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{db: db, coversDir: coversDir, clock: clock}
}

// Create creates a playlist holding paths. Name collisions are allowed.
func (s *Store) Create(ctx context.Context, name string, paths []string) (int64, error) {
	now := s.clock.Now().Unix()
	var id int64
	err := dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO playlists (name, created_at, updated_at)
			VALUES (?, ?, ?)
		`, name, now, now)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return writeSongs(ctx, tx, id, paths)
	})
	if err != nil {
		return 0, dbutil.Persistence("create playlist", err)
	}
	return id, nil
}

// Rename renames a playlist.
func (s *Store) Rename(ctx context.Context, id int64, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE playlists SET name = ?, updated_at = ? WHERE id = ?`,
		name, s.clock.Now().Unix(), id)
	if err != nil {
		return dbutil.Persistence("rename playlist", err)
	}
	return requireRow(res, id)
}

// Delete deletes a playlist and its songs.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return dbutil.Persistence("delete playlist", err)
	}
	return requireRow(res, id)
}

// Get returns a playlist by its ID.
func (s *Store) Get(ctx context.Context, id int64) (Playlist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, cover, created_at, updated_at
		FROM playlists
		WHERE id = ?
	`, id)
	pl, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Playlist{}, fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Playlist{}, dbutil.Persistence("load playlist", err)
	}
	if pl.Songs, err = songs(ctx, s.db, id); err != nil {
		return Playlist{}, dbutil.Persistence("load playlist", err)
	}
	return pl, nil
}

// FindByName returns the oldest playlist called name.
func (s *Store) FindByName(ctx context.Context, name string) (Playlist, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM playlists WHERE name = ? ORDER BY id LIMIT 1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Playlist{}, fmt.Errorf("playlist %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Playlist{}, dbutil.Persistence("load playlist", err)
	}
	return s.Get(ctx, id)
}

// List returns every playlist, ordered by name, with its songs.
func (s *Store) List(ctx context.Context) ([]Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cover, created_at, updated_at
		FROM playlists
		ORDER BY name COLLATE NOCASE, id
	`)
	if err != nil {
		return nil, dbutil.Persistence("list playlists", err)
	}

	playlists := []Playlist{}
	for rows.Next() {
		pl, err := scanPlaylist(rows)
		if err != nil {
			rows.Close()
			return nil, dbutil.Persistence("list playlists", err)
		}
		playlists = append(playlists, pl)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, dbutil.Persistence("list playlists", err)
	}

	bySong, err := allSongs(ctx, s.db)
	if err != nil {
		return nil, dbutil.Persistence("list playlists", err)
	}
	for i := range playlists {
		playlists[i].Songs = bySong[playlists[i].ID]
		if playlists[i].Songs == nil {
			playlists[i].Songs = []string{}
		}
	}
	return playlists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row rowScanner) (Playlist, error) {
	var pl Playlist
	var cover sql.NullString
	if err := row.Scan(&pl.ID, &pl.Name, &cover, &pl.CreatedAt, &pl.UpdatedAt); err != nil {
		return Playlist{}, err
	}
	pl.Cover = dbutil.NullStringValue(cover)
	return pl, nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbutil.Persistence("update playlist", err)
	}
	if n == 0 {
		return fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	return nil
}
