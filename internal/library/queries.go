package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	dbutil "github.com/llehouerou/wavesd/internal/db"
)

const songColumns = `path, name, album, artist, album_artist, genre, release_date,
	track_number, disc_number, duration, cover, song_section`

const songOrder = `ORDER BY name COLLATE NOCASE, path`

const albumOrder = `ORDER BY album_artist COLLATE NOCASE, disc_number, track_number, name COLLATE NOCASE`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (Track, error) {
	var t Track
	var cover sql.NullString
	err := row.Scan(&t.Path, &t.Name, &t.Album, &t.Artist, &t.AlbumArtist, &t.Genre, &t.Release,
		&t.TrackNumber, &t.DiscNumber, &t.Duration, &cover, &t.Section)
	t.Cover = dbutil.NullStringValue(cover)
	return t, err
}

func (l *Library) queryTracks(ctx context.Context, query string, args ...any) ([]Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := []Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// AllSongs returns every track ordered by name.
func (l *Library) AllSongs(ctx context.Context) ([]Track, error) {
	return l.queryTracks(ctx, `SELECT `+songColumns+` FROM songs `+songOrder)
}

// SongsWithLimit returns at most limit tracks ordered by name.
func (l *Library) SongsWithLimit(ctx context.Context, limit int) ([]Track, error) {
	return l.queryTracks(ctx, `SELECT `+songColumns+` FROM songs `+songOrder+` LIMIT ?`, max(limit, 0))
}

// Song returns the track at path.
func (l *Library) Song(ctx context.Context, path string) (Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	row := l.db.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE path = ?`, path)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Track{}, fmt.Errorf("song %s: %w", path, ErrNotFound)
	}
	return t, err
}

// SongsByPaths returns the indexed tracks among paths, in the given order.
// Unknown paths are skipped.
func (l *Library) SongsByPaths(ctx context.Context, paths []string) ([]Track, error) {
	if len(paths) == 0 {
		return []Track{}, nil
	}
	byPath := make(map[string]Track, len(paths))
	// SQLite limits bound parameters per statement
	for start := 0; start < len(paths); start += 500 {
		chunk := paths[start:min(start+500, len(paths))]
		args := make([]any, len(chunk))
		for i, p := range chunk {
			args[i] = p
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		tracks, err := l.queryTracks(ctx,
			`SELECT `+songColumns+` FROM songs WHERE path IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, err
		}
		for _, t := range tracks {
			byPath[t.Path] = t
		}
	}

	result := make([]Track, 0, len(paths))
	for _, p := range paths {
		if t, ok := byPath[p]; ok {
			result = append(result, t)
		}
	}
	return result, nil
}

// TrackCount returns the number of indexed tracks.
func (l *Library) TrackCount(ctx context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`).Scan(&n)
	return n, err
}

const albumSelect = `
	SELECT album, album_artist, MAX(COALESCE(cover, '')), MAX(release_date),
		SUM(duration), COUNT(*)
	FROM songs
	WHERE album != ''`

const albumGroup = `
	GROUP BY album, album_artist
	ORDER BY album COLLATE NOCASE, album_artist COLLATE NOCASE`

func (l *Library) queryAlbums(ctx context.Context, query string, args ...any) ([]Album, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	albums := []Album{}
	for rows.Next() {
		var a Album
		if err := rows.Scan(&a.Name, &a.Artist, &a.Cover, &a.Release, &a.Duration, &a.SongCount); err != nil {
			return nil, err
		}
		a.Section = SectionOf(a.Name)
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// AllAlbums groups tracks by (album, album artist).
func (l *Library) AllAlbums(ctx context.Context) ([]Album, error) {
	return l.queryAlbums(ctx, albumSelect+albumGroup)
}

// AlbumsWithLimit returns at most limit albums.
func (l *Library) AlbumsWithLimit(ctx context.Context, limit int) ([]Album, error) {
	return l.queryAlbums(ctx, albumSelect+albumGroup+` LIMIT ?`, max(limit, 0))
}

// AlbumsByArtist returns the albums of one album artist.
func (l *Library) AlbumsByArtist(ctx context.Context, artist string) ([]Album, error) {
	return l.queryAlbums(ctx, albumSelect+` AND album_artist = ?`+albumGroup, artist)
}

// Album returns the album called name with its songs. When several album
// artists share the name, their tracks are merged.
func (l *Library) Album(ctx context.Context, name string) (Album, error) {
	albums, err := l.queryAlbums(ctx, albumSelect+` AND album = ?`+albumGroup, name)
	if err != nil {
		return Album{}, err
	}
	if len(albums) == 0 {
		return Album{}, fmt.Errorf("album %s: %w", name, ErrNotFound)
	}
	album := albums[0]
	for _, a := range albums[1:] {
		album.Duration += a.Duration
		album.SongCount += a.SongCount
	}
	album.Songs, err = l.queryTracks(ctx, `SELECT `+songColumns+` FROM songs WHERE album = ? `+albumOrder, name)
	if err != nil {
		return Album{}, err
	}
	return album, nil
}

// AllArtists groups tracks by album artist.
func (l *Library) AllArtists(ctx context.Context) ([]Artist, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, `
		SELECT album_artist, COUNT(DISTINCT album), COUNT(*)
		FROM songs
		WHERE album_artist != ''
		GROUP BY album_artist
		ORDER BY album_artist COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artists := []Artist{}
	for rows.Next() {
		var a Artist
		if err := rows.Scan(&a.Name, &a.AlbumCount, &a.SongCount); err != nil {
			return nil, err
		}
		a.Section = SectionOf(a.Name)
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// AllGenres groups tracks by genre.
func (l *Library) AllGenres(ctx context.Context) ([]Genre, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, `
		SELECT genre, COUNT(*)
		FROM songs
		WHERE genre != ''
		GROUP BY genre
		ORDER BY genre COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	genres := []Genre{}
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.Name, &g.SongCount); err != nil {
			return nil, err
		}
		g.Section = SectionOf(g.Name)
		genres = append(genres, g)
	}
	return genres, rows.Err()
}
