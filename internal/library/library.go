// Package library maintains the durable catalog of tracks scanned from the
// configured directories, and the album, artist and genre views derived
// from it.
package library

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"
)

// ErrNotFound is returned when a song or album is not in the catalog.
var ErrNotFound = errors.New("not found")

// Track is one indexed audio file with its metadata.
type Track struct {
	Path        string  `json:"path"`
	Name        string  `json:"name"`
	Album       string  `json:"album"`
	Artist      string  `json:"artist"`
	AlbumArtist string  `json:"album_artist"`
	Genre       string  `json:"genre"`
	Release     string  `json:"release"`
	TrackNumber int     `json:"track"`
	DiscNumber  int     `json:"disc_number"`
	Duration    float64 `json:"duration"`
	Cover       string  `json:"cover,omitempty"`
	Section     string  `json:"song_section"`
}

// Album aggregates the tracks sharing an album name and album artist.
type Album struct {
	Name      string  `json:"name"`
	Artist    string  `json:"artist"`
	Cover     string  `json:"cover,omitempty"`
	Release   string  `json:"release"`
	Duration  float64 `json:"duration"`
	SongCount int     `json:"song_count"`
	Section   string  `json:"section"`
	Songs     []Track `json:"songs,omitempty"`
}

// Artist aggregates tracks by album artist.
type Artist struct {
	Name       string `json:"name"`
	AlbumCount int    `json:"album_count"`
	SongCount  int    `json:"song_count"`
	Section    string `json:"section"`
}

// Genre aggregates tracks by genre.
type Genre struct {
	Name      string `json:"name"`
	SongCount int    `json:"song_count"`
	Section   string `json:"section"`
}

// Options configures a Library.
type Options struct {
	CoversDir string
	Workers   int
	Clock     clockwork.Clock
}

// Library is the track catalog. Queries take the read lock; scans take
// the write lock once per batch.
type Library struct {
	db        *sql.DB
	mu        sync.RWMutex
	scanMu    sync.Mutex
	coversDir string
	workers   int
	clock     clockwork.Clock
}

// New creates a Library backed by db.
func New(db *sql.DB, opts Options) *Library {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Library{
		db:        db,
		coversDir: opts.CoversDir,
		workers:   opts.Workers,
		clock:     opts.Clock,
	}
}
