package playback

import (
	"context"

	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/state"
)

// Service defines the playback session contract.
type Service interface {
	// Queue replacement
	LoadQueue(tracks []library.Track, start int) (library.Track, error)
	UpdateQueue(tracks []library.Track, index int) error
	CreateQueue(tracks []library.Track) error
	Append(tracks []library.Track)
	Clear()

	// Queue editing
	Reorder(from, to int) error
	Remove(index int) error
	RemoveMany(paths []string)
	SetShuffle(enabled bool)

	// Transport
	Play() error
	Pause()
	Stop()
	Toggle() error
	Next() (library.Track, error)
	Previous() (library.Track, error)
	Seek(seconds float64) error
	SetVolume(level float64)
	SetRepeatMode(mode playlist.RepeatMode)
	CycleRepeatMode() playlist.RepeatMode

	// Queries
	CurrentIndex() int
	Len() int
	CurrentTrack() (library.Track, bool)
	Queue() []library.Track
	Position() float64
	IsPaused() bool
	Status() Status

	// Resume
	Snapshot() state.Resume
	Restore(ctx context.Context, r state.Resume) error

	Close() error
}

// Verify Session implements Service at compile time.
var _ Service = (*Session)(nil)
