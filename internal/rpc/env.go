package rpc

import (
	"context"

	"github.com/llehouerou/wavesd/internal/events"
	"github.com/llehouerou/wavesd/internal/history"
	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlists"
	"github.com/llehouerou/wavesd/internal/state"
	"github.com/llehouerou/wavesd/internal/update"
)

// Maintainer runs the catalog maintenance flows that fan out to the
// playlists and the session.
type Maintainer interface {
	ScanAll(ctx context.Context) (library.ScanSummary, error)
	SweepDeleted(ctx context.Context) ([]library.Track, error)
	RemoveDirectory(ctx context.Context, path string) ([]library.Track, error)
}

// Env holds the services commands operate on.
type Env struct {
	Library     *library.Library
	Playlists   *playlists.Store
	History     *history.Store
	Session     playback.Service
	State       *state.Manager
	Updates     *update.Checker
	Events      events.Publisher
	Maintenance Maintainer
}
