package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/llehouerou/wavesd/internal/events"
	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/rpc"
)

var _ rpc.Maintainer = (*App)(nil)

// ScanAll rescans every configured directory and sweeps deleted files.
// Progress is published as scan-progress and the summary as scan-finished.
func (a *App) ScanAll(ctx context.Context) (library.ScanSummary, error) {
	summary, gone, err := a.library.Refresh(ctx, func(p library.ScanProgress) {
		a.bus.Publish(events.ScanProgress, p)
	})
	if err != nil {
		return summary, err
	}
	a.dropTracks(ctx, gone, true)
	a.bus.Publish(events.ScanFinished, summary)
	return summary, nil
}

// SweepDeleted removes tracks whose files are gone from the catalog, the
// playlists and the queue.
func (a *App) SweepDeleted(ctx context.Context) ([]library.Track, error) {
	gone, err := a.library.ScanForDeleted(ctx)
	if err != nil {
		return nil, err
	}
	a.dropTracks(ctx, gone, true)
	if gone == nil {
		gone = []library.Track{}
	}
	return gone, nil
}

// RemoveDirectory unregisters a root. Its tracks leave the catalog and the
// queue; playlists keep them since the files still exist.
func (a *App) RemoveDirectory(ctx context.Context, path string) ([]library.Track, error) {
	removed, err := a.library.RemoveDirectory(ctx, path)
	if err != nil {
		return nil, err
	}
	a.dropTracks(ctx, removed, false)
	if removed == nil {
		removed = []library.Track{}
	}
	return removed, nil
}

func (a *App) dropTracks(ctx context.Context, tracks []library.Track, purgePlaylists bool) {
	if len(tracks) == 0 {
		return
	}
	paths := make([]string, len(tracks))
	for i, t := range tracks {
		paths[i] = t.Path
		a.bus.Publish(events.RemoveSong, events.SongPayload{Q: t})
		if !purgePlaylists {
			continue
		}
		if ids, err := a.playlists.PurgePath(ctx, t.Path); err != nil {
			log.Error().Err(err).Str("path", t.Path).Msg("purging playlists")
		} else if len(ids) > 0 {
			log.Debug().Str("path", t.Path).Ints64("playlists", ids).Msg("purged from playlists")
		}
	}
	a.session.RemoveMany(paths)
}
