// Package app wires the daemon's services together and owns their
// lifecycle.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/llehouerou/wavesd/internal/config"
	"github.com/llehouerou/wavesd/internal/db"
	"github.com/llehouerou/wavesd/internal/events"
	"github.com/llehouerou/wavesd/internal/history"
	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/mpris"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlists"
	"github.com/llehouerou/wavesd/internal/rpc"
	"github.com/llehouerou/wavesd/internal/state"
	"github.com/llehouerou/wavesd/internal/update"
	"github.com/llehouerou/wavesd/internal/watcher"
)

// Options customizes New. Zero values select the production defaults.
type Options struct {
	Version string
	Output  player.Output   // defaults to the system speaker
	Clock   clockwork.Clock // defaults to the real clock
}

// App is the running daemon.
type App struct {
	cfg *config.Config
	db  *sql.DB
	bus *events.Bus

	library   *library.Library
	playlists *playlists.Store
	history   *history.Store
	state     *state.Manager
	player    *player.Player
	session   *playback.Session
	server    *rpc.Server
	updates   *update.Checker

	mpris *mpris.Adapter
}

// New opens the database and builds every service. Nothing is started
// until Run.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if opts.Output == nil {
		opts.Output = player.NewSpeakerOutput()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	sqlDB, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	lib := library.New(sqlDB, library.Options{
		CoversDir: cfg.CoversPath(),
		Workers:   cfg.ScanWorkers(),
		Clock:     opts.Clock,
	})
	if err := lib.SeedDirectories(ctx, cfg.LibrarySources); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("seed library directories: %w", err)
	}

	audio := cfg.GetAudioConfig()
	a := &App{
		cfg:       cfg,
		db:        sqlDB,
		bus:       events.NewBus(),
		library:   lib,
		playlists: playlists.New(sqlDB, cfg.CoversPath(), opts.Clock),
		history:   history.New(sqlDB, opts.Clock),
		state:     state.New(sqlDB, opts.Clock),
		player: player.New(opts.Output, player.Options{
			SampleRate: audio.SampleRate,
			BufferMs:   audio.BufferMs,
		}),
		updates: update.NewChecker(opts.Version, cfg.Update.URL),
	}
	a.session = playback.New(a.player, playback.Options{
		Events:            a.bus,
		History:           a.history,
		Saver:             a.state,
		Resolver:          a.library,
		PreviousThreshold: cfg.PreviousThreshold(),
	})
	a.server = rpc.NewServer(&rpc.Env{
		Library:     a.library,
		Playlists:   a.playlists,
		History:     a.history,
		Session:     a.session,
		State:       a.state,
		Updates:     a.updates,
		Events:      a.bus,
		Maintenance: a,
	}, a.bus, rpc.Options{Workers: int64(cfg.ServerWorkers())})

	return a, nil
}

// Restore reloads the last saved session, paused at its saved position.
func (a *App) Restore(ctx context.Context) error {
	resume, err := a.state.LoadResume(ctx)
	if err != nil {
		return err
	}
	return a.session.Restore(ctx, resume)
}

// Run restores the previous session, starts the optional media controls
// and directory watcher, then serves clients until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("could not restore previous session")
	}

	if a.cfg.MPRISEnabled() {
		adapter, err := mpris.New(a.session, a.bus)
		if err != nil {
			log.Warn().Err(err).Msg("media controls unavailable")
		} else {
			a.mpris = adapter
		}
	}

	if a.cfg.Scan.Watch {
		if err := a.startWatcher(ctx); err != nil {
			log.Warn().Err(err).Msg("directory watcher unavailable")
		}
	}

	return a.server.ListenAndServe(ctx, a.cfg.ListenAddr())
}

func (a *App) startWatcher(ctx context.Context) error {
	dirs, err := a.library.Directories(ctx)
	if err != nil {
		return err
	}
	roots := make([]string, len(dirs))
	for i, d := range dirs {
		roots[i] = d.Path
	}
	w, err := watcher.New(roots, func() {
		if _, err := a.ScanAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("rescan after change failed")
		}
	}, watcher.Options{})
	if err != nil {
		return err
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			log.Warn().Err(err).Msg("watcher stopped")
		}
	}()
	return nil
}

// Close stops every service and flushes pending state, in dependency
// order.
func (a *App) Close() error {
	var errs []error
	if err := a.server.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close server: %w", err))
	}
	if a.mpris != nil {
		if err := a.mpris.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close media controls: %w", err))
		}
	}
	if err := a.session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close session: %w", err))
	}
	if err := a.state.Close(); err != nil {
		errs = append(errs, fmt.Errorf("flush state: %w", err))
	}
	a.player.Close()
	a.bus.Close()
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
