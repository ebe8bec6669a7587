package playback

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/state"
)

// Snapshot captures the session for a later Restore.
func (s *Session) Snapshot() state.Resume {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() state.Resume {
	base := s.queue.BaseTracks()
	r := state.Resume{
		Queue:         make([]string, len(base)),
		QueuePosition: s.queue.CurrentIndex(),
		Volume:        s.player.Volume(),
		Shuffle:       s.queue.Shuffled(),
		Repeat:        s.repeat.String(),
	}
	for i, t := range base {
		r.Queue[i] = t.Path
	}
	if s.queue.Shuffled() {
		r.Permutation = s.queue.Permutation()
	}
	if t, ok := s.queue.Current(); ok {
		r.Song = t.Path
		if s.player.Loaded() {
			r.SongPosition = s.player.Position()
		}
	}
	return r
}

// Restore rebuilds the session from a snapshot. The saved track is loaded
// paused at its saved position. Paths that no longer resolve are dropped.
func (s *Session) Restore(ctx context.Context, r state.Resume) error {
	var tracks []library.Track
	if s.resolver != nil && len(r.Queue) > 0 {
		var err error
		if tracks, err = s.resolver.ResolveAll(ctx, r.Queue); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.player.SetVolume(r.Volume)
	if mode, err := playlist.ParseRepeatMode(r.Repeat); err == nil {
		s.repeat = mode
	}

	var perm playlist.Permutation
	if r.Shuffle && len(tracks) == len(r.Queue) {
		perm = r.Permutation
	}
	s.queue.Restore(tracks, perm, r.QueuePosition)
	if r.Shuffle && !s.queue.Shuffled() {
		s.queue.SetShuffle(true)
	}
	s.relocateLocked(r.Song)

	if s.queue.IsEmpty() {
		return nil
	}
	t, err := s.startLocked(false)
	if err != nil {
		if errors.Is(err, player.ErrTrackUnavailable) {
			log.Warn().Msg("no track of the saved queue is available")
			return nil
		}
		return err
	}
	if t.Path == r.Song && r.SongPosition > 0 {
		if err := s.player.Seek(r.SongPosition); err != nil {
			log.Debug().Err(err).Msg("restore position")
		}
		s.scheduleSaveLocked()
	}
	return nil
}

// relocateLocked moves to the entry for path when the saved position no
// longer points at it.
func (s *Session) relocateLocked(path string) {
	if path == "" {
		return
	}
	if t, ok := s.queue.Current(); ok && t.Path == path {
		return
	}
	for i, t := range s.queue.Tracks() {
		if t.Path == path {
			_ = s.queue.SetIndex(i)
			return
		}
	}
}
