// Package playback is the playback session: it owns the play queue, drives
// the engine and reacts to tracks running out.
package playback

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/llehouerou/wavesd/internal/events"
	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/state"
)

// DefaultPreviousThreshold is the elapsed time, in seconds, from which
// Previous restarts the current track instead of going back.
const DefaultPreviousThreshold = 3.0

// HistoryRecorder records track starts.
type HistoryRecorder interface {
	Record(ctx context.Context, path string) error
}

// ResumeSaver persists session snapshots.
type ResumeSaver interface {
	ScheduleResume(r state.Resume)
}

// TrackResolver maps saved paths back to tracks.
type TrackResolver interface {
	ResolveAll(ctx context.Context, paths []string) ([]library.Track, error)
}

// Reasons carried by the track-unavailable event.
const (
	ReasonMissing     = "missing"
	ReasonUnsupported = "unsupported_format"
	ReasonLoadFailed  = "load_failed"
)

// UnavailablePayload is the payload of the track-unavailable event.
type UnavailablePayload struct {
	Path   string `json:"path"`
	Reason string `json:"reason,omitempty"`
}

// loadFailure is an engine load error that left the previous track loaded.
type loadFailure struct{ err error }

func (e loadFailure) Error() string { return e.err.Error() }
func (e loadFailure) Unwrap() error { return e.err }

func unavailableReason(err error) string {
	switch {
	case errors.Is(err, player.ErrTrackUnavailable):
		return ReasonMissing
	case errors.Is(err, player.ErrUnsupportedFormat):
		return ReasonUnsupported
	default:
		return ReasonLoadFailed
	}
}

// Options configures a Session. Nil collaborators are replaced by no-ops.
type Options struct {
	Events            events.Publisher
	History           HistoryRecorder
	Saver             ResumeSaver
	Resolver          TrackResolver
	PreviousThreshold float64
	Rand              *rand.Rand
}

// Session is the single authority over the queue and the engine.
type Session struct {
	mu sync.RWMutex

	player    player.Interface
	queue     *playlist.Queue
	repeat    playlist.RepeatMode
	finished  bool // the queue ran out under repeat off
	threshold float64

	events   events.Publisher
	history  HistoryRecorder
	saver    ResumeSaver
	resolver TrackResolver

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// New creates a Session driving p and starts consuming its track-ended
// signals.
func New(p player.Interface, opts Options) *Session {
	if opts.Events == nil {
		opts.Events = nopPublisher{}
	}
	if opts.History == nil {
		opts.History = nopHistory{}
	}
	if opts.Saver == nil {
		opts.Saver = nopSaver{}
	}
	if opts.PreviousThreshold <= 0 {
		opts.PreviousThreshold = DefaultPreviousThreshold
	}
	s := &Session{
		player:    p,
		queue:     playlist.NewQueue(opts.Rand),
		threshold: opts.PreviousThreshold,
		events:    opts.Events,
		history:   opts.History,
		saver:     opts.Saver,
		resolver:  opts.Resolver,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Close stops the track-ended consumer and schedules a final snapshot save.
// The player is owned by the caller.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
		s.saver.ScheduleResume(s.Snapshot())
	})
	return nil
}

func (s *Session) run() {
	defer close(s.stopped)
	ended := s.player.Ended()
	for {
		select {
		case <-s.done:
			return
		case e, ok := <-ended:
			if !ok {
				return
			}
			s.handleEnded(e)
		}
	}
}

// handleEnded applies the track-ended policy. Signals for a track that has
// since been replaced or seeked are dropped.
func (s *Session) handleEnded(e player.Ended) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.player.IsCurrent(e) {
		log.Debug().Str("path", e.Path).Uint64("generation", e.Generation).Msg("dropping stale track-ended")
		return
	}

	action, err := s.queue.Forward(playlist.TrackEnded, s.repeat)
	if err != nil {
		return
	}
	switch action {
	case playlist.ActionAdvance, playlist.ActionWrap, playlist.ActionReplay:
		if t, err := s.startLocked(true); err != nil {
			log.Warn().Err(err).Msg("auto-advance failed")
			var lf loadFailure
			if errors.As(err, &lf) {
				s.events.Publish(events.TrackUnavailable, UnavailablePayload{
					Path:   t.Path,
					Reason: unavailableReason(lf.err),
				})
			}
			s.player.Stop()
			s.scheduleSaveLocked()
		}
	default:
		s.finishLocked()
	}
}

// finishLocked parks the last track at its start once the queue has run
// out.
func (s *Session) finishLocked() {
	if err := s.player.Seek(0); err != nil {
		log.Debug().Err(err).Msg("rewind after queue end")
	}
	s.player.Pause()
	s.finished = true
	s.events.Publish(events.EndingReset, nil)
	s.scheduleSaveLocked()
}

// startLocked loads the current queue entry and, when play is set, starts
// it. Missing files are reported and skipped following the track-ended
// policy, at most once around the queue. Any other load error comes back
// as a loadFailure with the queue left on the refused entry.
func (s *Session) startLocked(play bool) (library.Track, error) {
	for range s.queue.Len() {
		t, ok := s.queue.Current()
		if !ok {
			return library.Track{}, playlist.ErrEmptyQueue
		}

		_, err := s.player.Load(t.Path)
		if err == nil {
			s.finished = false
			if play {
				if err := s.player.Play(); err != nil {
					return t, err
				}
				s.trackStartedLocked(t)
			} else {
				s.announceLocked(t)
				s.scheduleSaveLocked()
			}
			return t, nil
		}
		if !errors.Is(err, player.ErrTrackUnavailable) {
			return t, loadFailure{err}
		}

		log.Warn().Str("path", t.Path).Msg("track unavailable, skipping")
		s.events.Publish(events.TrackUnavailable, UnavailablePayload{Path: t.Path, Reason: ReasonMissing})

		mode := s.repeat
		if mode == playlist.RepeatOne {
			mode = playlist.RepeatAll
		}
		if action, _ := s.queue.Forward(playlist.TrackEnded, mode); action == playlist.ActionStop {
			break
		}
	}
	s.player.Stop()
	s.finished = false
	s.scheduleSaveLocked()
	return library.Track{}, fmt.Errorf("no playable track in queue: %w", player.ErrTrackUnavailable)
}

// startOrResetLocked is startLocked for user operations: when the engine
// refuses the track and keeps the previous one, the queue goes back to m so
// that it still names what is loaded.
func (s *Session) startOrResetLocked(m playlist.Mark, play bool) (library.Track, error) {
	t, err := s.startLocked(play)
	var lf loadFailure
	if !errors.As(err, &lf) {
		return t, err
	}
	log.Warn().Err(lf.err).Str("path", t.Path).Msg("track refused, queue restored")
	s.queue.Reset(m)
	s.scheduleSaveLocked()
	return t, lf.err
}

// trackStartedLocked runs the side effects of a track start.
func (s *Session) trackStartedLocked(t library.Track) {
	if err := s.history.Record(context.Background(), t.Path); err != nil {
		log.Error().Err(err).Str("path", t.Path).Msg("failed to record play")
	}
	s.announceLocked(t)
	s.scheduleSaveLocked()
}

func (s *Session) announceLocked(t library.Track) {
	s.events.Publish(events.CurrentSong, events.SongPayload{Q: t})
}

func (s *Session) scheduleSaveLocked() {
	s.saver.ScheduleResume(s.snapshotLocked())
}

// LoadQueue replaces the queue and starts playing tracks[start].
func (s *Session) LoadQueue(tracks []library.Track, start int) (library.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.queue.Mark()
	if err := s.queue.Load(tracks, start); err != nil {
		return library.Track{}, err
	}
	return s.startOrResetLocked(m, true)
}

// UpdateQueue replaces the queue with tracks, given in play order, and
// moves to index. Playback continues untouched when the track at index is
// the one already loaded; otherwise that track is loaded, keeping the
// current play/pause state.
func (s *Session) UpdateQueue(tracks []library.Track, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tracks) == 0 {
		return playlist.ErrEmptyQueue
	}
	if index < 0 || index >= len(tracks) {
		return playlist.ErrIndexOutOfRange
	}

	m := s.queue.Mark()
	prev, hadPrev := s.queue.Current()
	var perm playlist.Permutation
	if s.queue.Shuffled() {
		perm = playlist.Identity(len(tracks))
	}
	s.queue.Restore(tracks, perm, index)

	if hadPrev && s.player.Loaded() && prev.Path == tracks[index].Path {
		s.scheduleSaveLocked()
		return nil
	}
	_, err := s.startOrResetLocked(m, !s.player.IsPaused())
	return err
}

// CreateQueue replaces the queue without interrupting the loaded track when
// it is part of tracks. Otherwise the first track is loaded paused.
func (s *Session) CreateQueue(tracks []library.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tracks) == 0 {
		return playlist.ErrEmptyQueue
	}

	if cur, ok := s.queue.Current(); ok && s.player.Loaded() {
		for i, t := range tracks {
			if t.Path == cur.Path {
				if err := s.queue.Load(tracks, i); err != nil {
					return err
				}
				s.scheduleSaveLocked()
				return nil
			}
		}
	}
	m := s.queue.Mark()
	if err := s.queue.Load(tracks, 0); err != nil {
		return err
	}
	_, err := s.startOrResetLocked(m, false)
	return err
}

// Append adds tracks to the end of the queue. The first track of a
// previously empty queue is loaded paused.
func (s *Session) Append(tracks []library.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasEmpty := s.queue.IsEmpty()
	s.queue.Append(tracks)
	if wasEmpty && !s.queue.IsEmpty() && !s.player.Loaded() {
		if _, err := s.startLocked(false); err != nil {
			log.Warn().Err(err).Msg("failed to prepare appended track")
		}
		return
	}
	s.scheduleSaveLocked()
}

// Clear empties the queue and stops playback.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.Clear()
	s.player.Stop()
	s.finished = false
	s.scheduleSaveLocked()
}

// Reorder moves a queue entry within the play order.
func (s *Session) Reorder(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.queue.Reorder(from, to); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	return nil
}

// Remove drops the entry at play index i.
func (s *Session) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.queue.Remove(i, s.repeat)
	if err != nil {
		return err
	}
	s.applyRemovalLocked(res)
	return nil
}

// RemoveMany drops every entry whose path is in paths.
func (s *Session) RemoveMany(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.queue.RemovePaths(paths, s.repeat)
	if res.Removed == 0 {
		return
	}
	s.applyRemovalLocked(res)
}

func (s *Session) applyRemovalLocked(res playlist.Removal) {
	if !res.CurrentRemoved {
		s.scheduleSaveLocked()
		return
	}
	switch res.Action {
	case playlist.ActionAdvance, playlist.ActionWrap:
		if _, err := s.startLocked(!s.player.IsPaused()); err != nil {
			log.Warn().Err(err).Msg("failed to start next track after removal")
			s.player.Stop()
			s.scheduleSaveLocked()
		}
	default:
		s.player.Stop()
		s.scheduleSaveLocked()
	}
}

// SetShuffle switches shuffle mode and announces it.
func (s *Session) SetShuffle(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.SetShuffle(enabled)
	s.events.Publish(events.PlayerShuffleMode, enabled)
	s.scheduleSaveLocked()
}

// Play starts or resumes playback. After the queue ran out it starts over
// from the first entry.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		m := s.queue.Mark()
		if err := s.queue.SetIndex(0); err != nil {
			return err
		}
		if _, err := s.startOrResetLocked(m, true); err != nil {
			return err
		}
		s.events.Publish(events.EndingRestore, nil)
		return nil
	}
	if !s.player.Loaded() {
		if s.queue.IsEmpty() {
			return player.ErrNotLoaded
		}
		_, err := s.startLocked(true)
		return err
	}
	return s.player.Play()
}

// Pause suspends playback and saves the position.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.player.Pause()
	s.scheduleSaveLocked()
}

// Stop unloads the track. The queue position is kept.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.player.Stop()
	s.scheduleSaveLocked()
}

// Toggle plays when paused and pauses when playing.
func (s *Session) Toggle() error {
	s.mu.RLock()
	playing := s.player.State() == player.Playing
	s.mu.RUnlock()

	if playing {
		s.Pause()
		return nil
	}
	return s.Play()
}

// Next applies the manual-next policy and returns the current track.
func (s *Session) Next() (library.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.queue.Mark()
	action, err := s.queue.Forward(playlist.ManualNext, s.repeat)
	if err != nil {
		return library.Track{}, err
	}
	if action == playlist.ActionStay {
		t, _ := s.queue.Current()
		return t, nil
	}
	return s.startOrResetLocked(m, true)
}

// Previous goes back one entry near the start of a track and restarts the
// track otherwise.
func (s *Session) Previous() (library.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.player.Position()
	if !s.player.Loaded() {
		elapsed = 0
	}
	m := s.queue.Mark()
	action, err := s.queue.Previous(elapsed, s.threshold)
	if err != nil {
		return library.Track{}, err
	}
	if action == playlist.ActionRestart {
		return s.restartLocked()
	}
	return s.startOrResetLocked(m, true)
}

func (s *Session) restartLocked() (library.Track, error) {
	t, _ := s.queue.Current()
	if err := s.player.Seek(0); err != nil {
		return t, err
	}
	if err := s.player.Play(); err != nil {
		return t, err
	}
	s.finished = false
	s.trackStartedLocked(t)
	return t, nil
}

// Seek moves within the loaded track. Seeking to the start counts as a
// new play of the track.
func (s *Session) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seconds <= 0 && s.player.Loaded() && !s.player.IsPaused() {
		_, err := s.restartLocked()
		return err
	}
	if err := s.player.Seek(seconds); err != nil {
		return err
	}
	s.scheduleSaveLocked()
	return nil
}

// SetVolume sets the output level, clamped to [0, 1].
func (s *Session) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.player.SetVolume(level)
	s.scheduleSaveLocked()
}

// SetRepeatMode sets the repeat mode directly.
func (s *Session) SetRepeatMode(mode playlist.RepeatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !mode.Valid() {
		mode = playlist.RepeatOff
	}
	s.repeat = mode
	s.scheduleSaveLocked()
}

// CycleRepeatMode steps off → all → one → off and returns the new mode.
func (s *Session) CycleRepeatMode() playlist.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.repeat = s.repeat.Cycle()
	s.scheduleSaveLocked()
	return s.repeat
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

type nopHistory struct{}

func (nopHistory) Record(context.Context, string) error { return nil }

type nopSaver struct{}

func (nopSaver) ScheduleResume(state.Resume) {}
