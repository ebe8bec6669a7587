package playback

import (
	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/player"
)

// Status is a point-in-time view of the session.
type Status struct {
	Track     *library.Track `json:"track"`
	Index     int            `json:"index"`
	Length    int            `json:"length"`
	Position  float64        `json:"position"`
	Duration  float64        `json:"duration"`
	IsPlaying bool           `json:"is_playing"`
	IsPaused  bool           `json:"is_paused"`
	Repeat    string         `json:"repeat_mode"`
	Shuffled  bool           `json:"is_shuffled"`
	Volume    float64        `json:"volume"`
}

// CurrentIndex returns the play index of the current track, or -1.
func (s *Session) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.CurrentIndex()
}

// Len returns the queue length.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.Len()
}

// CurrentTrack returns the current track, if any.
func (s *Session) CurrentTrack() (library.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.Current()
}

// Queue returns the tracks in play order.
func (s *Session) Queue() []library.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.Tracks()
}

// Position returns the elapsed seconds of the loaded track.
func (s *Session) Position() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player.Position()
}

// IsPaused reports whether output is suspended. A stopped session counts
// as paused.
func (s *Session) IsPaused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player.IsPaused()
}

// Shuffled reports whether shuffle is on.
func (s *Session) Shuffled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.Shuffled()
}

// Status returns the full session view.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Index:     s.queue.CurrentIndex(),
		Length:    s.queue.Len(),
		Position:  s.player.Position(),
		Duration:  s.player.Duration(),
		IsPlaying: s.player.State() == player.Playing,
		IsPaused:  s.player.IsPaused(),
		Repeat:    s.repeat.String(),
		Shuffled:  s.queue.Shuffled(),
		Volume:    s.player.Volume(),
	}
	if t, ok := s.queue.Current(); ok {
		st.Track = &t
	}
	return st
}
