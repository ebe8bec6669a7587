// Package events is the in-process publish/subscribe bus that carries
// push notifications to clients.
package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Event names. These are the wire contract with clients.
const (
	CurrentSong        = "get-current-song"
	ScanFinished       = "scan-finished"
	ScanProgress       = "scan-progress"
	EndingRestore      = "ending-restore"
	EndingReset        = "ending-reset"
	RemoveSong         = "remove-song"
	NewPlaylistCreated = "new-playlist-created"
	ControlsPlayPause  = "controls-play-pause"
	ControlsNextSong   = "controls-next-song"
	ControlsPrevSong   = "controls-prev-song"
	PlayerShuffleMode  = "player-shuffle-mode"
	TrackUnavailable   = "track-unavailable"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// Event is one notification.
type Event struct {
	Name    string
	Payload any
}

// SongPayload is the payload of get-current-song and remove-song.
type SongPayload struct {
	Q any `json:"q"`
}

// Publisher is implemented by Bus.
type Publisher interface {
	Publish(name string, payload any)
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscription is a subscriber's handle.
type Subscription struct {
	C   <-chan Event
	id  int
	bus *Bus
}

// Subscribe registers a subscriber with the given buffer size.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return &Subscription{C: ch, id: -1, bus: b}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	return &Subscription{C: ch, id: id, bus: b}
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if ch, ok := s.bus.subs[s.id]; ok {
		delete(s.bus.subs, s.id)
		close(ch)
	}
}

// Publish delivers an event to every subscriber without blocking.
func (b *Bus) Publish(name string, payload any) {
	e := Event{Name: name, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			log.Warn().Str("event", name).Int("subscriber", id).Msg("subscriber buffer full, dropping event")
		}
	}
}

// Close closes every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.closed = true
}
