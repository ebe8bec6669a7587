// internal/player/mock.go
package player

import (
	"fmt"
	"sync"
)

// Mock is a test double for Player. Tracks are "loaded" without touching
// the file system unless marked missing or unsupported.
type Mock struct {
	mu          sync.Mutex
	loaded      string
	paused      bool
	position    float64
	duration    float64
	volume      float64
	gen         uint64
	epoch       uint64
	missing     map[string]bool
	unsupported map[string]bool
	loadCalls   []string
	seekCalls   []float64
	ended       chan Ended
}

// NewMock creates a new mock player for testing.
func NewMock() *Mock {
	return &Mock{
		paused:      true,
		duration:    180,
		volume:      1,
		missing:     make(map[string]bool),
		unsupported: make(map[string]bool),
		ended:       make(chan Ended, 16),
	}
}

func (m *Mock) Load(path string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls = append(m.loadCalls, path)
	if m.missing[path] {
		return Info{}, fmt.Errorf("%w: %s", ErrTrackUnavailable, path)
	}
	if m.unsupported[path] {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	m.loaded = path
	m.paused = true
	m.position = 0
	m.gen++
	m.epoch = 0
	return Info{Path: path, Format: "MP3", SampleRate: 44100, Duration: m.duration}, nil
}

func (m *Mock) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == "" {
		return ErrNotLoaded
	}
	m.paused = false
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
}

func (m *Mock) Stop() {
	m.mu.Lock()
	m.loaded = ""
	m.paused = true
	m.position = 0
	m.gen++
	m.mu.Unlock()
}

func (m *Mock) Seek(seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == "" {
		return ErrNotLoaded
	}
	m.seekCalls = append(m.seekCalls, seconds)
	m.position = min(max(seconds, 0), m.duration)
	m.epoch++
	return nil
}

func (m *Mock) SetVolume(gain float64) {
	m.mu.Lock()
	m.volume = clampLevel(gain)
	m.mu.Unlock()
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *Mock) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == "" {
		return 0
	}
	return m.duration
}

func (m *Mock) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *Mock) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded != ""
}

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.loaded == "":
		return Stopped
	case m.paused:
		return Paused
	default:
		return Playing
	}
}

func (m *Mock) Ended() <-chan Ended { return m.ended }

func (m *Mock) IsCurrent(e Ended) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded != "" && e.Generation == m.gen && e.Epoch == m.epoch
}

func (m *Mock) Close() {}

// Test helpers

// SetMissing makes Load report ErrTrackUnavailable for path.
func (m *Mock) SetMissing(path string) {
	m.mu.Lock()
	m.missing[path] = true
	m.mu.Unlock()
}

// SetUnsupported makes Load report ErrUnsupportedFormat for path.
func (m *Mock) SetUnsupported(path string) {
	m.mu.Lock()
	m.unsupported[path] = true
	m.mu.Unlock()
}

func (m *Mock) SetPosition(seconds float64) {
	m.mu.Lock()
	m.position = seconds
	m.mu.Unlock()
}

func (m *Mock) SetDuration(seconds float64) {
	m.mu.Lock()
	m.duration = seconds
	m.mu.Unlock()
}

func (m *Mock) LoadedPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

func (m *Mock) SeekCalls() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.seekCalls...)
}

// Finish simulates the loaded track running out and returns the signal sent.
func (m *Mock) Finish() Ended {
	m.mu.Lock()
	e := Ended{Path: m.loaded, Generation: m.gen, Epoch: m.epoch}
	m.position = m.duration
	m.mu.Unlock()
	m.ended <- e
	return e
}

// Emit delivers an arbitrary track-ended signal, stale or not.
func (m *Mock) Emit(e Ended) {
	m.ended <- e
}

// Current returns the signal the loaded track would emit on running out.
func (m *Mock) Current() Ended {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Ended{Path: m.loaded, Generation: m.gen, Epoch: m.epoch}
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
