// Package player is the playback engine: it decodes one track at a time,
// streams it to an audio Output and reports when the track runs out.
package player

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog/log"
)

// Info describes a loaded track's stream.
type Info struct {
	Path       string
	Format     string
	SampleRate int
	Duration   float64
}

// Options configures the output device.
type Options struct {
	SampleRate int
	BufferMs   int
}

// Player drives an Output with at most one loaded track.
type Player struct {
	mu         sync.Mutex // serializes Load, Stop and Close
	out        Output
	sampleRate beep.SampleRate
	bufferSize int
	outReady   bool

	cur  atomic.Pointer[trackStream]
	gen  uint64
	gain gain
	box  *mailbox
}

// New creates a Player streaming to out. The output is initialized on the
// first Load.
func New(out Output, opts Options) *Player {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.BufferMs <= 0 {
		opts.BufferMs = 100
	}
	rate := beep.SampleRate(opts.SampleRate)
	p := &Player{
		out:        out,
		sampleRate: rate,
		bufferSize: rate.N(time.Duration(opts.BufferMs) * time.Millisecond),
	}
	p.gain.set(1)
	p.box = newMailbox(p.IsCurrent)
	return p
}

// Load opens path and prepares it paused at position 0, replacing any
// loaded track.
func (p *Player) Load(path string) (Info, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	src, format, name, err := decodeFile(path)
	if err != nil {
		return Info{}, err
	}

	if !p.outReady {
		if err := p.out.Init(p.sampleRate, p.bufferSize); err != nil {
			src.Close()
			return Info{}, err
		}
		p.outReady = true
	}

	p.releaseLocked()

	p.gen++
	ts := newTrackStream(path, p.gen, src, format, p.sampleRate, &p.gain, p.box)
	p.cur.Store(ts)
	p.out.Play(ts)

	info := Info{
		Path:       path,
		Format:     name,
		SampleRate: int(format.SampleRate),
		Duration:   ts.duration(),
	}
	log.Debug().Str("path", path).Str("format", name).Float64("duration", info.Duration).Msg("track loaded")
	return info, nil
}

// releaseLocked detaches and closes the loaded track. Caller holds p.mu.
func (p *Player) releaseLocked() {
	old := p.cur.Swap(nil)
	if old == nil {
		return
	}
	p.out.Clear()
	p.out.Lock()
	err := old.src.Close()
	p.out.Unlock()
	if err != nil {
		log.Warn().Err(err).Str("path", old.path).Msg("closing decoder")
	}
}

// Play resumes output. It is a no-op when already playing.
func (p *Player) Play() error {
	ts := p.cur.Load()
	if ts == nil {
		return ErrNotLoaded
	}
	ts.paused.Store(false)
	return nil
}

// Pause suspends output, keeping the position.
func (p *Player) Pause() {
	if ts := p.cur.Load(); ts != nil {
		ts.paused.Store(true)
	}
}

// Stop unloads the current track. Ended signals still in flight for it
// are discarded.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked()
}

// Seek moves to seconds, clamped to [0, duration].
func (p *Player) Seek(seconds float64) error {
	ts := p.cur.Load()
	if ts == nil {
		return ErrNotLoaded
	}
	ts.seek(seconds)
	return nil
}

// Position returns the elapsed seconds of the loaded track.
func (p *Player) Position() float64 {
	if ts := p.cur.Load(); ts != nil {
		return ts.position()
	}
	return 0
}

// Duration returns the length in seconds of the loaded track.
func (p *Player) Duration() float64 {
	if ts := p.cur.Load(); ts != nil {
		return ts.duration()
	}
	return 0
}

// IsPaused reports whether output is suspended. Nothing loaded counts as paused.
func (p *Player) IsPaused() bool {
	ts := p.cur.Load()
	return ts == nil || ts.paused.Load()
}

// Loaded reports whether a track is loaded.
func (p *Player) Loaded() bool {
	return p.cur.Load() != nil
}

// State returns the current transport state.
func (p *Player) State() State {
	ts := p.cur.Load()
	switch {
	case ts == nil:
		return Stopped
	case ts.paused.Load():
		return Paused
	default:
		return Playing
	}
}

// Ended delivers one signal per track whose output ran out, in order.
func (p *Player) Ended() <-chan Ended {
	return p.box.out
}

// IsCurrent reports whether e belongs to the loaded track and no seek has
// happened since it was raised.
func (p *Player) IsCurrent(e Ended) bool {
	ts := p.cur.Load()
	return ts != nil &&
		ts.gen == e.Generation &&
		ts.epoch.Load() == e.Epoch &&
		ts.pending.Load() == noSeek
}

// Close unloads the track, stops signal delivery and releases the output.
func (p *Player) Close() {
	p.mu.Lock()
	p.releaseLocked()
	p.mu.Unlock()
	p.box.close()
	p.out.Close()
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
