package player

import (
	"math"
	"sync/atomic"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// noSeek marks the absence of a pending seek.
const noSeek = -1

// Ended reports that a loaded track's decoded output ran out.
// Generation identifies the load and Epoch the seek that preceded it.
type Ended struct {
	Path       string
	Generation uint64
	Epoch      uint64
}

// trackStream is the streamer handed to the output for one loaded track.
// Commands only touch its atomics; Stream applies them on the output
// goroutine before filling each buffer.
type trackStream struct {
	path   string
	gen    uint64
	src    beep.StreamSeekCloser
	format beep.Format
	vol    *effects.Volume
	gain   *gain
	box    *mailbox

	paused  atomic.Bool
	pending atomic.Int64  // source sample to seek to, or noSeek
	pos     atomic.Uint64 // float64 seconds
	epoch   atomic.Uint64 // written by the output goroutine only

	ended bool // output goroutine only
}

func newTrackStream(path string, gen uint64, src beep.StreamSeekCloser, format beep.Format,
	outRate beep.SampleRate, g *gain, box *mailbox,
) *trackStream {
	var s beep.Streamer = src
	if format.SampleRate != outRate {
		s = beep.Resample(4, format.SampleRate, outRate, src)
	}
	ts := &trackStream{
		path:   path,
		gen:    gen,
		src:    src,
		format: format,
		vol:    &effects.Volume{Streamer: s, Base: 2},
		gain:   g,
		box:    box,
	}
	ts.paused.Store(true)
	ts.pending.Store(noSeek)
	return ts
}

func (s *trackStream) Stream(samples [][2]float64) (int, bool) {
	if p := s.pending.Swap(noSeek); p != noSeek {
		if err := s.src.Seek(int(p)); err == nil {
			s.ended = false
		}
		s.epoch.Add(1)
		s.storePosition(s.format.SampleRate.D(s.src.Position()).Seconds())
	}

	if s.paused.Load() || s.ended {
		clear(samples)
		return len(samples), true
	}

	level := s.gain.get()
	s.vol.Silent = level <= 0
	s.vol.Volume = levelToVolume(level)

	n, ok := s.vol.Stream(samples)
	clear(samples[n:])

	if !ok || s.src.Err() != nil {
		s.ended = true
		s.storePosition(s.duration())
		s.box.push(Ended{Path: s.path, Generation: s.gen, Epoch: s.epoch.Load()})
		return len(samples), true
	}

	if s.pending.Load() == noSeek {
		s.storePosition(s.format.SampleRate.D(s.src.Position()).Seconds())
	}
	return len(samples), true
}

func (s *trackStream) Err() error { return nil }

func (s *trackStream) duration() float64 {
	return s.format.SampleRate.D(s.src.Len()).Seconds()
}

func (s *trackStream) position() float64 {
	return math.Float64frombits(s.pos.Load())
}

func (s *trackStream) storePosition(seconds float64) {
	s.pos.Store(math.Float64bits(seconds))
}

// seek records the target for the next buffer fill and publishes the
// clamped position immediately. It returns the clamped position.
func (s *trackStream) seek(seconds float64) float64 {
	d := s.duration()
	seconds = min(max(seconds, 0), d)
	sample := min(s.format.SampleRate.N(secondsToDuration(seconds)), s.src.Len())
	s.pending.Store(int64(sample))
	s.storePosition(seconds)
	return seconds
}
