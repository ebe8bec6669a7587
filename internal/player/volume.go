package player

import (
	"math"
	"sync/atomic"
)

// gain holds the volume level shared by every loaded stream. The output
// goroutine reads it before each buffer fill.
type gain struct {
	bits atomic.Uint64
}

func (g *gain) set(level float64) {
	g.bits.Store(math.Float64bits(clampLevel(level)))
}

func (g *gain) get() float64 {
	return math.Float64frombits(g.bits.Load())
}

// SetVolume sets the volume level (0.0 to 1.0).
// It applies from the next buffer fill whether or not a track is playing.
func (p *Player) SetVolume(level float64) {
	p.gain.set(level)
}

// Volume returns the current volume level (0.0 to 1.0).
func (p *Player) Volume() float64 {
	return p.gain.get()
}

func clampLevel(level float64) float64 {
	if math.IsNaN(level) || level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}

// levelToVolume converts a 0.0-1.0 level to beep's Volume value.
// beep uses a logarithmic scale where Volume is in "decibels" with base 2.
// Volume = 0 means no change, -1 = half volume, -2 = quarter, etc.
// We map: 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (essentially silent)
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
