// internal/player/interface.go
package player

// Interface defines the engine contract for dependency injection and testing.
type Interface interface {
	Load(path string) (Info, error)
	Play() error
	Pause()
	Stop()
	Seek(seconds float64) error
	SetVolume(gain float64)
	Volume() float64
	Position() float64
	Duration() float64
	IsPaused() bool
	Loaded() bool
	State() State
	Ended() <-chan Ended
	IsCurrent(e Ended) bool
	Close()
}

// Verify Player implements Interface at compile time.
var _ Interface = (*Player)(nil)
