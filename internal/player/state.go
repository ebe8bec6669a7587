// internal/player/state.go
package player

// State represents the playback state machine.
//
// The state machine has three states with the following valid transitions:
//
//	┌──────────┐      load       ┌──────────┐
//	│  Stopped │ ───────────────▶│  Paused  │
//	└──────────┘                 └──────────┘
//	     ▲                         │     ▲
//	     │ stop               play │     │ pause
//	     │                         ▼     │
//	     │                       ┌──────────┐
//	     └───────────────────────│  Playing │
//	                  stop       └──────────┘
//
// A freshly loaded track is Paused until Play. Loading a new track from
// any state replaces the current one and returns to Paused.
//
// Invalid/No-op transitions (handled gracefully):
//   - Stopped → Playing (Play returns ErrNotLoaded)
//   - Stopped → Stopped (ignored)
//   - Paused  → Paused  (ignored)
//   - Playing → Playing (ignored)
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a track is loaded (Playing or Paused).
func (s State) IsActive() bool {
	return s == Playing || s == Paused
}
