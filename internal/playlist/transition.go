package playlist

import (
	"fmt"
	"strconv"
	"strings"
)

// RepeatMode controls what happens at the end of the queue.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	}
	return "unknown"
}

// Cycle returns the next mode in the off → all → one → off cycle.
func (m RepeatMode) Cycle() RepeatMode {
	return (m + 1) % 3
}

// Valid reports whether m is a known mode.
func (m RepeatMode) Valid() bool {
	return m >= RepeatOff && m <= RepeatOne
}

// ParseRepeatMode accepts a mode name ("off", "all", "one", plus the
// "repeat-all"/"repeat-one" spellings) or its number.
func ParseRepeatMode(s string) (RepeatMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch strings.TrimPrefix(s, "repeat-") {
	case "off", "none", "":
		return RepeatOff, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	}
	if n, err := strconv.Atoi(s); err == nil && RepeatMode(n).Valid() {
		return RepeatMode(n), nil
	}
	return RepeatOff, fmt.Errorf("invalid repeat mode %q", s)
}

// Trigger is what asks the queue to move forward.
type Trigger int

const (
	// ManualNext is the user pressing next.
	ManualNext Trigger = iota
	// TrackEnded is the engine running out of audio.
	TrackEnded
)

func (t Trigger) String() string {
	if t == TrackEnded {
		return "track-ended"
	}
	return "manual-next"
}

// Action is the outcome of a transition.
type Action int

const (
	ActionAdvance Action = iota // move to the next index
	ActionWrap                  // jump to index 0
	ActionReplay                // restart the current index
	ActionStay                  // keep index and playback as they are
	ActionStop                  // keep index, stop playback
	ActionBack                  // move to the previous index
	ActionRestart               // restart the current index from 0
)

func (a Action) String() string {
	return [...]string{"advance", "wrap", "replay", "stay", "stop", "back", "restart"}[a]
}

type transitionKey struct {
	trigger Trigger
	mode    RepeatMode
	atEnd   bool
}

// transitions is the complete forward edge policy.
var transitions = map[transitionKey]Action{
	{ManualNext, RepeatOff, false}: ActionAdvance,
	{ManualNext, RepeatOff, true}:  ActionStay,
	{ManualNext, RepeatAll, false}: ActionAdvance,
	{ManualNext, RepeatAll, true}:  ActionWrap,
	{ManualNext, RepeatOne, false}: ActionAdvance,
	{ManualNext, RepeatOne, true}:  ActionWrap,

	{TrackEnded, RepeatOff, false}: ActionAdvance,
	{TrackEnded, RepeatOff, true}:  ActionStop,
	{TrackEnded, RepeatAll, false}: ActionAdvance,
	{TrackEnded, RepeatAll, true}:  ActionWrap,
	{TrackEnded, RepeatOne, false}: ActionReplay,
	{TrackEnded, RepeatOne, true}:  ActionReplay,
}

// Transition looks up the action for a forward move.
func Transition(trigger Trigger, mode RepeatMode, atEnd bool) Action {
	if a, ok := transitions[transitionKey{trigger, mode, atEnd}]; ok {
		return a
	}
	return ActionStop
}
