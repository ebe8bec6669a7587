// Package playlist holds the play queue: one base order of tracks, an
// optional shuffle permutation over it, and the sequencing policy.
package playlist

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/llehouerou/wavesd/internal/library"
)

var (
	// ErrEmptyQueue is returned by operations that need at least one track.
	ErrEmptyQueue = errors.New("queue is empty")
	// ErrIndexOutOfRange is returned for an index outside the queue.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Queue is the ordered list of tracks being played through. Indices
// exposed by Queue are play-order indices. Queue is not safe for
// concurrent use; the playback session serializes access.
type Queue struct {
	base []library.Track
	perm Permutation // nil when not shuffled
	pos  int         // -1 when empty
	rng  *rand.Rand
}

// NewQueue creates an empty queue. A nil rng uses a randomly seeded source.
func NewQueue(rng *rand.Rand) *Queue {
	if rng == nil {
		now := uint64(time.Now().UnixNano()) //nolint:gosec // seed only
		rng = rand.New(rand.NewPCG(now, now>>1|1))
	}
	return &Queue{pos: -1, rng: rng}
}

// Len returns the number of tracks.
func (q *Queue) Len() int { return len(q.base) }

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool { return len(q.base) == 0 }

// Shuffled reports whether a permutation is active.
func (q *Queue) Shuffled() bool { return q.perm != nil }

// CurrentIndex returns the play-order index of the current track, or -1.
func (q *Queue) CurrentIndex() int { return q.pos }

// baseIndex maps a play index to a base index.
func (q *Queue) baseIndex(i int) int {
	if q.perm != nil {
		return q.perm[i]
	}
	return i
}

// At returns the track at play index i.
func (q *Queue) At(i int) (library.Track, bool) {
	if i < 0 || i >= len(q.base) {
		return library.Track{}, false
	}
	return q.base[q.baseIndex(i)], true
}

// Current returns the current track.
func (q *Queue) Current() (library.Track, bool) {
	return q.At(q.pos)
}

// Tracks returns the tracks in play order.
func (q *Queue) Tracks() []library.Track {
	out := make([]library.Track, len(q.base))
	for i := range out {
		out[i] = q.base[q.baseIndex(i)]
	}
	return out
}

// BaseTracks returns the tracks in their unshuffled order.
func (q *Queue) BaseTracks() []library.Track {
	return append([]library.Track{}, q.base...)
}

// Permutation returns a copy of the active permutation, nil if unshuffled.
func (q *Queue) Permutation() Permutation {
	return q.perm.Clone()
}

// Load replaces the queue. start indexes tracks as given; when shuffled,
// that track is placed first in a fresh permutation.
func (q *Queue) Load(tracks []library.Track, start int) error {
	if len(tracks) == 0 {
		return ErrEmptyQueue
	}
	if start < 0 || start >= len(tracks) {
		return ErrIndexOutOfRange
	}
	q.base = append([]library.Track(nil), tracks...)
	if q.perm != nil {
		q.perm = Shuffle(len(q.base), q.rng, start)
		q.pos = 0
	} else {
		q.pos = start
	}
	return nil
}

// Restore reinstates a saved queue. An invalid permutation is dropped and
// an out-of-range position is clamped.
func (q *Queue) Restore(base []library.Track, perm Permutation, pos int) {
	q.base = append([]library.Track(nil), base...)
	q.perm = nil
	if perm != nil && perm.Valid(len(base)) {
		q.perm = perm.Clone()
	}
	switch {
	case len(q.base) == 0:
		q.pos = -1
	case pos < 0:
		q.pos = 0
	case pos >= len(q.base):
		q.pos = len(q.base) - 1
	default:
		q.pos = pos
	}
}

// Mark is a saved queue state, taken with Queue.Mark.
type Mark struct {
	base []library.Track
	perm Permutation
	pos  int
}

// Mark captures the queue so that an operation failing halfway can be
// undone with Reset.
func (q *Queue) Mark() Mark {
	return Mark{
		base: append([]library.Track(nil), q.base...),
		perm: q.perm.Clone(),
		pos:  q.pos,
	}
}

// Reset puts the queue back to m, shuffle state included.
func (q *Queue) Reset(m Mark) {
	q.base = append([]library.Track(nil), m.base...)
	q.perm = m.perm.Clone()
	q.pos = m.pos
	if len(q.base) == 0 {
		q.pos = -1
	}
}

// Append adds tracks to the tail of both the base and the play order.
func (q *Queue) Append(tracks []library.Track) {
	if len(tracks) == 0 {
		return
	}
	n := len(q.base)
	q.base = append(q.base, tracks...)
	if q.perm != nil {
		for i := range tracks {
			q.perm = append(q.perm, n+i)
		}
	}
	if q.pos < 0 {
		q.pos = 0
	}
}

// SetIndex moves to play index i.
func (q *Queue) SetIndex(i int) error {
	if len(q.base) == 0 {
		return ErrEmptyQueue
	}
	if i < 0 || i >= len(q.base) {
		return ErrIndexOutOfRange
	}
	q.pos = i
	return nil
}

// Clear empties the queue. Shuffle mode is kept.
func (q *Queue) Clear() {
	q.base = nil
	if q.perm != nil {
		q.perm = Permutation{}
	}
	q.pos = -1
}

// Forward applies the forward edge policy for trigger and returns the
// action taken. The index changes for advance and wrap only.
func (q *Queue) Forward(trigger Trigger, mode RepeatMode) (Action, error) {
	if len(q.base) == 0 {
		return ActionStop, ErrEmptyQueue
	}
	action := Transition(trigger, mode, q.pos >= len(q.base)-1)
	switch action {
	case ActionAdvance:
		q.pos++
	case ActionWrap:
		q.pos = 0
	}
	return action, nil
}

// Previous goes back one track when elapsed is below threshold, wrapping
// from the first to the last index; otherwise it asks for a restart.
func (q *Queue) Previous(elapsed, threshold float64) (Action, error) {
	if len(q.base) == 0 {
		return ActionStop, ErrEmptyQueue
	}
	if elapsed >= threshold {
		return ActionRestart, nil
	}
	q.pos = (q.pos - 1 + len(q.base)) % len(q.base)
	return ActionBack, nil
}

// SetShuffle turns shuffle on with a fresh permutation that keeps the
// current track, or off restoring base order. Setting the current mode
// again is a no-op.
func (q *Queue) SetShuffle(on bool) {
	switch {
	case on && q.perm == nil:
		cur := -1
		if q.pos >= 0 {
			cur = q.pos
		}
		q.perm = Shuffle(len(q.base), q.rng, cur)
		if cur >= 0 {
			q.pos = 0
		}
	case !on && q.perm != nil:
		if q.pos >= 0 {
			q.pos = q.perm[q.pos]
		}
		q.perm = nil
	}
}

// Reorder moves the entry at play index from to play index to.
func (q *Queue) Reorder(from, to int) error {
	if len(q.base) == 0 {
		return ErrEmptyQueue
	}
	if from < 0 || from >= len(q.base) || to < 0 || to >= len(q.base) {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	if q.perm != nil {
		q.perm.Move(from, to)
	} else {
		move(q.base, from, to)
	}

	switch {
	case q.pos == from:
		q.pos = to
	case from < q.pos && q.pos <= to:
		q.pos--
	case to <= q.pos && q.pos < from:
		q.pos++
	}
	return nil
}

// Removal describes the effect of removing entries.
type Removal struct {
	Removed        int
	CurrentRemoved bool
	// Action is meaningful when CurrentRemoved: advance (the next track
	// took its place), wrap, or stop.
	Action Action
}

// Remove drops the entry at play index i.
func (q *Queue) Remove(i int, mode RepeatMode) (Removal, error) {
	if len(q.base) == 0 {
		return Removal{}, ErrEmptyQueue
	}
	if i < 0 || i >= len(q.base) {
		return Removal{}, ErrIndexOutOfRange
	}
	drop := make([]bool, len(q.base))
	drop[q.baseIndex(i)] = true
	return q.removeBase(drop, mode), nil
}

// RemovePaths drops every entry whose path is in paths.
func (q *Queue) RemovePaths(paths []string, mode RepeatMode) Removal {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	drop := make([]bool, len(q.base))
	found := false
	for b, t := range q.base {
		if _, ok := set[t.Path]; ok {
			drop[b] = true
			found = true
		}
	}
	if !found {
		return Removal{}
	}
	return q.removeBase(drop, mode)
}

// removeBase deletes the marked base entries, rebuilds the permutation and
// relocates the position. A removed current entry follows the manual-next
// policy, with stay turned into stop since the entry is gone.
func (q *Queue) removeBase(drop []bool, mode RepeatMode) Removal {
	oldPlay := make([]int, len(q.base)) // play index -> base index
	for i := range oldPlay {
		oldPlay[i] = q.baseIndex(i)
	}

	newBase := make([]library.Track, 0, len(q.base))
	remap := make([]int, len(q.base))
	for b, t := range q.base {
		if drop[b] {
			remap[b] = -1
			continue
		}
		remap[b] = len(newBase)
		newBase = append(newBase, t)
	}

	// play index in the new order of each surviving old play index
	newPlayOf := make([]int, len(oldPlay))
	var newPerm Permutation
	n := 0
	for i, b := range oldPlay {
		if remap[b] < 0 {
			newPlayOf[i] = -1
			continue
		}
		newPlayOf[i] = n
		newPerm = append(newPerm, remap[b])
		n++
	}

	res := Removal{Removed: len(q.base) - len(newBase)}
	oldPos := q.pos
	q.base = newBase
	if q.perm != nil {
		if newPerm == nil {
			newPerm = Permutation{}
		}
		q.perm = newPerm
	}

	switch {
	case len(newBase) == 0:
		q.pos = -1
		res.CurrentRemoved = oldPos >= 0
		res.Action = ActionStop
	case oldPos < 0:
		q.pos = 0
	case newPlayOf[oldPos] >= 0:
		q.pos = newPlayOf[oldPos]
	default:
		res.CurrentRemoved = true
		next := -1
		for i := oldPos + 1; i < len(newPlayOf); i++ {
			if newPlayOf[i] >= 0 {
				next = newPlayOf[i]
				break
			}
		}
		if next >= 0 {
			q.pos = next
			res.Action = ActionAdvance
			break
		}
		switch Transition(ManualNext, mode, true) {
		case ActionWrap:
			q.pos = 0
			res.Action = ActionWrap
		default:
			q.pos = len(newBase) - 1
			res.Action = ActionStop
		}
	}
	return res
}
