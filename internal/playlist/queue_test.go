package playlist

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavesd/internal/library"
)

func tracks(names ...string) []library.Track {
	out := make([]library.Track, len(names))
	for i, n := range names {
		out[i] = library.Track{Path: "/" + n + ".mp3", Name: n}
	}
	return out
}

func names(ts []library.Track) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

func newTestQueue() *Queue {
	return NewQueue(rand.New(rand.NewPCG(1, 2)))
}

func current(t *testing.T, q *Queue) string {
	t.Helper()
	tr, ok := q.Current()
	require.True(t, ok, "queue has no current track")
	return tr.Name
}

func TestNewQueue(t *testing.T) {
	q := newTestQueue()

	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
	if q.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex() = %d, want -1", q.CurrentIndex())
	}
	if _, ok := q.Current(); ok {
		t.Error("Current() should be empty for empty queue")
	}
}

func TestQueue_Load(t *testing.T) {
	q := newTestQueue()

	require.ErrorIs(t, q.Load(nil, 0), ErrEmptyQueue)
	require.ErrorIs(t, q.Load(tracks("A", "B"), 2), ErrIndexOutOfRange)
	require.ErrorIs(t, q.Load(tracks("A", "B"), -1), ErrIndexOutOfRange)
	assert.Equal(t, -1, q.CurrentIndex(), "failed load must not mutate")

	require.NoError(t, q.Load(tracks("A", "B", "C"), 1))
	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, "B", current(t, q))
}

func TestQueue_LoadWhileShuffledStartsWithStartTrack(t *testing.T) {
	q := newTestQueue()
	q.SetShuffle(true)

	require.NoError(t, q.Load(tracks("A", "B", "C", "D", "E"), 3))
	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, "D", current(t, q))
	assert.ElementsMatch(t, []string{"A", "B", "C", "D", "E"}, names(q.Tracks()))
}

func TestQueue_ManualNextRepeatOff(t *testing.T) {
	q := newTestQueue()
	require.NoError(t, q.Load(tracks("A", "B", "C"), 0))

	for range 2 {
		action, err := q.Forward(ManualNext, RepeatOff)
		require.NoError(t, err)
		assert.Equal(t, ActionAdvance, action)
	}
	assert.Equal(t, 2, q.CurrentIndex())

	action, err := q.Forward(ManualNext, RepeatOff)
	require.NoError(t, err)
	assert.Equal(t, ActionStay, action)
	assert.Equal(t, 2, q.CurrentIndex())

	action, err = q.Forward(TrackEnded, RepeatOff)
	require.NoError(t, err)
	assert.Equal(t, ActionStop, action)
	assert.Equal(t, 2, q.CurrentIndex())
}

func TestQueue_ForwardTable(t *testing.T) {
	tests := []struct {
		trigger Trigger
		mode    RepeatMode
		start   int
		action  Action
		index   int
	}{
		{ManualNext, RepeatAll, 1, ActionAdvance, 2},
		{ManualNext, RepeatAll, 2, ActionWrap, 0},
		{ManualNext, RepeatOne, 0, ActionAdvance, 1},
		{ManualNext, RepeatOne, 2, ActionWrap, 0},
		{TrackEnded, RepeatOff, 0, ActionAdvance, 1},
		{TrackEnded, RepeatAll, 2, ActionWrap, 0},
		{TrackEnded, RepeatOne, 1, ActionReplay, 1},
		{TrackEnded, RepeatOne, 2, ActionReplay, 2},
	}
	for _, tt := range tests {
		t.Run(tt.trigger.String()+"/"+tt.mode.String(), func(t *testing.T) {
			q := newTestQueue()
			require.NoError(t, q.Load(tracks("A", "B", "C"), tt.start))
			action, err := q.Forward(tt.trigger, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.index, q.CurrentIndex())
		})
	}
}

func TestQueue_ForwardEmpty(t *testing.T) {
	q := newTestQueue()
	_, err := q.Forward(ManualNext, RepeatAll)
	require.ErrorIs(t, err, ErrEmptyQueue)
}

func TestQueue_Previous(t *testing.T) {
	q := newTestQueue()
	require.NoError(t, q.Load(tracks("A", "B", "C"), 1))

	action, err := q.Previous(1.5, 3)
	require.NoError(t, err)
	assert.Equal(t, ActionBack, action)
	assert.Equal(t, 0, q.CurrentIndex())

	action, err = q.Previous(0, 3)
	require.NoError(t, err)
	assert.Equal(t, ActionBack, action)
	assert.Equal(t, 2, q.CurrentIndex(), "wraps from first to last")

	action, err = q.Previous(3, 3)
	require.NoError(t, err)
	assert.Equal(t, ActionRestart, action)
	assert.Equal(t, 2, q.CurrentIndex())
}

func TestQueue_Reorder(t *testing.T) {
	q := newTestQueue()
	require.NoError(t, q.Load(tracks("A", "B", "C", "D"), 0))

	require.NoError(t, q.Reorder(2, 0))
	assert.Equal(t, []string{"C", "A", "B", "D"}, names(q.Tracks()))
	assert.Equal(t, "A", current(t, q), "current track identity kept")
	assert.Equal(t, 1, q.CurrentIndex())

	require.NoError(t, q.Reorder(1, 1))
	assert.Equal(t, []string{"C", "A", "B", "D"}, names(q.Tracks()))

	require.ErrorIs(t, q.Reorder(0, 4), ErrIndexOutOfRange)
	assert.Equal(t, []string{"C", "A", "B", "D"}, names(q.Tracks()))
}

func TestQueue_ReorderWhileShuffled(t *testing.T) {
	q := newTestQueue()
	require.NoError(t, q.Load(tracks("A", "B", "C", "D"), 0))
	q.SetShuffle(true)
	before := names(q.Tracks())

	require.NoError(t, q.Reorder(3, 1))
	want := []string{before[0], before[3], before[1], before[2]}
	assert.Equal(t, want, names(q.Tracks()))

	q.SetShuffle(false)
	assert.Equal(t, []string{"A", "B", "C", "D"}, names(q.Tracks()), "base order untouched")
}

func TestQueue_ShuffleRoundTrip(t *testing.T) {
	q := newTestQueue()
	require.NoError(t, q.Load(tracks("A", "B", "C", "D", "E", "F"), 4))

	q.SetShuffle(true)
	assert.True(t, q.Shuffled())
	assert.Equal(t, "E", current(t, q))
	assert.True(t, q.Permutation().Valid(6))

	q.SetShuffle(false)
	assert.False(t, q.Shuffled())
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, names(q.Tracks()))
	assert.Equal(t, 4, q.CurrentIndex())
}

func TestQueue_AppendWhileShuffled(t *testing.T) {
	q := newTestQueue()
	require.NoError(t, q.Load(tracks("A", "B", "C"), 0))
	q.SetShuffle(true)

	q.Append(tracks("D", "E"))
	play := names(q.Tracks())
	assert.Equal(t, []string{"D", "E"}, play[3:])
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, names(q.BaseTracks()))
}

func TestQueue_Append_EmptyQueueSetsPosition(t *testing.T) {
	q := newTestQueue()
	q.Append(tracks("A"))
	assert.Equal(t, 0, q.CurrentIndex())
}

func TestQueue_RemoveCurrent(t *testing.T) {
	tests := []struct {
		name   string
		start  int
		mode   RepeatMode
		action Action
		cur    string
		index  int
	}{
		{"middle advances", 1, RepeatOff, ActionAdvance, "C", 1},
		{"last with repeat off stops", 2, RepeatOff, ActionStop, "B", 1},
		{"last with repeat all wraps", 2, RepeatAll, ActionWrap, "A", 0},
		{"last with repeat one wraps", 2, RepeatOne, ActionWrap, "A", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newTestQueue()
			require.NoError(t, q.Load(tracks("A", "B", "C"), tt.start))

			res, err := q.Remove(tt.start, tt.mode)
			require.NoError(t, err)
			assert.True(t, res.CurrentRemoved)
			assert.Equal(t, tt.action, res.Action)
			assert.Equal(t, tt.index, q.CurrentIndex())
			assert.Equal(t, tt.cur, current(t, q))
		})
	}
}

func TestQueue_RemoveBeforeCurrent(t *testing.T) {
	q := newTestQueue()
	require.NoError(t, q.Load(tracks("A", "B", "C"), 2))

	res, err := q.Remove(0, RepeatOff)
	require.NoError(t, err)
	assert.False(t, res.CurrentRemoved)
	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, "C", current(t, q))

	_, err = q.Remove(5, RepeatOff)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestQueue_RemoveLastEntry(t *testing.T) {
	q := newTestQueue()
	require.NoError(t, q.Load(tracks("A"), 0))

	res, err := q.Remove(0, RepeatAll)
	require.NoError(t, err)
	assert.True(t, res.CurrentRemoved)
	assert.Equal(t, ActionStop, res.Action)
	assert.Equal(t, -1, q.CurrentIndex())
	assert.True(t, q.IsEmpty())

	_, err = q.Remove(0, RepeatAll)
	require.ErrorIs(t, err, ErrEmptyQueue)
}

func TestQueue_RemovePathsWhileShuffled(t *testing.T) {
	q := newTestQueue()
	require.NoError(t, q.Load(tracks("A", "B", "C", "D", "E"), 0))
	q.SetShuffle(true)
	cur := current(t, q)

	var victim string
	for _, n := range names(q.Tracks()) {
		if n != cur {
			victim = n
			break
		}
	}
	res := q.RemovePaths([]string{"/" + victim + ".mp3", "/nope.mp3"}, RepeatOff)
	assert.Equal(t, 1, res.Removed)
	assert.False(t, res.CurrentRemoved)
	assert.Equal(t, cur, current(t, q))
	assert.True(t, q.Permutation().Valid(4))
	assert.NotContains(t, names(q.Tracks()), victim)

	q.SetShuffle(false)
	assert.NotContains(t, names(q.Tracks()), victim)
	assert.Len(t, q.Tracks(), 4)
}

func TestQueue_RemovePathsDuplicates(t *testing.T) {
	q := newTestQueue()
	ts := tracks("A", "B", "A", "C")
	require.NoError(t, q.Load(ts, 1))

	res := q.RemovePaths([]string{"/A.mp3"}, RepeatOff)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, []string{"B", "C"}, names(q.Tracks()))
	assert.Equal(t, "B", current(t, q))
}

func TestQueue_Restore(t *testing.T) {
	q := newTestQueue()
	q.Restore(tracks("A", "B", "C"), Permutation{2, 0, 1}, 1)
	assert.True(t, q.Shuffled())
	assert.Equal(t, "A", current(t, q))

	q.Restore(tracks("A", "B"), Permutation{0, 0}, 7)
	assert.False(t, q.Shuffled(), "invalid permutation dropped")
	assert.Equal(t, 1, q.CurrentIndex())

	q.Restore(nil, nil, 3)
	assert.Equal(t, -1, q.CurrentIndex())
}

func TestQueue_MarkReset(t *testing.T) {
	q := newTestQueue()
	require.NoError(t, q.Load(tracks("A", "B", "C"), 0))
	m := q.Mark()

	_, err := q.Forward(ManualNext, RepeatOff)
	require.NoError(t, err)
	q.SetShuffle(true)
	q.Append(tracks("D"))
	q.Reset(m)

	assert.False(t, q.Shuffled())
	assert.Equal(t, "A", current(t, q))
	assert.Equal(t, []string{"A", "B", "C"}, names(q.Tracks()))

	empty := newTestQueue()
	empty.SetShuffle(true)
	m = empty.Mark()
	require.NoError(t, empty.Load(tracks("A"), 0))
	empty.Reset(m)
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.Shuffled())
	assert.Equal(t, -1, empty.CurrentIndex())
}

func TestQueue_Clear(t *testing.T) {
	q := newTestQueue()
	require.NoError(t, q.Load(tracks("A", "B"), 1))
	q.SetShuffle(true)
	q.Clear()
	assert.True(t, q.IsEmpty())
	assert.Equal(t, -1, q.CurrentIndex())
	assert.True(t, q.Shuffled(), "shuffle mode survives clear")
	require.ErrorIs(t, q.SetIndex(0), ErrEmptyQueue)
}

func TestRepeatMode(t *testing.T) {
	assert.Equal(t, RepeatAll, RepeatOff.Cycle())
	assert.Equal(t, RepeatOne, RepeatAll.Cycle())
	assert.Equal(t, RepeatOff, RepeatOne.Cycle())

	for in, want := range map[string]RepeatMode{
		"off": RepeatOff, "ALL": RepeatAll, "repeat-one": RepeatOne, "2": RepeatOne, "1": RepeatAll,
	} {
		got, err := ParseRepeatMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseRepeatMode("sometimes")
	require.Error(t, err)
	_, err = ParseRepeatMode("5")
	require.Error(t, err)
}
