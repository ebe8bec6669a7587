package playlist

import (
	"math/rand/v2"
	"testing"

	"pgregory.net/rapid"

	"github.com/llehouerou/wavesd/internal/library"
)

func genTracks(t *rapid.T) []library.Track {
	n := rapid.IntRange(1, 40).Draw(t, "n")
	out := make([]library.Track, n)
	for i := range out {
		out[i] = library.Track{Path: "/t/" + string(rune('a'+i%26)) + string(rune('0'+i/26)) + ".mp3"}
	}
	return out
}

// TestShuffle_IsPermutation checks Shuffle always yields a valid
// permutation with the requested first element.
func TestShuffle_IsPermutation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 200).Draw(t, "n")
		first := rapid.IntRange(-1, n).Draw(t, "first")
		seed := rapid.Uint64().Draw(t, "seed")

		p := Shuffle(n, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), first)
		if !p.Valid(n) {
			t.Fatalf("Shuffle(%d) = %v is not a permutation", n, p)
		}
		if first >= 0 && first < n && p[0] != first {
			t.Fatalf("p[0] = %d, want %d", p[0], first)
		}
	})
}

// TestQueue_ShuffleToggleRestoresOrder checks shuffle on then off
// restores the base order and the current track's index.
func TestQueue_ShuffleToggleRestoresOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ts := genTracks(t)
		start := rapid.IntRange(0, len(ts)-1).Draw(t, "start")
		seed := rapid.Uint64().Draw(t, "seed")

		q := NewQueue(rand.New(rand.NewPCG(seed, 7)))
		if err := q.Load(ts, start); err != nil {
			t.Fatal(err)
		}
		q.SetShuffle(true)
		cur, _ := q.Current()
		if cur.Path != ts[start].Path {
			t.Fatalf("shuffle changed current track")
		}
		q.SetShuffle(false)

		if q.CurrentIndex() != start {
			t.Fatalf("CurrentIndex() = %d, want %d", q.CurrentIndex(), start)
		}
		for i, tr := range q.Tracks() {
			if tr.Path != ts[i].Path {
				t.Fatalf("order differs at %d", i)
			}
		}
	})
}

// TestQueue_OperationsKeepInvariants runs random operation sequences and
// checks the position stays in range and the permutation stays valid.
func TestQueue_OperationsKeepInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := NewQueue(rand.New(rand.NewPCG(1, 1)))
		ts := genTracks(t)
		if err := q.Load(ts, 0); err != nil {
			t.Fatal(err)
		}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for range steps {
			mode := RepeatMode(rapid.IntRange(0, 2).Draw(t, "mode"))
			switch rapid.IntRange(0, 6).Draw(t, "op") {
			case 0:
				_, _ = q.Forward(ManualNext, mode)
			case 1:
				_, _ = q.Forward(TrackEnded, mode)
			case 2:
				_, _ = q.Previous(rapid.Float64Range(0, 10).Draw(t, "elapsed"), 3)
			case 3:
				q.SetShuffle(rapid.Bool().Draw(t, "shuffle"))
			case 4:
				if q.Len() > 0 {
					from := rapid.IntRange(0, q.Len()-1).Draw(t, "from")
					to := rapid.IntRange(0, q.Len()-1).Draw(t, "to")
					before, _ := q.Current()
					if err := q.Reorder(from, to); err != nil {
						t.Fatal(err)
					}
					after, _ := q.Current()
					if before.Path != after.Path {
						t.Fatalf("reorder changed current track")
					}
				}
			case 5:
				if q.Len() > 0 {
					_, _ = q.Remove(rapid.IntRange(0, q.Len()-1).Draw(t, "remove"), mode)
				}
			case 6:
				q.Append(genTracks(t))
			}

			if q.Len() == 0 {
				if q.CurrentIndex() != -1 {
					t.Fatalf("empty queue with position %d", q.CurrentIndex())
				}
				continue
			}
			if q.CurrentIndex() < 0 || q.CurrentIndex() >= q.Len() {
				t.Fatalf("position %d out of [0,%d)", q.CurrentIndex(), q.Len())
			}
			if q.Shuffled() && !q.Permutation().Valid(q.Len()) {
				t.Fatalf("invalid permutation %v", q.Permutation())
			}
		}
	})
}

// TestMove_MatchesRemoveInsert checks move against a naive remove+insert.
func TestMove_MatchesRemoveInsert(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.SliceOfN(rapid.Int(), 1, 30).Draw(t, "s")
		from := rapid.IntRange(0, len(s)-1).Draw(t, "from")
		to := rapid.IntRange(0, len(s)-1).Draw(t, "to")

		want := append([]int(nil), s[:from]...)
		want = append(want, s[from+1:]...)
		want = append(want[:to], append([]int{s[from]}, want[to:]...)...)

		got := append([]int(nil), s...)
		move(got, from, to)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("move(%v, %d, %d) = %v, want %v", s, from, to, got, want)
			}
		}
	})
}
