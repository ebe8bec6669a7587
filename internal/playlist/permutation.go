package playlist

import "math/rand/v2"

// Permutation maps play order to base order: p[i] is the base index of
// the track played i-th.
type Permutation []int

// Identity returns the unshuffled permutation of n tracks.
func Identity(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// Shuffle returns a uniform random permutation of n tracks (Fisher–Yates).
// When first is a valid base index it is moved to play position 0.
func Shuffle(n int, rng *rand.Rand, first int) Permutation {
	p := Identity(n)
	for i := n - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	if first >= 0 && first < n {
		at := p.PlayIndex(first)
		p[0], p[at] = p[at], p[0]
	}
	return p
}

// Valid reports whether p is a permutation of 0..n-1.
func (p Permutation) Valid(n int) bool {
	if len(p) != n {
		return false
	}
	seen := make([]bool, n)
	for _, b := range p {
		if b < 0 || b >= n || seen[b] {
			return false
		}
		seen[b] = true
	}
	return true
}

// PlayIndex returns the play position of base index b, or -1.
func (p Permutation) PlayIndex(b int) int {
	for i, v := range p {
		if v == b {
			return i
		}
	}
	return -1
}

// Clone returns a copy of p.
func (p Permutation) Clone() Permutation {
	if p == nil {
		return nil
	}
	return append(Permutation{}, p...)
}

// Move removes the entry at from and reinserts it at to.
func (p Permutation) Move(from, to int) {
	move(p, from, to)
}

// move shifts s[from] to index to, sliding the elements in between.
func move[T any](s []T, from, to int) {
	if from == to {
		return
	}
	v := s[from]
	if from < to {
		copy(s[from:to], s[from+1:to+1])
	} else {
		copy(s[to+1:from+1], s[to:from])
	}
	s[to] = v
}
