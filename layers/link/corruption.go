package link

import (
	"math/rand"
	"sync"
	"time"
)

type (
	// Corrupter decides whether an outgoing frame is marked as corrupted.
	// It is consulted once per physical transmission attempt.
	Corrupter interface {
		Corrupt(frame Frame) bool
	}

	// CorrupterFunc adapts a function to the Corrupter interface.
	CorrupterFunc func(frame Frame) bool

	bernoulliCorrupter struct {
		p   float64
		mu  sync.Mutex
		rnd *rand.Rand
	}
)

// NeverCorrupt is the Corrupter used for a zero corruption probability.
var NeverCorrupt Corrupter = CorrupterFunc(func(Frame) bool { return false })

func (f CorrupterFunc) Corrupt(frame Frame) bool {
	return f(frame)
}

// NewBernoulliCorrupter creates a Corrupter that flags each frame as
// corrupted with probability p, independently of any other frame.
// A zero seed seeds the generator from the clock.
func NewBernoulliCorrupter(p float64, seed int64) Corrupter {
	if p <= 0 {
		return NeverCorrupt
	}
	if p > 1 {
		p = 1
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &bernoulliCorrupter{
		p:   p,
		rnd: rand.New(rand.NewSource(seed)),
	}
}

func (b *bernoulliCorrupter) Corrupt(Frame) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rnd.Float64() < b.p
}
