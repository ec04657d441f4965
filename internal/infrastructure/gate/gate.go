// Package gate provides a single-slot, non-reentrant, non-queueing lock.
package gate

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate admits one holder at a time. TryEnter never blocks: a second caller is
// turned away until the holder calls Leave.
type Gate struct {
	sem  *semaphore.Weighted
	held atomic.Bool
}

func New() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

func (g *Gate) TryEnter() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.held.Store(true)
	return true
}

func (g *Gate) Leave() {
	g.held.Store(false)
	g.sem.Release(1)
}

// Busy reports whether the gate is currently held. It never touches the
// semaphore, so it cannot turn away a concurrent TryEnter.
func (g *Gate) Busy() bool {
	return g.held.Load()
}
