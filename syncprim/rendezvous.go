// Package syncprim provides the two rendezvous shapes the master's mode
// engines use to coordinate a main loop with a pool of handler goroutines:
// an Each-style countdown that fires once every expected source has
// signaled, and an Any-style latch that fires on the first signal from any
// source. Both are single-producer-consumer on the wait side: exactly one
// goroutine (the main loop) calls Wait, while many goroutines (handlers)
// call Signal concurrently.
package syncprim

import "sync"

// Each waits until exactly one signal has arrived from each of N expected
// sources before it fires. Signaling the same source twice before a reset
// only counts once.
type Each struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	seen    map[int]bool
	fired   bool
}

// NewEach creates an Each rendezvous expecting signals from n distinct
// sources.
func NewEach(n int) *Each {
	e := &Each{n: n, seen: make(map[int]bool, n)}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Signal records that source lid has reported. If this is the last of the n
// expected sources, waiters are woken.
func (e *Each) Signal(lid int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.seen[lid] {
		e.seen[lid] = true
	}
	if len(e.seen) >= e.n {
		e.fired = true
		e.cond.Broadcast()
	}
}

// Wait blocks until every expected source has signaled since the last
// Reset.
func (e *Each) Wait() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for !e.fired {
		e.cond.Wait()
	}
}

// WaitAndReset blocks until fired, then atomically clears the rendezvous so
// it can be reused for the next round.
func (e *Each) WaitAndReset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for !e.fired {
		e.cond.Wait()
	}
	e.resetLocked()
}

// Reset clears any recorded signals without waiting.
func (e *Each) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Each) resetLocked() {
	e.seen = make(map[int]bool, e.n)
	e.fired = false
}

// Count reports how many distinct sources have signaled since the last
// reset.
func (e *Each) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.seen)
}

// Any fires as soon as at least one signal has arrived from any source. It
// also keeps a running count of every signal received, readable via Count.
type Any struct {
	mu      sync.Mutex
	cond    *sync.Cond
	fired   bool
	count   int
}

// NewAny creates an Any rendezvous.
func NewAny() *Any {
	a := &Any{}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// Signal records a signal and wakes any waiter.
func (a *Any) Signal() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	a.fired = true
	a.cond.Broadcast()
}

// Wait blocks until at least one signal has arrived since the last reset.
func (a *Any) Wait() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for !a.fired {
		a.cond.Wait()
	}
}

// WaitAndReset blocks until fired, then clears the latch for reuse.
func (a *Any) WaitAndReset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for !a.fired {
		a.cond.Wait()
	}
	a.fired = false
}

// Reset clears the latch without waiting.
func (a *Any) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fired = false
}

// Count returns the number of signals received since the rendezvous was
// created (never reset by Reset/WaitAndReset).
func (a *Any) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}
