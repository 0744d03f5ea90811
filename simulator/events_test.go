package simulator

import (
	"testing"
	"time"
)

// dispatchPool (master/dispatch.go) is the production consumer of Poll: a
// fixed pool of workers all Poll the same job stream, and submit() hands
// each job to DeliverNow so the pool, not the caller, decides which idle
// worker picks it up. These tests exercise that Poll/deliver shape through
// zero-delay Schedule, rather than the general virtual-time ordering the
// mode engines never rely on.

func TestEventLoopDeliversScheduledMessage(t *testing.T) {
	loop := NewEventLoop()
	jobs := loop.Stream()
	received := make(chan interface{}, 1)
	loop.Go(func(h *Handle) {
		received <- h.Poll(jobs).Message
	})
	loop.Go(func(h *Handle) {
		h.Schedule(jobs, "job-1", 0)
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	if got := <-received; got != "job-1" {
		t.Errorf("expected job-1, got %v", got)
	}
}

// TestEventLoopPoolPicksAnyIdleWorker mirrors dispatchPool's shape: several
// Goroutines Poll the same stream, and every submitted job must land on
// exactly one of them, in some order — the pool doesn't care which.
func TestEventLoopPoolPicksAnyIdleWorker(t *testing.T) {
	const workers = 3
	seen := map[[workers]int]bool{}
	for trial := 0; trial < 2000; trial++ {
		loop := NewEventLoop()
		jobs := loop.Stream()
		var landed [workers]int
		for w := 0; w < workers; w++ {
			idx := w
			loop.Go(func(h *Handle) {
				landed[idx] = h.Poll(jobs).Message.(int)
			})
		}
		loop.Go(func(h *Handle) {
			for job := 1; job <= workers; job++ {
				h.Schedule(jobs, job, 0)
			}
		})
		if err := loop.Run(); err != nil {
			t.Fatal(err)
		}
		seen[landed] = true
	}
	// 3! possible worker/job pairings; anything less means deliver()'s
	// shuffle isn't actually randomizing which idle Handle wins.
	if len(seen) != 6 {
		t.Errorf("expected 6 possible worker/job pairings, saw %d", len(seen))
	}
}

// TestEventLoopQueuesBeforeAnyoneIsPolling covers the case DeliverNow also
// depends on: a message scheduled for a stream nobody is polling yet must
// sit in that stream's pending queue until a Handle polls it, not get lost.
func TestEventLoopQueuesBeforeAnyoneIsPolling(t *testing.T) {
	loop := NewEventLoop()
	early := loop.Stream()
	late := loop.Stream()
	result := make(chan interface{}, 1)

	loop.Go(func(h *Handle) {
		h.Poll(early)
		result <- h.Poll(late).Message
	})
	loop.Go(func(h *Handle) {
		h.Schedule(late, "queued-early", 3.0)
		h.Sleep(2)
		h.Schedule(early, "unblock", 7.0)
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	if val := <-result; val != "queued-early" {
		t.Errorf("expected queued-early, got %v", val)
	}
}

// TestEventLoopDetectsDeadlock covers Run's error return: two Handles
// waiting on each other's timers with no path forward must fail loudly
// rather than hang, since a production run has no operator watching the
// virtual clock to notice.
func TestEventLoopDetectsDeadlock(t *testing.T) {
	loop := NewEventLoop()
	stream1 := loop.Stream()
	stream2 := loop.Stream()

	loop.Go(func(h *Handle) {
		h.Poll(stream1)
		h.Schedule(stream2, "unreachable", 0)
	})
	loop.Go(func(h *Handle) {
		time.Sleep(time.Millisecond * 50)
		h.Poll(stream2)
		h.Schedule(stream1, "unreachable", 0)
	})

	if loop.Run() == nil {
		t.Error("expected a deadlock error, got nil")
	}
}
