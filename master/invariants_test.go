package master

import (
	"testing"
	"time"

	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// Invariant 1: Core.Iter only ever increases, one round at a time, and
// never skips or repeats a value across consecutive BSP rounds.
func TestInvariantIterMonotonicAcrossRounds(t *testing.T) {
	c, ports := newTestCore(2, 1, nil)
	c.Mode = BSP{}
	c.Mode.Init(c)
	c.Loop.Go(func(h *simulator.Handle) { c.Mode.Process(c, h) })

	if c.Iter != 0 {
		t.Fatalf("expected initial iter 0, got %d", c.Iter)
	}

	for round := uint64(1); round <= 3; round++ {
		recv0 := recvParameter(c.Loop, ports[0])
		recv1 := recvParameter(c.Loop, ports[1])

		c.Loop.Go(func(h *simulator.Handle) {
			c.Mode.HandleDelta(c, h, 0, wire.Delta{DPCount: 1, Vec: []float64{1}})
		})
		c.Loop.Go(func(h *simulator.Handle) {
			c.Mode.HandleDelta(c, h, 1, wire.Delta{DPCount: 1, Vec: []float64{1}})
		})

		select {
		case <-recv0:
		case <-time.After(time.Second):
			t.Fatalf("round %d: worker 0 never received broadcast", round)
		}
		<-recv1

		if c.Iter != round {
			t.Fatalf("expected iter %d after round %d, got %d", round, round, c.Iter)
		}
	}
}

// Invariant: BSP's barrier fires only once every registered worker has
// contributed exactly one delta for the round -- a lone delta must not
// trigger a broadcast.
func TestInvariantBSPRequiresADeltaFromEveryWorker(t *testing.T) {
	c, ports := newTestCore(2, 1, nil)
	c.Mode = BSP{}
	c.Mode.Init(c)
	c.Loop.Go(func(h *simulator.Handle) { c.Mode.Process(c, h) })

	recv0 := recvParameter(c.Loop, ports[0])

	c.Loop.Go(func(h *simulator.Handle) {
		c.Mode.HandleDelta(c, h, 0, wire.Delta{DPCount: 1, Vec: []float64{1}})
	})

	select {
	case <-recv0:
		t.Fatal("broadcast fired before every worker contributed a delta")
	case <-time.After(30 * time.Millisecond):
	}
	if c.Iter != 0 {
		t.Fatalf("expected iter to stay 0 with only one of two deltas in, got %d", c.Iter)
	}
}

// Invariant: a delta's fold into the accumulator/parameter and its
// worker's rendezvous signal are both visible (or neither is) by the time
// HandleDelta returns -- there is no window where a round's barrier fires
// on a signal whose corresponding data hasn't landed yet, since both are
// performed under the same Core lock/RPH call before HandleDelta returns.
func TestInvariantDeltaApplyPrecedesBarrierSignal(t *testing.T) {
	c, ports := newTestCore(2, 1, nil)
	c.Mode = BSP{}
	c.Mode.Init(c)
	c.Loop.Go(func(h *simulator.Handle) { c.Mode.Process(c, h) })

	recv0 := recvParameter(c.Loop, ports[0])
	recv1 := recvParameter(c.Loop, ports[1])

	c.Mode.HandleDelta(c, nil, 0, wire.Delta{DPCount: 1, Vec: []float64{3}})
	c.Mode.HandleDelta(c, nil, 1, wire.Delta{DPCount: 1, Vec: []float64{5}})

	select {
	case vec := <-recv0:
		if !vecCloseTest(vec, []float64{4}) {
			t.Fatalf("broadcast parameter missing a fold applied before its signal: %v", vec)
		}
	case <-time.After(time.Second):
		t.Fatal("worker 0 never received the round's broadcast")
	}
	<-recv1
}
