package master

import (
	"testing"
	"time"

	"github.com/unixpickle/syncmaster/ring"
	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// S6: AAP multicasts the post-apply parameter to McastParam ring-successors
// of the delta's source rather than broadcasting to every worker, and never
// echoes back to the source itself.
func TestAAPMulticastsToRingTargetsNotSource(t *testing.T) {
	cfg := &Config{NW: 3, McastParam: 1, TCIter: 1 << 30}
	cfg.applyDefaults()
	c, ports := newTestCore(3, 1, cfg)
	c.Ring = ring.NewWorkerRing(3, 8)
	c.Mode = AAP{}
	c.Mode.Init(c)

	recv0 := recvParameter(c.Loop, ports[0])
	recv1 := recvParameter(c.Loop, ports[1])
	recv2 := recvParameter(c.Loop, ports[2])

	type result struct {
		idx int
		vec []float64
	}
	merged := make(chan result, 2)
	go func() { merged <- result{1, <-recv1} }()
	go func() { merged <- result{2, <-recv2} }()

	c.Loop.Go(func(h *simulator.Handle) { c.Mode.Process(c, h) })
	c.Loop.Go(func(h *simulator.Handle) {
		c.Mode.HandleDelta(c, h, 0, wire.Delta{DPCount: 1, Vec: []float64{1}})
	})

	select {
	case r := <-merged:
		if !vecCloseTest(r.vec, []float64{1}) {
			t.Fatalf("unexpected multicast parameter at worker %d: %v", r.idx, r.vec)
		}
	case <-time.After(time.Second):
		t.Fatal("no worker received the multicast parameter (McastParam=1 target)")
	}

	select {
	case r := <-merged:
		t.Fatalf("expected exactly one multicast target (McastParam=1), got a second at worker %d", r.idx)
	case <-time.After(30 * time.Millisecond):
	}

	select {
	case <-recv0:
		t.Fatal("multicast target must not be the delta's own source")
	case <-time.After(30 * time.Millisecond):
	}
}

// AAP's derived clock only advances once every N applied deltas; a single
// delta out of three registered workers must not bump Core.Iter.
func TestAAPIterOnlyAdvancesOnDerivedBoundary(t *testing.T) {
	cfg := &Config{NW: 3, McastParam: 1, TCIter: 1 << 30}
	cfg.applyDefaults()
	c, _ := newTestCore(3, 1, cfg)
	c.Ring = ring.NewWorkerRing(3, 8)
	c.Mode = AAP{}
	c.Mode.Init(c)

	c.Loop.Go(func(h *simulator.Handle) { c.Mode.Process(c, h) })
	c.Loop.Go(func(h *simulator.Handle) {
		c.Mode.HandleDelta(c, h, 0, wire.Delta{DPCount: 1, Vec: []float64{1}})
	})

	time.Sleep(50 * time.Millisecond)
	if c.Iter != 1 {
		t.Fatalf("expected iter to stay at its initial derived value 1 after one of three deltas, got %d", c.Iter)
	}
}
