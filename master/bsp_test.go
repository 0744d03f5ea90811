package master

import (
	"testing"
	"time"

	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// S1: BSP, N=2, W=3, factor_delta=0.5 — every worker's delta for iteration
// k is applied before the master broadcasts parameter version k, and the
// broadcast carries the exact averaged sum of both deltas.
func TestBSPRoundAppliesAllDeltasBeforeBroadcast(t *testing.T) {
	c, ports := newTestCore(2, 3, nil)
	c.Mode = BSP{}
	c.Mode.Init(c)
	if c.FactorDelta != 0.5 {
		t.Fatalf("expected factorDelta 0.5, got %v", c.FactorDelta)
	}

	recvA := recvParameter(c.Loop, ports[0])
	recvB := recvParameter(c.Loop, ports[1])

	c.Loop.Go(func(h *simulator.Handle) {
		c.Mode.Process(c, h)
	})

	c.Loop.Go(func(h *simulator.Handle) {
		c.Mode.HandleDelta(c, h, 0, wire.Delta{DPCount: 1, Vec: []float64{1, 0, 0}})
	})
	c.Loop.Go(func(h *simulator.Handle) {
		c.Mode.HandleDelta(c, h, 1, wire.Delta{DPCount: 1, Vec: []float64{0, 2, 0}})
	})

	select {
	case vec := <-recvA:
		if !vecCloseTest(vec, []float64{0.5, 1, 0}) {
			t.Fatalf("unexpected broadcast parameter: %v", vec)
		}
	case <-time.After(time.Second):
		t.Fatal("worker 0 never received broadcast parameter")
	}
	select {
	case vec := <-recvB:
		if !vecCloseTest(vec, []float64{0.5, 1, 0}) {
			t.Fatalf("unexpected broadcast parameter: %v", vec)
		}
	case <-time.After(time.Second):
		t.Fatal("worker 1 never received broadcast parameter")
	}

	if c.Iter != 1 {
		t.Fatalf("expected iter 1 after one BSP round, got %d", c.Iter)
	}
}

// A kernel whose optimizer already normalizes wants the raw summed
// delta, not a further 1/N average.
func TestBSPFactorDeltaUnaveragedWhenKernelOptsOut(t *testing.T) {
	cfg := &Config{NW: 2, TCIter: 1 << 30}
	cfg.applyDefaults()
	loop := simulator.NewEventLoop()
	net := simulator.DirectNetwork{}
	kernel := testKernel{width: 1, noAverage: true}
	c := NewCore(cfg, kernel, loop, net, 2)

	c.Mode = BSP{}
	c.Mode.Init(c)

	if c.FactorDelta != 1.0 {
		t.Fatalf("expected unaveraged factorDelta 1.0, got %v", c.FactorDelta)
	}
}

func vecCloseTest(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		d := a[i] - b[i]
		if d < -1e-9 || d > 1e-9 {
			return false
		}
	}
	return true
}
