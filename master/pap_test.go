package master

import (
	"testing"
	"time"

	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// S4: PAP's report stream drives suPap once report_proc_total crosses the
// global batch size, which then triggers a gather_delta round: pull one
// delta from every worker, apply cur, broadcast the result.
func TestPAPBatchThresholdTriggersGatherRound(t *testing.T) {
	cfg := &Config{NW: 2, BatchSize: 2, ReportSize: 1, TCIter: 1 << 30}
	cfg.applyDefaults()
	c, ports := newTestCore(2, 2, cfg)
	c.Mode = NewPAP()
	c.Mode.Init(c)

	recv0 := recvUntilParameter(c.Loop, ports[0])
	recv1 := recvUntilParameter(c.Loop, ports[1])

	c.Loop.Go(func(h *simulator.Handle) { c.Mode.Process(c, h) })

	// Neither report alone reaches the batch size of 2.
	c.Mode.HandleReport(c, nil, 0, wire.Report{Count: 1})
	time.Sleep(10 * time.Millisecond)
	if c.ReportProcTotal != 1 {
		t.Fatalf("expected report_proc_total 1, got %d", c.ReportProcTotal)
	}

	// The second report crosses the threshold and fires suPap.
	c.Mode.HandleReport(c, nil, 1, wire.Report{Count: 1})

	// Each worker now owes the master a delta in response to the RDelta
	// pull the gather round issues.
	c.Loop.Go(func(h *simulator.Handle) {
		c.Mode.HandleDelta(c, h, 0, wire.Delta{DPCount: 1, Vec: []float64{2, 0}})
	})
	c.Loop.Go(func(h *simulator.Handle) {
		c.Mode.HandleDelta(c, h, 1, wire.Delta{DPCount: 1, Vec: []float64{0, 4}})
	})

	select {
	case vec := <-recv0:
		if !vecCloseTest(vec, []float64{2, 4}) {
			t.Fatalf("unexpected gather-round parameter: %v", vec)
		}
	case <-time.After(time.Second):
		t.Fatal("worker 0 never received the gather-round parameter broadcast")
	}
	<-recv1

	if c.Iter != 1 {
		t.Fatalf("expected iter 1 after one PAP round, got %d", c.Iter)
	}
	if c.ReportProcTotal != 0 {
		t.Fatalf("expected report_proc_total reset to 0 after crossing, got %d", c.ReportProcTotal)
	}
}

// PAP is progressive-asynchronous, not synchronous: it never averages a
// gathered round's deltas by N, regardless of what the kernel wants.
func TestPAPFactorDeltaAlwaysUnaveraged(t *testing.T) {
	cfg := &Config{NW: 3, BatchSize: 3, TCIter: 1 << 30}
	cfg.applyDefaults()
	c, _ := newTestCore(3, 1, cfg)
	c.Mode = NewPAP()
	c.Mode.Init(c)

	if c.FactorDelta != 1.0 {
		t.Fatalf("expected PAP factorDelta 1.0, got %v", c.FactorDelta)
	}
}
