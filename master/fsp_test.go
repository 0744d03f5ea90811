package master

import (
	"testing"
	"time"

	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// FSP's round pauses every worker, waits for one delta from each, applies
// the 1/N-weighted average, and broadcasts the result -- a synchronous
// barrier paced by an interval estimator rather than run continuously.
func TestFSPRoundGatesOnPauseAckAndDeltaBarrier(t *testing.T) {
	cfg := &Config{NW: 2, IntervalParam: 0.001, MinInterval: 0.001, MaxInterval: 0.001, TCIter: 1 << 30}
	cfg.applyDefaults()
	c, ports := newTestCore(2, 2, cfg)
	c.Mode = FSP{}
	c.Mode.Init(c)

	recv0 := recvUntilParameter(c.Loop, ports[0])
	recv1 := recvUntilParameter(c.Loop, ports[1])

	c.Loop.Go(func(h *simulator.Handle) { c.Mode.Process(c, h) })

	// Workers ack the pause request before reporting their delta.
	c.RPH.Input(TagTrainPauseAck, 0)
	c.RPH.Input(TagTrainPauseAck, 1)

	c.Loop.Go(func(h *simulator.Handle) {
		c.Mode.HandleDelta(c, h, 0, wire.Delta{DPCount: 1, Vec: []float64{2, 0}})
	})
	c.Loop.Go(func(h *simulator.Handle) {
		c.Mode.HandleDelta(c, h, 1, wire.Delta{DPCount: 1, Vec: []float64{0, 4}})
	})

	select {
	case vec := <-recv0:
		if !vecCloseTest(vec, []float64{1, 2}) {
			t.Fatalf("unexpected FSP round parameter: %v", vec)
		}
	case <-time.After(time.Second):
		t.Fatal("worker 0 never received the FSP round broadcast")
	}
	<-recv1

	if c.Iter != 1 {
		t.Fatalf("expected iter 1 after one FSP round, got %d", c.Iter)
	}
}
