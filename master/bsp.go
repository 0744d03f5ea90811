package master

import (
	"github.com/unixpickle/syncmaster/accum"
	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// BSP is the bulk-synchronous mode: every worker's delta for iteration k
// is folded before parameter version k is broadcast, and no worker sees
// version k+1's deltas processed before it has version k.
type BSP struct {
	noReportHandler
}

func (BSP) Name() string { return "bsp" }

// Init registers the each-policy DDeltaAll rendezvous BSP's main loop
// waits on and sets factorDelta to 1/N, unless the kernel's optimizer
// already normalizes and wants the raw summed delta instead.
func (BSP) Init(c *Core) {
	c.RPH.RegisterEach(TagDDeltaAll)
	c.FactorDelta = 1.0
	if c.Kernel.NeedsAveragedDelta() {
		c.FactorDelta = 1.0 / float64(c.N())
	}
}

// HandleDelta applies the delta straight to P (the "apply-each-delta"
// path spec.md §4.4 calls out for BSP — cur is never touched, matching
// S1's "cur = 0" observation) and signals both DDeltaAll and DDeltaAny.
func (BSP) HandleDelta(c *Core, h *simulator.Handle, lid int, d wire.Delta) {
	c.Lock()
	accum.ApplyDelta(c.Parameter, d.Vec, c.FactorDelta)
	c.Unlock()
	c.RecordDeltaApplied(d.DPCount)
	c.RPH.InputDelta(lid)
}

// Process implements wait_all_deltas -> apply + iter++ -> broadcast P ->
// archive; iter advances under the lock, with the parameter snapshot.
func (m BSP) Process(c *Core, h *simulator.Handle) error {
	each := c.RPH.Each(TagDDeltaAll)
	for !c.TerminateCheck() {
		each.WaitAndReset()

		c.Lock()
		iter := c.Iter + 1
		c.Iter = iter
		snap := c.Parameter.Clone()
		c.Unlock()

		wire.Broadcast(h, c.Net, c.OutPort, c.Workers.Ports(), wire.ParameterMsg{Vec: snap})
		if c.Metrics != nil {
			c.Metrics.Iterations.Inc()
		}
		c.MaybeArchive(iter)
	}
	return nil
}
