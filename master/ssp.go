package master

import (
	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// SSP is the stale-synchronous mode: the master advances iter only once
// every worker's own delta stream has reached at least the target
// iteration, but a fast worker's excess deltas are held in the
// accumulator's staleness ring rather than blocking it.
type SSP struct {
	noReportHandler
}

func (SSP) Name() string { return "ssp" }

// Init starts iter at 1 (matching spec.md S2's numbering, where a
// worker's first delta carries delta_iter=1 and folds directly into cur)
// and registers the each-policy rendezvous the main loop waits on.
func (SSP) Init(c *Core) {
	c.RPH.RegisterEach(TagDDeltaAll)
	c.FactorDelta = 1.0
	c.SetIter(1)
}

// HandleDelta increments the worker's own delta counter and folds the
// delta into cur if the counter has just reached the current target
// iteration, or into the staleness ring otherwise.
func (SSP) HandleDelta(c *Core, h *simulator.Handle, lid int, d wire.Delta) {
	c.RecordDeltaApplied(d.DPCount)

	c.LockReportProc()
	c.DeltaIter[lid]++
	di := c.DeltaIter[lid]
	c.UnlockReportProc()

	c.Lock()
	iter := c.Iter
	if di == iter {
		c.Accum.Accumulate(d.Vec, d.DPCount)
		c.Unlock()
		c.RPH.Input(TagDDeltaAll, lid)
		return
	}
	offset := int(di - iter)
	c.Accum.AccumulateNext(offset, d.Vec, d.DPCount)
	c.Unlock()
}

// Process implements: wait until every worker has reached the target
// iteration, apply cur, shift the staleness ring, advance iter, broadcast.
// After advancing, workers whose delta stream already reached the new
// target (their excess was folded straight into what is now cur via
// Shift) are credited immediately, so the rendezvous does not wait a
// second time for a signal that already happened.
func (m SSP) Process(c *Core, h *simulator.Handle) error {
	each := c.RPH.Each(TagDDeltaAll)
	for !c.TerminateCheck() {
		each.WaitAndReset()

		c.Lock()
		c.Accum.ApplyCur(c.Parameter, c.FactorDelta)
		c.Accum.Shift()
		newIter := c.Iter + 1
		c.Iter = newIter
		snap := c.Parameter.Clone()
		c.Unlock()

		c.LockReportProc()
		for lid := 0; lid < c.N(); lid++ {
			if c.DeltaIter[lid] >= newIter {
				each.Signal(lid)
			}
		}
		c.UnlockReportProc()

		wire.Broadcast(h, c.Net, c.OutPort, c.Workers.Ports(), wire.ParameterMsg{Vec: snap})
		if c.Metrics != nil {
			c.Metrics.Iterations.Inc()
		}
		c.MaybeArchive(newIter)
	}
	return nil
}
