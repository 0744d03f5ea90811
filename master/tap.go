package master

import (
	"github.com/unixpickle/syncmaster/accum"
	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// TAP is the typical-asynchronous mode: every delta is applied and
// answered immediately, with no barrier between workers.
type TAP struct {
	noReportHandler
}

func (TAP) Name() string { return "tap" }

// Init registers the any-policy DDeltaAny rendezvous and sets factorDelta
// to 1.0 (TAP does not average, per spec.md §4.4).
func (TAP) Init(c *Core) {
	c.RPH.RegisterAny(TagDDeltaAny)
	c.FactorDelta = 1.0
}

// HandleDelta applies the delta immediately, signals DDeltaAny, and
// unicasts the resulting parameter back to the delta's source.
func (TAP) HandleDelta(c *Core, h *simulator.Handle, lid int, d wire.Delta) {
	c.Lock()
	accum.ApplyDelta(c.Parameter, d.Vec, c.FactorDelta)
	snap := c.Parameter.Clone()
	c.Unlock()

	c.RecordDeltaApplied(d.DPCount)
	c.BumpNDelta()
	c.RPH.InputDelta(lid)

	wire.Send(h, c.Net, c.OutPort, c.Workers.Port(lid), wire.ParameterMsg{Vec: snap})
}

// Process tracks the derived iteration clock (floor(nDelta/N)+1) and
// archives whenever it crosses a boundary; there is no synchronization
// barrier.
func (t TAP) Process(c *Core, h *simulator.Handle) error {
	any := c.RPH.Any(TagDDeltaAny)
	lastIter := c.DerivedIter()
	c.SetIter(lastIter)
	for !c.TerminateCheck() {
		any.WaitAndReset()
		newIter := c.DerivedIter()
		if newIter != lastIter {
			lastIter = newIter
			c.SetIter(newIter)
			if c.Metrics != nil {
				c.Metrics.Iterations.Inc()
			}
			c.MaybeArchive(newIter)
		}
	}
	return nil
}
