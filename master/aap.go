package master

import (
	"github.com/unixpickle/syncmaster/accum"
	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// AAP is the aggressive-asynchronous mode: every applied delta triggers an
// immediate echo of the new parameter to a bounded set of peers chosen by
// the receiver ring, rather than a reply to just the delta's source.
type AAP struct {
	noReportHandler
}

func (AAP) Name() string { return "aap" }

// Init registers the any-policy DDeltaAny rendezvous and sets factorDelta
// to 1.0, since AAP is asynchronous and does not average.
func (AAP) Init(c *Core) {
	c.RPH.RegisterAny(TagDDeltaAny)
	c.FactorDelta = 1.0
}

// HandleDelta applies the delta, records its source for the main loop's
// receiver-selection, and signals DDeltaAny. If Config.AapWait is set, it
// also acknowledges the source before returning.
func (AAP) HandleDelta(c *Core, h *simulator.Handle, lid int, d wire.Delta) {
	c.Lock()
	accum.ApplyDelta(c.Parameter, d.Vec, c.FactorDelta)
	c.Unlock()

	c.RecordDeltaApplied(d.DPCount)
	c.LastDeltaSource.Store(int32(lid))
	c.BumpNDelta()
	c.RPH.InputDelta(lid)

	if c.Config.AapWait {
		wire.Send(h, c.Net, c.OutPort, c.Workers.Port(lid), wire.Ready{})
	}
}

// Process implements wait_any_delta -> multicast P to the ring's targets
// for the last delta's source -> derived iter (as TAP).
func (m AAP) Process(c *Core, h *simulator.Handle) error {
	any := c.RPH.Any(TagDDeltaAny)
	lastIter := c.DerivedIter()
	c.SetIter(lastIter)
	for !c.TerminateCheck() {
		any.WaitAndReset()

		source := int(c.LastDeltaSource.Load())
		targets := c.Ring.Targets(source, c.Config.McastParam)
		if len(targets) > 0 {
			c.Lock()
			snap := c.Parameter.Clone()
			c.Unlock()

			ports := make([]*simulator.Port, len(targets))
			for i, lid := range targets {
				ports[i] = c.Workers.Port(lid)
			}
			wire.Multicast(h, c.Net, c.OutPort, ports, wire.ParameterMsg{Vec: snap})
			if c.Sizer != nil {
				c.Sizer.AddParameterSendCount(uint64(len(targets)))
			}
		}

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
