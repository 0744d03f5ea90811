package master

import (
	"time"

	"github.com/unixpickle/syncmaster/interval"
	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// FSP is the flexible-synchronous mode: an interval estimator paces how
// long the master waits between synchronization rounds, pausing workers
// for the barrier rather than running one continuously like BSP.
type FSP struct {
	noReportHandler
}

func (FSP) Name() string { return "fsp" }

// Init registers the each-policy DDeltaAll rendezvous the barrier waits
// on and sets factorDelta to 1/N, unless the kernel's optimizer already
// normalizes and wants the raw summed delta instead.
func (FSP) Init(c *Core) {
	c.RPH.RegisterEach(TagDDeltaAll)
	c.RPH.RegisterEach(TagTrainPauseAck)
	c.FactorDelta = 1.0
	if c.Kernel.NeedsAveragedDelta() {
		c.FactorDelta = 1.0 / float64(c.N())
	}
	if c.Interval == nil {
		c.Interval = interval.NewThroughputEstimator(c.Config.IntervalParam, c.Config.MinInterval, c.Config.MaxInterval)
	}
}

// HandleDelta folds the delta into cur and signals DDeltaAll.
func (FSP) HandleDelta(c *Core, h *simulator.Handle, lid int, d wire.Delta) {
	c.Lock()
	c.Accum.Accumulate(d.Vec, d.DPCount)
	c.Unlock()
	c.RecordDeltaApplied(d.DPCount)
	c.RPH.InputDelta(lid)
}

// Process implements the sleep -> pause-barrier -> delta-barrier ->
// apply + iter++ -> broadcast -> estimator feedback -> clear -> archive
// loop of spec.md §4.4 (iter advances under the lock, before the broadcast).
func (m FSP) Process(c *Core, h *simulator.Handle) error {
	deltaBarrier := c.RPH.Each(TagDDeltaAll)
	pauseAck := c.RPH.Each(TagTrainPauseAck)

	for !c.TerminateCheck() {
		time.Sleep(time.Duration(c.Interval.Interval() * float64(time.Second)))

		wire.Broadcast(h, c.Net, c.OutPort, c.Workers.Ports(), wire.TrainPause{})
		pauseAck.WaitAndReset()

		syncStart := time.Now()
		deltaBarrier.WaitAndReset()
		syncTime := time.Since(syncStart).Seconds()

		c.Lock()
		c.Accum.ApplyCur(c.Parameter, c.FactorDelta)
		curDP := c.Accum.CurDP()
		curSnapshot := append([]float64(nil), c.Accum.Cur()...)
		usedInterval := c.Interval.Interval()
		newIter := c.Iter + 1
		c.Iter = newIter
		snap := c.Parameter.Clone()
		c.Unlock()

		wire.Broadcast(h, c.Net, c.OutPort, c.Workers.Ports(), wire.ParameterMsg{Vec: snap})

		wallTime := time.Since(syncStart).Seconds()
		c.Interval.Update(curSnapshot, usedInterval, float64(curDP), syncTime, wallTime)

		c.Lock()
		c.Accum.Clear()
		c.Unlock()

		if c.Metrics != nil {
			c.Metrics.Iterations.Inc()
		}
		c.MaybeArchive(newIter)
	}
	return nil
}
