package master

import (
	"sync"
	"time"

	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
	"k8s.io/klog/v2"
)

// PAP is the progressive-asynchronous mode: a Report telemetry stream drives
// an adaptive global batch size, and a gather_delta pull phase collects one
// delta from every worker per round instead of waiting on a fixed cadence.
//
// PAP carries mutable state of its own (the current global batch size, the
// time of the last delta) beyond what Core holds, so unlike the
// other six modes it is used through a pointer, constructed once per run via
// NewPAP.
type PAP struct {
	mu              sync.Mutex
	globalBatchSize int
	lastDeltaAt     time.Time
}

// NewPAP builds a fresh PAP mode engine.
func NewPAP() *PAP {
	return &PAP{}
}

func (m *PAP) Name() string { return "pap" }

// Init registers the each-policy gather_delta barrier and the any-policy
// suPap batch-threshold rendezvous, and seeds the global batch size from
// config.
func (m *PAP) Init(c *Core) {
	c.RPH.RegisterEach(TagDDeltaAll)
	c.RPH.RegisterAny(TagPapBatch)
	c.FactorDelta = 1.0

	m.mu.Lock()
	m.globalBatchSize = c.Config.BatchSize
	m.lastDeltaAt = time.Now()
	m.mu.Unlock()
}

// HandleDelta folds the delta into cur, signals DDeltaAll (the gather_delta
// barrier), and credits the gap since the previous delta to the sizer's
// mt_delta_sum timing sum.
func (m *PAP) HandleDelta(c *Core, h *simulator.Handle, lid int, d wire.Delta) {
	m.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(m.lastDeltaAt).Seconds()
	m.lastDeltaAt = now
	m.mu.Unlock()
	if c.Sizer != nil && elapsed > 0 {
		c.Sizer.RecordDeltaTiming(elapsed)
	}

	c.Lock()
	c.Accum.Accumulate(d.Vec, d.DPCount)
	c.Unlock()
	c.RecordDeltaApplied(d.DPCount)
	c.RPH.InputDelta(lid)
}

// HandleReport updates the worker's telemetry, folds its datapoint-count
// delta into report_proc_total, and fires suPap once the total crosses the
// current global batch size. The counter resets to zero on crossing (rather
// than carrying a remainder) so successive rounds always measure a full
// batch of newly-reported datapoints.
func (m *PAP) HandleReport(c *Core, h *simulator.Handle, lid int, r wire.Report) {
	if c.Sizer != nil {
		c.Sizer.SetWorkerTelemetry(lid, r.TDatapoint, r.TDelta, r.TReport)
	}
	if c.Sizer != nil && r.TReport > 0 {
		c.Sizer.RecordReportTiming(r.TReport)
	}

	count := uint64(r.Count)

	c.LockReportProc()
	prev := c.ReportProc[lid]
	var delta uint64
	if count > prev {
		delta = count - prev
	}
	c.ReportProc[lid] = count
	c.ReportProcTotal += delta

	m.mu.Lock()
	gbs := m.globalBatchSize
	m.mu.Unlock()

	crossed := gbs > 0 && c.ReportProcTotal >= uint64(gbs)
	if crossed {
		c.ReportProcTotal = 0
	}
	c.UnlockReportProc()

	if crossed {
		c.RPH.Input(TagPapBatch, lid)
	}
}

// Process implements suPap.wait_and_reset -> (dynamic resize) ->
// gather_delta -> apply + iter++ -> broadcast P -> archive, per spec.md §4.4, with
// an optional probe sub-phase run once before the steady-state loop begins.
func (m *PAP) Process(c *Core, h *simulator.Handle) error {
	if c.Config.PapSearchBatchSize {
		m.runProbe(c, h)
	}

	batch := c.RPH.Any(TagPapBatch)
	deltaBarrier := c.RPH.Each(TagDDeltaAll)

	for !c.TerminateCheck() {
		batch.WaitAndReset()

		if c.Config.PapDynamicBatchSize && c.Sizer != nil {
			localReportSize := c.Config.ReportSize
			if localReportSize <= 0 {
				localReportSize = 1
			}
			gbs := c.Sizer.EstimateGlobalBatchSize(c.N(), localReportSize)
			m.mu.Lock()
			m.globalBatchSize = gbs
			m.mu.Unlock()
			if c.Metrics != nil {
				c.Metrics.GlobalBatchSize.Set(float64(gbs))
				c.Metrics.LocalReportSize.Set(float64(c.Sizer.EstimateLocalReportSize(false, 0, gbs)))
			}
		}

		newIter, err := m.gatherApplyBroadcast(c, h, deltaBarrier)
		if err != nil {
			return err
		}
		if c.Metrics != nil {
			c.Metrics.Iterations.Inc()
		}
		c.MaybeArchive(newIter)
	}
	return nil
}

// gatherApplyBroadcast runs one gather_delta round: pull one delta from
// every worker, apply cur, broadcast the new parameter.
func (m *PAP) gatherApplyBroadcast(c *Core, h *simulator.Handle, deltaBarrier interface {
	WaitAndReset()
}) (uint64, error) {
	wire.Broadcast(h, c.Net, c.OutPort, c.Workers.Ports(), wire.RDelta{})
	deltaBarrier.WaitAndReset()

	c.Lock()
	c.Accum.ApplyCur(c.Parameter, c.FactorDelta)
	c.Accum.Clear()
	newIter := c.Iter + 1
	c.Iter = newIter
	snap := c.Parameter.Clone()
	c.Unlock()

	wire.Broadcast(h, c.Net, c.OutPort, c.Workers.Ports(), wire.ParameterMsg{Vec: snap})
	if c.Sizer != nil {
		c.Sizer.AddParameterSendCount(uint64(c.N()))
	}
	return newIter, nil
}

// runProbe implements pap2, the halving/doubling search for a global batch
// size that minimizes f(k) = g(k)/(wtd/N + wtu/k), searching until n_point
// crosses probeRatio*n_point_total.
//
// g(k) = loss_global/n_point is out of scope for this module (loss
// aggregation is an explicit non-goal — no component ever computes a loss
// value), so g(k) is approximated here as a constant: the search therefore
// finds the k that maximizes the overhead term wtd/N + wtu/k alone. This is
// a documented simplification, not a faithful reproduction of the original
// loss-driven search; DESIGN.md records the reasoning. Each trial resets
// the parameter to initP, and the search stops on the k/2-below-analytic
// rule or the probeRatio-of-n_point_total rule. Each trial's local report
// size, candidate/(2N), is computed but not sent to workers.
func (m *PAP) runProbe(c *Core, h *simulator.Handle) {
	if c.Config.ProbeRatio <= 0 || c.Sizer == nil {
		return
	}
	nPointTotal := c.DatasetTotal()
	if nPointTotal == 0 {
		return
	}
	localReportSize := c.Config.ReportSize
	if localReportSize <= 0 {
		localReportSize = 1
	}
	analytic := c.Sizer.EstimateGlobalBatchSize(c.N(), localReportSize)
	if analytic <= 0 {
		return
	}

	deltaBarrier := c.RPH.Each(TagDDeltaAll)
	target := uint64(c.Config.ProbeRatio * float64(nPointTotal))

	k := m.currentGBS()
	minFK := m.probeFK(c, k)
	nProbed := uint64(0)
	direction := 0 // 0 undecided, -1 chose to try halving, +1 chose doubling

	for nProbed < target {
		var candidate int
		if direction <= 0 {
			candidate = k / 2
		} else {
			candidate = k * 2
		}
		if candidate <= 0 {
			break
		}
		if direction <= 0 && candidate < analytic {
			klog.V(2).Infof("pap probe: candidate %d below analytic minimum %d, stopping", candidate, analytic)
			break
		}

		c.Lock()
		copy(c.Parameter, c.InitP())
		c.Unlock()

		localSize := candidate / (2 * c.N())
		if localSize <= 0 {
			localSize = 1
		}
		m.setGBS(candidate)

		snap := c.SnapshotParameter()
		wire.Broadcast(h, c.Net, c.OutPort, c.Workers.Ports(), wire.ParameterMsg{Vec: snap})

		newIter, err := m.gatherApplyBroadcast(c, h, deltaBarrier)
		if err != nil {
			return
		}
		c.MaybeArchive(newIter)
		nProbed += uint64(candidate)

		fk := m.probeFK(c, candidate)
		if fk < minFK {
			minFK = fk
			k = candidate
			if direction == 0 {
				direction = -1
			}
			continue
		}
		if direction == 0 {
			direction = 1
			continue
		}
		break
	}

	m.setGBS(k)
}

func (m *PAP) currentGBS() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalBatchSize
}

func (m *PAP) setGBS(k int) {
	m.mu.Lock()
	m.globalBatchSize = k
	m.mu.Unlock()
}

// probeFK evaluates the overhead half of f(k) with g(k) held constant (see
// runProbe's doc comment): 1 / (wtd/N + wtu/k).
func (m *PAP) probeFK(c *Core, k int) float64 {
	if k <= 0 {
		return 0
	}
	localReportSize := c.Config.ReportSize
	if localReportSize <= 0 {
		localReportSize = 1
	}
	wtu := c.Sizer.EstimateLocalReportSize(true, 0, k)
	n := float64(c.N())
	denom := float64(wtu)/n + 1.0/float64(k)
	if denom <= 0 {
		return 0
	}
	return 1.0 / denom
}
