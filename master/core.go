// Package master implements the coordination engine: the reply-handler
// registry, per-worker dispatch, the seven mode engines, and the
// orchestrator that drives a training run from worker roster to shutdown.
package master

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unixpickle/syncmaster/accum"
	"github.com/unixpickle/syncmaster/archiver"
	"github.com/unixpickle/syncmaster/interval"
	"github.com/unixpickle/syncmaster/model"
	"github.com/unixpickle/syncmaster/ring"
	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/sizer"
	"github.com/unixpickle/syncmaster/workermap"
)

// Core owns every piece of mutable state a mode engine touches: the
// parameter, the accumulator, per-worker telemetry, and the collaborators
// (transport, worker map, archiver, sizer, interval estimator, receiver
// ring) that the mode engines and orchestrator drive.
type Core struct {
	Config *Config
	Kernel model.Kernel

	Loop    *simulator.EventLoop
	Net     simulator.Network
	Workers *workermap.WorkerMap
	Node    *simulator.Node
	OutPort *simulator.Port

	// mbfd guards Parameter and Accumulator together, plus Iter whenever a
	// handler reads it for routing decisions (SSP).
	mbfd        sync.Mutex
	Parameter   model.Parameter
	Accum       *accum.Accumulator
	Iter        uint64
	FactorDelta float64

	// DerivedIter backs TAP/SAP/AAP's "iter := nDelta/N + 1" clock; it is
	// updated with atomic adds off the critical path.
	nDelta atomic.Uint64

	// mReportProc guards DeltaIter and ReportProc; the Wt* telemetry
	// slices need no lock (single writer per index, main-loop-only reads).
	mReportProc sync.Mutex
	DeltaIter   []uint64
	ReportProc  []uint64

	WtDatapoint []float64
	WtDelta     []float64
	WtReport    []float64

	ReportProcTotal uint64

	Sizer    *sizer.Sizer
	Interval interval.Estimator
	Ring     *ring.WorkerRing
	Archiver *archiver.Archiver
	Metrics  *Metrics

	RPH  *replyRegistry
	Mode Mode

	pool *dispatchPool

	LastDeltaSource atomic.Int32

	trainStart time.Time

	initP model.Parameter

	mOrch        sync.Mutex
	onlineLIDs   map[int]bool
	datasetNX    uint64
	datasetNY    uint64
	datasetTotal uint64
	datasetSeen  int
	dparamAccum  model.Parameter
	dparamSeen   int

	fatalErr error
}

// NewCore builds a Core for n workers around a parameter of the given
// width. Mode-specific fields are wired once the mode is known: Sizer and
// Ring by NewModeForConfig, Interval by FSP.Init.
func NewCore(cfg *Config, kernel model.Kernel, loop *simulator.EventLoop, net simulator.Network, n int) *Core {
	node := simulator.NewNode()
	return &Core{
		Config:      cfg,
		Kernel:      kernel,
		Loop:        loop,
		Net:         net,
		Node:        node,
		OutPort:     node.Port(loop),
		Workers:     workermap.New(n),
		Accum:       accum.New(kernel.Width()),
		DeltaIter:   make([]uint64, n),
		ReportProc:  make([]uint64, n),
		WtDatapoint: make([]float64, n),
		WtDelta:     make([]float64, n),
		WtReport:    make([]float64, n),
		RPH:         newReplyRegistry(n),
		pool:        newDispatchPool(loop, cfg.DispatchPoolSize),
	}
}

// N returns the number of workers registered so far (zero before Connect).
func (c *Core) N() int {
	return c.Workers.N()
}

// Lock/Unlock expose mbfd to mode engines that need to hold it across
// several accumulator/parameter operations at once.
func (c *Core) Lock()   { c.mbfd.Lock() }
func (c *Core) Unlock() { c.mbfd.Unlock() }

// LockReportProc/UnlockReportProc expose mReportProc, the lock guarding
// DeltaIter and ReportProc, to mode engines (SSP's staleness bookkeeping,
// PAP's report-batch accounting).
func (c *Core) LockReportProc()   { c.mReportProc.Lock() }
func (c *Core) UnlockReportProc() { c.mReportProc.Unlock() }

// SnapshotParameter clones the parameter under mbfd, for handoff to the
// archiver or to a DParameter broadcast that must not race the main loop.
func (c *Core) SnapshotParameter() model.Parameter {
	c.mbfd.Lock()
	defer c.mbfd.Unlock()
	return c.Parameter.Clone()
}

// CaptureInitP records the parameter at training start, resolving spec.md
// §9's Open Question about when PAP's probe-phase reset target is
// captured: at the moment training begins (after orchestrator phase 5),
// not at process start, since that is the first point a fully
// data-driven-initialized parameter exists.
func (c *Core) CaptureInitP() {
	c.mbfd.Lock()
	defer c.mbfd.Unlock()
	c.initP = c.Parameter.Clone()
}

// InitP returns the captured start-of-training parameter.
func (c *Core) InitP() model.Parameter {
	return c.initP
}

// SetIter overwrites Iter under mbfd, used by the derived-clock modes
// (TAP/SAP/AAP) whose iteration counter is computed from nDelta rather
// than incremented one at a time.
func (c *Core) SetIter(v uint64) {
	c.mbfd.Lock()
	c.Iter = v
	c.mbfd.Unlock()
}

// BumpNDelta advances the derived-iteration delta counter used by
// TAP/SAP/AAP and returns the new total.
func (c *Core) BumpNDelta() uint64 {
	return c.nDelta.Add(1)
}

// DerivedIter computes floor(nDelta/N) + 1, the TAP/SAP/AAP iteration
// clock.
func (c *Core) DerivedIter() uint64 {
	n := uint64(c.N())
	if n == 0 {
		return 1
	}
	return c.nDelta.Load()/n + 1
}

// StartTrainTimer resets the wall-clock reference terminateCheck's
// tcTime bound is measured against.
func (c *Core) StartTrainTimer() {
	c.trainStart = time.Now()
}

// TrainElapsed returns seconds since StartTrainTimer.
func (c *Core) TrainElapsed() time.Duration {
	return time.Since(c.trainStart)
}

// TerminateCheck implements spec.md §4.4's termination predicate: true once
// iter has passed tcIter or the elapsed training time has passed tcTime.
func (c *Core) TerminateCheck() bool {
	c.mbfd.Lock()
	iter := c.Iter
	c.mbfd.Unlock()

	if c.Config.TCIter > 0 && iter > uint64(c.Config.TCIter) {
		return true
	}
	if c.Config.TCTime > 0 && c.TrainElapsed().Seconds() > c.Config.TCTime {
		return true
	}
	return false
}

// DatasetTotal returns the total datapoint count accumulated across every
// worker's Dataset report during orchestration phase 3.
func (c *Core) DatasetTotal() uint64 {
	c.mOrch.Lock()
	defer c.mOrch.Unlock()
	return c.datasetTotal
}

// MaybeArchive snapshots the parameter and forwards it to the Archiver's
// gate, a no-op if the archiver was not configured.
func (c *Core) MaybeArchive(iter uint64) {
	if c.Archiver == nil {
		return
	}
	snap := c.SnapshotParameter()
	c.Archiver.MaybeArchive(int64(iter), c.TrainElapsed().Seconds(), snap)
}

// RecordDeltaApplied credits a delta of dpCount datapoints to the
// deltas-applied and datapoints-total counters, a no-op if Metrics is nil.
// Called from every mode's HandleDelta at the point the delta is folded
// into the parameter or its round accumulator.
func (c *Core) RecordDeltaApplied(dpCount uint64) {
	if c.Metrics == nil {
		return
	}
	c.Metrics.DeltasApplied.Inc()
	c.Metrics.DatapointsTotal.Add(float64(dpCount))
}
