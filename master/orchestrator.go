package master

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/unixpickle/syncmaster/archiver"
	"github.com/unixpickle/syncmaster/model"
	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
	"k8s.io/klog/v2"
)

// Orchestrator drives one training run's lifecycle: worker roster, dataset
// exchange, parameter initialization, the mode's main loop, and cooperative
// termination, per spec.md §4.5.
type Orchestrator struct {
	Core *Core
}

// NewOrchestrator builds an Orchestrator around an already-constructed
// Core. mode must have already been assigned to c.Mode.
func NewOrchestrator(c *Core) *Orchestrator {
	return &Orchestrator{Core: c}
}

// Run executes every orchestration phase in order and blocks until the mode
// loop terminates and every worker has acknowledged shutdown.
func (o *Orchestrator) Run() error {
	c := o.Core
	c.Mode.Init(c)

	if err := o.waitOnline(); err != nil {
		return err
	}
	if err := o.broadcastRoster(); err != nil {
		return err
	}
	if err := o.exchangeDatasets(); err != nil {
		return err
	}
	if err := o.initParameter(); err != nil {
		return err
	}
	if err := o.coordinateParameter(); err != nil {
		return err
	}
	if err := o.waitReadyAndStart(); err != nil {
		return err
	}

	done := make(chan struct{})
	c.Loop.Go(func(h *simulator.Handle) {
		if err := c.Mode.Process(c, h); err != nil {
			c.Fatal(err)
		}
		close(done)
	})
	<-done

	return o.terminate()
}

// waitOnline blocks phase 1: every worker's Online message must arrive
// before the roster can be broadcast. Connections are assumed already
// registered via Core.Connect by the transport bootstrap.
func (o *Orchestrator) waitOnline() error {
	c := o.Core
	each := c.RPH.RegisterEach(TagOnline)
	each.WaitAndReset()
	return c.FatalErr()
}

// broadcastRoster implements phase 2: broadcast the full (lid, nid) table
// and wait for every worker's ACK.
func (o *Orchestrator) broadcastRoster() error {
	c := o.Core
	each := c.RPH.RegisterEach(TagWorkersAck)

	entries := make([]wire.WorkerEntry, c.N())
	for lid := 0; lid < c.N(); lid++ {
		entries[lid] = wire.WorkerEntry{LID: lid, NID: c.Workers.NID(lid)}
	}

	c.Loop.Go(func(h *simulator.Handle) {
		wire.Broadcast(h, c.Net, c.OutPort, c.Workers.Ports(), wire.Workers{Entries: entries})
	})
	each.WaitAndReset()
	return c.FatalErr()
}

// exchangeDatasets implements phase 3: collect every worker's shard shape.
// Consistency verification and the nPoint accumulation happen inline in
// dispatch.go's recordDataset as each Dataset message arrives.
func (o *Orchestrator) exchangeDatasets() error {
	c := o.Core
	each := c.RPH.RegisterEach(TagDataset)
	each.WaitAndReset()
	return c.FatalErr()
}

// initParameter implements phase 4: resume from the archive if configured,
// otherwise draw a fresh parameter (zeros if the kernel needs data-driven
// init, else uniform-in-[-0.01,0.01] seeded by Config.Seed).
func (o *Orchestrator) initParameter() error {
	c := o.Core
	width := c.Kernel.Width()

	if c.Config.Resume && c.Config.FnOutput != "" {
		iter, _, params, err := archiver.Resume(c.Config.FnOutput)
		if err == nil {
			if len(params) != width {
				c.Fatalf("resume: archived width %d != kernel width %d", len(params), width)
				return c.FatalErr()
			}
			c.Lock()
			c.Parameter = model.Parameter(params)
			c.Iter = uint64(iter)
			c.Unlock()
			return nil
		}
		klog.Warningf("resume requested but archive unusable (%v); starting fresh", err)
	}

	c.Lock()
	if c.Kernel.NeedsDataDrivenInit() {
		c.Parameter = model.ZeroInit(width)
	} else {
		rng := rand.New(rand.NewSource(c.Config.Seed))
		c.Parameter = model.UniformInit(width, 0.01, rng.Float64)
	}
	c.Unlock()
	return nil
}

// coordinateParameter implements phase 5: for kernels needing data-driven
// initialization, gather one DParameter contribution per worker, fold them
// with no averaging factor via the kernel's own accumulation rule, and
// broadcast the result.
func (o *Orchestrator) coordinateParameter() error {
	c := o.Core
	if !c.Kernel.NeedsDataDrivenInit() {
		return nil
	}

	each := c.RPH.RegisterEach(TagDParam)
	each.WaitAndReset()
	if err := c.FatalErr(); err != nil {
		return err
	}

	c.mOrch.Lock()
	folded := c.dparamAccum
	c.mOrch.Unlock()
	if folded == nil {
		return errors.New("master: data-driven init selected but no worker contributed a parameter")
	}

	c.Lock()
	c.Parameter = folded
	snap := c.Parameter.Clone()
	c.Unlock()

	c.Loop.Go(func(h *simulator.Handle) {
		wire.Broadcast(h, c.Net, c.OutPort, c.Workers.Ports(), wire.ParameterMsg{Vec: snap})
	})
	return nil
}

// waitReadyAndStart implements phase 6: wait for every worker's Ready,
// broadcast Start, start the train timer, capture initP, and force the
// initial archive.
func (o *Orchestrator) waitReadyAndStart() error {
	c := o.Core
	each := c.RPH.RegisterEach(TagReady)
	each.WaitAndReset()
	if err := c.FatalErr(); err != nil {
		return err
	}

	c.Loop.Go(func(h *simulator.Handle) {
		wire.Broadcast(h, c.Net, c.OutPort, c.Workers.Ports(), wire.Start{})
	})

	c.StartTrainTimer()
	c.CaptureInitP()

	if c.Archiver != nil {
		snap := c.SnapshotParameter()
		c.Archiver.Force(int64(c.Iter), c.TrainElapsed().Seconds(), snap)
	}
	return nil
}

// terminate implements spec.md §4.4's termination sequence: broadcast
// Terminate, deactivate the delta rendezvous the mode used so a tail
// handler drains in-flight deltas without ticking further, wait for every
// worker's Closed, then close the archiver.
func (o *Orchestrator) terminate() error {
	c := o.Core
	closedAll := c.RPH.RegisterEach(TagClosed)

	c.Loop.Go(func(h *simulator.Handle) {
		wire.Broadcast(h, c.Net, c.OutPort, c.Workers.Ports(), wire.Terminate{})
	})

	c.RPH.DeactivateType(TagDDeltaAll)
	c.RPH.DeactivateType(TagDDeltaAny)
	c.RPH.DeactivateType(TagPapBatch)

	closedAll.WaitAndReset()

	if c.Archiver != nil {
		if err := c.Archiver.Close(); err != nil {
			klog.Errorf("archiver close: %v", err)
		}
	}
	return c.FatalErr()
}
