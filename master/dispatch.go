package master

import (
	"github.com/unixpickle/syncmaster/model"
	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
	"k8s.io/klog/v2"
)

// dispatchPool is the small fixed-size goroutine pool that runs every
// "normal" (non-immediate) handler, per spec.md §5. Immediate tags
// (CClosed) are handled inline on the receive goroutine instead of being
// enqueued here. Pool workers are themselves EventLoop goroutines (each
// gets its own Handle) since handlers such as TAP's unicast reply need a
// Handle to send on. Jobs travel over an EventStream rather than a plain Go
// channel so a worker is always either running a job or polling — never
// blocked on a channel receive the EventLoop cannot see.
type dispatchPool struct {
	jobs *simulator.EventStream
}

func newDispatchPool(loop *simulator.EventLoop, size int) *dispatchPool {
	if size < 1 {
		size = 1
	}
	p := &dispatchPool{jobs: loop.Stream()}
	for i := 0; i < size; i++ {
		loop.Go(p.worker)
	}
	return p
}

func (p *dispatchPool) worker(h *simulator.Handle) {
	for {
		ev := h.Poll(p.jobs)
		job := ev.Message.(func(h *simulator.Handle))
		job(h)
	}
}

// submit enqueues job for the next free pool worker. h is the submitting
// Goroutine's own handle, used only to reach the EventLoop's DeliverNow
// (so no Run() call is needed); the job itself runs with the receiving
// worker's handle.
func (p *dispatchPool) submit(h *simulator.Handle, job func(h *simulator.Handle)) {
	h.EventLoop.DeliverNow(p.jobs, job)
}

// runReceiveLoop is spawned once per worker connection (as a
// simulator.EventLoop goroutine) and dispatches every arriving message
// either inline (immediate) or onto the pool (normal), until the worker's
// port closes.
func runReceiveLoop(h *simulator.Handle, c *Core, lid int, port *simulator.Port, pool *dispatchPool) {
	for {
		msg := port.Recv(h)
		payload, immediate, ok := wire.Unwrap(msg.Message)
		if !ok {
			klog.Warningf("dispatch: unrecognized envelope from worker %d", lid)
			continue
		}
		if immediate {
			c.handleImmediate(lid, payload)
			continue
		}
		pool.submit(h, func(h *simulator.Handle) {
			c.handleNormal(h, lid, payload)
		})
	}
}

// handleImmediate processes CClosed inline, per spec.md §5.
func (c *Core) handleImmediate(lid int, payload wire.Payload) {
	switch payload.(type) {
	case wire.Closed:
		c.RPH.Input(TagClosed, lid)
	default:
		klog.Warningf("dispatch: unexpected immediate payload %v from worker %d", payload.Kind(), lid)
	}
}

// handleNormal routes every non-immediate tag: orchestration bookkeeping
// tags update Core's phase state directly, DDelta/DReport go to the active
// mode's handlers.
func (c *Core) handleNormal(h *simulator.Handle, lid int, payload wire.Payload) {
	switch p := payload.(type) {
	case wire.Online:
		c.recordOnline(lid)
	case wire.Workers:
		c.RPH.Input(TagWorkersAck, lid)
	case wire.Dataset:
		c.recordDataset(lid, p)
	case wire.ParameterMsg:
		c.recordDataDrivenParameter(lid, p)
	case wire.Ready:
		c.RPH.Input(TagReady, lid)
	case wire.TrainPause:
		c.RPH.Input(TagTrainPauseAck, lid)
	case wire.TrainContinue:
		c.RPH.Input(TagTrainContinueAck, lid)
	case wire.Delta:
		if c.Mode != nil {
			c.Mode.HandleDelta(c, h, lid, p)
		}
	case wire.Report:
		if c.Mode != nil {
			c.Mode.HandleReport(c, h, lid, p)
		}
	default:
		klog.Warningf("dispatch: unexpected normal payload %v from worker %d", payload.Kind(), lid)
	}
}

func (c *Core) recordOnline(lid int) {
	c.mOrch.Lock()
	if c.onlineLIDs == nil {
		c.onlineLIDs = make(map[int]bool)
	}
	c.onlineLIDs[lid] = true
	c.mOrch.Unlock()
	c.RPH.Input(TagOnline, lid)
}

func (c *Core) recordDataset(lid int, d wire.Dataset) {
	c.mOrch.Lock()
	if c.datasetSeen == 0 {
		c.datasetNX = d.NX
		c.datasetNY = d.NY
	} else if d.NX != c.datasetNX || d.NY != c.datasetNY {
		c.mOrch.Unlock()
		c.Fatalf("dataset shape mismatch from worker %d: (nx=%d,ny=%d) != (nx=%d,ny=%d)",
			lid, d.NX, d.NY, c.datasetNX, c.datasetNY)
		return
	}
	c.datasetTotal += d.NPoint
	c.datasetSeen++
	c.mOrch.Unlock()
	c.RPH.Input(TagDataset, lid)
}

func (c *Core) recordDataDrivenParameter(lid int, p wire.ParameterMsg) {
	c.mOrch.Lock()
	if c.dparamAccum == nil {
		c.dparamAccum = make(model.Parameter, len(p.Vec))
	}
	c.Kernel.AccumulateParameter(c.dparamAccum, model.Parameter(p.Vec))
	c.dparamSeen++
	c.mOrch.Unlock()
	c.RPH.Input(TagDParam, lid)
}
