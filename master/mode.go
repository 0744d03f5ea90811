package master

import (
	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// Mode is the contract every synchronization mode implements: registering
// its delta/report handlers and rendezvous at Init, then driving the main
// loop in Process until termination.
type Mode interface {
	// Name identifies the mode for logging and metrics labels.
	Name() string

	// Init registers this mode's delta handler with the RPH, sets
	// factorDelta, and wires any mode-specific collaborator (Sizer,
	// Interval, Ring) that the orchestrator has already attached to Core.
	Init(c *Core)

	// Process runs the main loop until Core.TerminateCheck() holds, then
	// returns. It is the only goroutine that mutates Parameter, Accum, or
	// Iter outside of a handler fold. h is this loop's own EventLoop
	// handle, used for every Send/Broadcast/Multicast call.
	Process(c *Core, h *simulator.Handle) error

	// HandleDelta is invoked once per DDelta receipt, on a dispatch-pool
	// goroutine with its own EventLoop handle (needed for handlers, like
	// TAP's, that reply inline).
	HandleDelta(c *Core, h *simulator.Handle, lid int, d wire.Delta)

	// HandleReport is invoked once per DReport receipt. Only PAP gives it
	// a nontrivial body; other modes embed noReportHandler.
	HandleReport(c *Core, h *simulator.Handle, lid int, r wire.Report)
}

// noReportHandler is embedded by modes that do not use the Report stream.
type noReportHandler struct{}

func (noReportHandler) HandleReport(c *Core, h *simulator.Handle, lid int, r wire.Report) {}
