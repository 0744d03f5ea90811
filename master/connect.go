package master

import (
	"github.com/google/uuid"
	"github.com/unixpickle/syncmaster/simulator"
)

// Connect registers a new worker connection: it assigns the next logical
// id, mints a network identity for logging and the wire roster, creates
// the master's own dedicated receiving port for the connection, and spawns
// the receive goroutine that dispatches everything that arrives on it.
// workerPort is the port the worker itself listens on (the master's
// Send/Broadcast destination for that worker); the transport bootstrap
// that hands the master a Node and Port for each incoming connection is
// out of scope (spec.md treats byte-level transport as an external
// collaborator) and is the caller's responsibility.
func (c *Core) Connect(workerNode *simulator.Node, workerPort *simulator.Port) int {
	nid := uuid.NewString()
	masterPort := c.Node.Port(c.Loop)
	lid := c.Workers.Register(workerNode, workerPort, masterPort, nid)
	c.Loop.Go(func(h *simulator.Handle) {
		runReceiveLoop(h, c, lid, masterPort, c.pool)
	})
	return lid
}
