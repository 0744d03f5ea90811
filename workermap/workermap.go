// Package workermap implements the WM component: a bidirectional mapping
// between network identity and logical worker id 0..N-1, established once
// as workers connect (Core.Connect) and read-only thereafter.
package workermap

import (
	"fmt"
	"sync"

	"github.com/unixpickle/syncmaster/simulator"
)

// WorkerMap maps simulator.Node network identities to logical worker ids
// and back, and tracks the duplex link each worker connection is modeled
// as: the worker's own receiving Port (the master's Send destination) and
// the master's dedicated Port for that connection (its own Recv source).
type WorkerMap struct {
	mu             sync.RWMutex
	nodeToID       map[*simulator.Node]int
	idToNode       []*simulator.Node
	idToWorkerPort []*simulator.Port
	idToMasterPort []*simulator.Port
	idToNID        []string
}

// New creates an empty worker map with capacity for n workers.
func New(n int) *WorkerMap {
	return &WorkerMap{
		nodeToID:       make(map[*simulator.Node]int, n),
		idToNode:       make([]*simulator.Node, 0, n),
		idToWorkerPort: make([]*simulator.Port, 0, n),
		idToMasterPort: make([]*simulator.Port, 0, n),
		idToNID:        make([]string, 0, n),
	}
}

// Register assigns the next free logical id to a worker connection and
// returns it. Registration order is the assignment order: the first
// connection registered becomes lid 0, and so on. workerPort is the
// port the worker listens on (the master's Send destination for that
// worker); masterPort is the master's own dedicated port for the
// connection (where that worker's messages arrive); nid is the
// connection's network identity, used only for logging and the wire
// roster (spec.md's byte-level transport is out of scope, so lid is the
// only identity anything downstream actually keys on).
func (m *WorkerMap) Register(node *simulator.Node, workerPort, masterPort *simulator.Port, nid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	lid := len(m.idToNode)
	m.nodeToID[node] = lid
	m.idToNode = append(m.idToNode, node)
	m.idToWorkerPort = append(m.idToWorkerPort, workerPort)
	m.idToMasterPort = append(m.idToMasterPort, masterPort)
	m.idToNID = append(m.idToNID, nid)
	return lid
}

// NID returns the network identity string worker lid was registered with.
func (m *WorkerMap) NID(lid int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idToNID[lid]
}

// LID returns the logical id for a node, and whether it is registered.
func (m *WorkerMap) LID(node *simulator.Node) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lid, ok := m.nodeToID[node]
	return lid, ok
}

// Port returns the destination port used to send to worker lid.
func (m *WorkerMap) Port(lid int) *simulator.Port {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idToWorkerPort[lid]
}

// MasterPort returns the master's own port for the connection to worker
// lid: where that worker's messages arrive, and the stream that worker's
// receive goroutine polls. Outgoing sends do not use it as their Source.
func (m *WorkerMap) MasterPort(lid int) *simulator.Port {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idToMasterPort[lid]
}

// Ports returns every worker's destination port in logical-id order.
func (m *WorkerMap) Ports() []*simulator.Port {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*simulator.Port, len(m.idToWorkerPort))
	copy(out, m.idToWorkerPort)
	return out
}

// N returns the number of registered workers.
func (m *WorkerMap) N() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.idToNode)
}

// String is useful for logging an unexpected-source error.
func (m *WorkerMap) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf("WorkerMap{n=%d}", len(m.idToNode))
}
