package simulator

// A Node represents a machine on a virtual network.
type Node struct {
	unused int
}

// NewNode creates a new, unique Node.
func NewNode() *Node {
	return &Node{}
}

// Port creates a new Port connected to the Node.
func (n *Node) Port(loop *EventLoop) *Port {
	return &Port{Node: n, Incoming: loop.Stream()}
}

// A Port identifies a point of communication on a Node.
// Data is sent from Ports and received on Ports.
type Port struct {
	// The Node to which the Port is attached.
	Node *Node

	// A stream of *Message objects.
	Incoming *EventStream
}

// Recv receives the next message.
func (p *Port) Recv(h *Handle) *Message {
	return h.Poll(p.Incoming).Message.(*Message)
}

// A Message is a chunk of data sent between nodes over a
// network.
type Message struct {
	Source  *Port
	Dest    *Port
	Message interface{}
	Size    float64
}

// A Network represents an abstract way of communicating
// between nodes.
type Network interface {
	// Send message objects from one node to another.
	// The message will arrive on the receiving port's
	// incoming EventStream if the communication is
	// successful.
	//
	// This is a non-blocking operation.
	//
	// It is preferrable to pass multiple messages in at
	// once, if possible.
	// Otherwise, the Network may have to continually
	// re-plan the entire message delivery timeline.
	Send(h *Handle, msgs ...*Message)
}

// A DirectNetwork delivers every message immediately, with no simulated
// propagation delay and no dependence on every Goroutine registered with
// the EventLoop being simultaneously polled. It is the only Network the
// master ever constructs: coordination correctness depends on wall-clock
// delivery, not a discrete-event delay model, so DirectNetwork is wired
// unconditionally in cmd/master/main.go and every master package test.
type DirectNetwork struct{}

// Send delivers every message immediately via h's EventLoop.
func (DirectNetwork) Send(h *Handle, msgs ...*Message) {
	for _, msg := range msgs {
		h.EventLoop.DeliverNow(msg.Dest.Incoming, msg)
	}
}
