package wire

import "github.com/unixpickle/syncmaster/simulator"

// sized is satisfied by NormalControl and ImmediateControl.
type sized interface {
	Size() int
}

// Send delivers a single payload from one port to another, wrapping it in
// the appropriate control envelope.
func Send(h *simulator.Handle, net simulator.Network, from, to *simulator.Port, p Payload) {
	env := Envelope(p)
	net.Send(h, &simulator.Message{
		Source:  from,
		Dest:    to,
		Message: env,
		Size:    float64(env.(sized).Size()),
	})
}

// Broadcast delivers a payload to every destination port.
func Broadcast(h *simulator.Handle, net simulator.Network, from *simulator.Port, tos []*simulator.Port, p Payload) {
	Multicast(h, net, from, tos, p)
}

// Multicast delivers a payload to a chosen subset of destination ports in a
// single Network.Send call, as spec.md requires for AAP's echo (one call,
// not one per target).
func Multicast(h *simulator.Handle, net simulator.Network, from *simulator.Port, tos []*simulator.Port, p Payload) {
	if len(tos) == 0 {
		return
	}
	env := Envelope(p)
	size := float64(env.(sized).Size())
	msgs := make([]*simulator.Message, len(tos))
	for i, to := range tos {
		msgs[i] = &simulator.Message{
			Source:  from,
			Dest:    to,
			Message: env,
			Size:    size,
		}
	}
	net.Send(h, msgs...)
}
