package master

import (
	"github.com/unixpickle/syncmaster/model"
	"github.com/unixpickle/syncmaster/simulator"
	"github.com/unixpickle/syncmaster/wire"
)

// testKernel is a fixed-width Kernel with no data-driven init requirement,
// enough for exercising the mode engines and orchestrator without any real
// gradient math.
type testKernel struct {
	width     int
	ddi       bool
	noAverage bool
}

func (k testKernel) Width() int               { return k.width }
func (k testKernel) NeedsDataDrivenInit() bool { return k.ddi }
func (k testKernel) NeedsAveragedDelta() bool  { return !k.noAverage }
func (k testKernel) AccumulateParameter(dst, contribution model.Parameter) {
	for i, v := range contribution {
		dst[i] += v
	}
}

// newTestCore builds a Core with n workers already registered against a
// DirectNetwork, without going through Core.Connect's receive-goroutine
// wiring — mode-engine tests drive HandleDelta/HandleReport directly, the
// way dispatch.go's handleNormal would.
func newTestCore(n, width int, cfg *Config) (*Core, []*simulator.Port) {
	if cfg == nil {
		cfg = &Config{NW: n, BatchSize: n, ReportSize: 1, TCIter: 1 << 30}
		cfg.applyDefaults()
	}
	loop := simulator.NewEventLoop()
	net := simulator.DirectNetwork{}
	kernel := testKernel{width: width}
	c := NewCore(cfg, kernel, loop, net, n)

	workerPorts := make([]*simulator.Port, n)
	for i := 0; i < n; i++ {
		workerNode := simulator.NewNode()
		workerPort := workerNode.Port(loop)
		masterPort := c.Node.Port(loop)
		c.Workers.Register(workerNode, workerPort, masterPort, "test-worker")
		workerPorts[i] = workerPort
	}

	c.Parameter = model.ZeroInit(width)
	return c, workerPorts
}

// recvParameter spawns a Goroutine that blocks on port for the next
// ParameterMsg envelope and delivers its vector on the returned channel.
func recvParameter(loop *simulator.EventLoop, port *simulator.Port) chan []float64 {
	out := make(chan []float64, 1)
	loop.Go(func(h *simulator.Handle) {
		msg := port.Recv(h)
		payload, _, ok := wire.Unwrap(msg.Message)
		if !ok {
			out <- nil
			return
		}
		pm, ok := payload.(wire.ParameterMsg)
		if !ok {
			out <- nil
			return
		}
		out <- pm.Vec
	})
	return out
}

// recvUntilParameter is like recvParameter, but skips over any other kind
// of message (e.g. PAP's RDelta pull request) until a ParameterMsg
// arrives.
func recvUntilParameter(loop *simulator.EventLoop, port *simulator.Port) chan []float64 {
	out := make(chan []float64, 1)
	loop.Go(func(h *simulator.Handle) {
		for {
			msg := port.Recv(h)
			payload, _, ok := wire.Unwrap(msg.Message)
			if !ok {
				continue
			}
			if pm, ok := payload.(wire.ParameterMsg); ok {
				out <- pm.Vec
				return
			}
		}
	})
	return out
}
