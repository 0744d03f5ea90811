// Command master wires a syncmaster Config, an in-process transport, a
// file-backed archive sink, and one of the seven coordination modes into a
// runnable Orchestrator. It is a wiring example, not a deployment: the
// worker side of the protocol and the real network transport that would
// carry it between processes are both out of scope (see model.Kernel and
// simulator.Network's doc comments), so the roster below is populated with
// in-process placeholder connections rather than accepted from a listener.
package main

import (
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/syncmaster/archiver"
	"github.com/unixpickle/syncmaster/master"
	"github.com/unixpickle/syncmaster/model"
	"github.com/unixpickle/syncmaster/simulator"
	"k8s.io/klog/v2"
)

// stubKernel is a minimal model.Kernel stand-in so this binary is runnable
// without a real gradient model wired in; production deployments replace
// this with whatever CNN/MLP/etc. contract their workers actually train.
type stubKernel struct {
	width int
}

func (k stubKernel) Width() int               { return k.width }
func (k stubKernel) NeedsDataDrivenInit() bool { return false }
func (k stubKernel) NeedsAveragedDelta() bool  { return true }
func (k stubKernel) AccumulateParameter(dst, contribution model.Parameter) {
	for i, v := range contribution {
		dst[i] += v
	}
}

func main() {
	configPath := flag.String("config", "master.yaml", "path to the master config file")
	width := flag.Int("width", 16, "parameter width for the stand-in kernel")
	flag.Parse()

	cfg, err := master.LoadConfig(*configPath)
	essentials.Must(err)
	essentials.Must(cfg.Validate())

	kernel := stubKernel{width: *width}

	loop := simulator.NewEventLoop()
	net := simulator.DirectNetwork{}

	core := master.NewCore(cfg, kernel, loop, net, cfg.NW)

	mode, err := master.NewModeForConfig(core)
	essentials.Must(err)
	core.Mode = mode

	reg := prometheus.NewRegistry()
	core.Metrics = master.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			klog.Errorf("metrics server exited: %v", http.ListenAndServe(cfg.MetricsAddr, mux))
		}()
	}

	if cfg.FnOutput != "" {
		sink, err := archiver.NewFileSink(cfg.FnOutput, kernel.Width(), cfg.Binary)
		essentials.Must(err)
		core.Archiver = archiver.New(sink, cfg.ArvIter, cfg.ArvTime)
		core.Archiver.SetLatencyObserver(core.Metrics.ArchiveLatency)
	}

	// Transport bootstrap: a real deployment accepts a connection per
	// worker here and calls core.Connect(node, workerPort) as each one
	// completes its handshake. Lacking a worker binary to connect to, this
	// wiring example instead creates cfg.NW placeholder connections
	// in-process; DirectNetwork delivers to them the same way it would to
	// a real worker's port.
	for i := 0; i < cfg.NW; i++ {
		workerNode := simulator.NewNode()
		workerPort := workerNode.Port(loop)
		core.Connect(workerNode, workerPort)
	}

	orch := master.NewOrchestrator(core)
	if err := orch.Run(); err != nil {
		klog.Exitf("training run failed: %v", err)
	}
}
