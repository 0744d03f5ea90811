// Package wire defines the master/worker protocol: one Go type per logical
// message tag from the coordination protocol, each carrying its own byte
// accounting the way the teacher's raft.RaftMessage does, plus the
// NormalControl/ImmediateControl envelopes that carry them over a
// simulator.Network.
package wire

// Kind tags a payload so the reply-handler registry can route it without a
// type switch at every call site.
type Kind uint32

const (
	KindOnline Kind = iota
	KindWorkers
	KindDataset
	KindParameter
	KindReady
	KindStart
	KindTrainPause
	KindTrainContinue
	KindDelta
	KindReport
	KindRDelta
	KindTerminate
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindOnline:
		return "Online"
	case KindWorkers:
		return "Workers"
	case KindDataset:
		return "Dataset"
	case KindParameter:
		return "Parameter"
	case KindReady:
		return "Ready"
	case KindStart:
		return "Start"
	case KindTrainPause:
		return "TrainPause"
	case KindTrainContinue:
		return "TrainContinue"
	case KindDelta:
		return "Delta"
	case KindReport:
		return "Report"
	case KindRDelta:
		return "RDelta"
	case KindTerminate:
		return "Terminate"
	case KindClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Payload is any message body that can travel inside a NormalControl or
// ImmediateControl envelope.
type Payload interface {
	Kind() Kind
	Size() int
}

// Online is sent worker to master on startup. LIDHint carries the worker's
// previous logical id; the master does not read it and assigns lids in
// connection order.
type Online struct {
	LIDHint int32
}

func (Online) Kind() Kind { return KindOnline }
func (Online) Size() int  { return 4 }

// WorkerEntry is one row of the roster broadcast in Workers.
type WorkerEntry struct {
	LID int
	NID string
}

// Workers is the master's broadcast of the full (lid, nid) roster.
type Workers struct {
	Entries []WorkerEntry
}

func (Workers) Kind() Kind { return KindWorkers }
func (w Workers) Size() int {
	total := 0
	for _, e := range w.Entries {
		total += 8 + len(e.NID)
	}
	return total
}

// Dataset reports one worker's shard shape.
type Dataset struct {
	NX     uint64
	NY     uint64
	NPoint uint64
}

func (Dataset) Kind() Kind { return KindDataset }
func (Dataset) Size() int  { return 24 }

// ParameterMsg carries the full parameter vector, either broadcast from the
// master or, during data-driven initialization, sent from a worker.
type ParameterMsg struct {
	Vec []float64
}

func (ParameterMsg) Kind() Kind    { return KindParameter }
func (p ParameterMsg) Size() int   { return 8 * len(p.Vec) }

// Ready signals a worker is prepared to begin training.
type Ready struct{}

func (Ready) Kind() Kind { return KindReady }
func (Ready) Size() int  { return 0 }

// Start tells all workers training has begun.
type Start struct{}

func (Start) Kind() Kind { return KindStart }
func (Start) Size() int  { return 0 }

// TrainPause is FSP's request that workers stop submitting deltas and ack.
type TrainPause struct{}

func (TrainPause) Kind() Kind { return KindTrainPause }
func (TrainPause) Size() int  { return 0 }

// TrainContinue resumes training after an FSP pause.
type TrainContinue struct{}

func (TrainContinue) Kind() Kind { return KindTrainContinue }
func (TrainContinue) Size() int  { return 0 }

// Delta is a worker's gradient update: the count of datapoints that
// produced it and the delta vector itself.
type Delta struct {
	DPCount uint64
	Vec     []float64
}

func (Delta) Kind() Kind  { return KindDelta }
func (d Delta) Size() int { return 8 + 8*len(d.Vec) }

// Report carries a worker's rolling telemetry: [count, t_datapoint,
// t_delta, t_report].
type Report struct {
	Count      float64
	TDatapoint float64
	TDelta     float64
	TReport    float64
}

func (Report) Kind() Kind { return KindReport }
func (Report) Size() int  { return 32 }

// RDelta is the master's pull request used by PAP's gather_delta phase.
type RDelta struct{}

func (RDelta) Kind() Kind { return KindRDelta }
func (RDelta) Size() int  { return 0 }

// Terminate tells every worker to shut down. Delivered immediately,
// bypassing the dispatch pool.
type Terminate struct{}

func (Terminate) Kind() Kind { return KindTerminate }
func (Terminate) Size() int  { return 0 }

// Closed acknowledges Terminate. Delivered immediately.
type Closed struct{}

func (Closed) Kind() Kind { return KindClosed }
func (Closed) Size() int  { return 0 }

// NormalControl wraps a payload for dispatch-pool handling.
type NormalControl struct {
	Subtype Kind
	Payload Payload
}

func (n NormalControl) Size() int { return 4 + n.Payload.Size() }

// ImmediateControl wraps a payload for inline, dispatch-bypassing handling
// on the receive goroutine (Terminate, Closed).
type ImmediateControl struct {
	Subtype Kind
	Payload Payload
}

func (n ImmediateControl) Size() int { return 4 + n.Payload.Size() }

// Envelope builds the right wrapper (Normal or Immediate) for a payload,
// per spec: Terminate and Closed always travel immediate.
func Envelope(p Payload) any {
	switch p.Kind() {
	case KindTerminate, KindClosed:
		return ImmediateControl{Subtype: p.Kind(), Payload: p}
	default:
		return NormalControl{Subtype: p.Kind(), Payload: p}
	}
}

// Unwrap extracts the payload and immediacy flag from a NormalControl or
// ImmediateControl envelope. ok is false if msg is neither.
func Unwrap(msg any) (payload Payload, immediate bool, ok bool) {
	switch m := msg.(type) {
	case NormalControl:
		return m.Payload, false, true
	case ImmediateControl:
		return m.Payload, true, true
	default:
		return nil, false, false
	}
}
