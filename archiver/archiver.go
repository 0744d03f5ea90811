// Package archiver implements the non-blocking, time/iter-gated checkpoint
// adapter every mode calls into after each parameter broadcast. The actual
// storage engine is a pluggable Sink; FileSink ships a concrete binary/text
// implementation so the module runs standalone.
package archiver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/klog/v2"
)

// Sink is the black-box on-disk archiver spec.md treats as an external
// collaborator: dump(iter, time, params).
type Sink interface {
	Dump(iter int64, wallTime float64, params []float64) error
	Close() error
}

// flushJob is one snapshot queued for the background flush goroutine.
type flushJob struct {
	iter     int64
	wallTime float64
	params   []float64
}

// Archiver gates checkpointing by iteration count and wall-clock interval,
// and performs the actual Sink.Dump call on a dedicated goroutine so the
// caller (the mode's main loop) never blocks on storage I/O. At most one
// flush runs and one more waits queued; a flush requested while one is
// already queued is dropped (the next gate crossing will catch up), matching spec.md's
// "advisory" characterization of the archiver.
type Archiver struct {
	sink Sink

	arvIter int64
	arvTime float64

	lastIter int64
	lastTime float64

	jobs chan flushJob
	done chan struct{}

	latency prometheus.Observer
}

// New creates an Archiver that dumps to sink no more often than every
// arvIter iterations or arvTime seconds, whichever gate is configured
// (a zero value disables that gate).
func New(sink Sink, arvIter int64, arvTime float64) *Archiver {
	a := &Archiver{
		sink:    sink,
		arvIter: arvIter,
		arvTime: arvTime,
		jobs:    make(chan flushJob, 1),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Archiver) loop() {
	for job := range a.jobs {
		start := time.Now()
		err := a.sink.Dump(job.iter, job.wallTime, job.params)
		if a.latency != nil {
			a.latency.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			klog.Errorf("archive at iter %d failed: %v", job.iter, err)
		}
	}
	close(a.done)
}

// SetLatencyObserver wires a Prometheus observer that records the wall-clock
// time spent inside each Sink.Dump call. Passing nil disables the
// observation; a no-op if never called at all.
func (a *Archiver) SetLatencyObserver(o prometheus.Observer) {
	a.latency = o
}

// MaybeArchive checks the iter/time gates and, if either has been crossed
// since the last archive, enqueues a flush of the given snapshot. The
// snapshot must already be a copy (the caller takes it under mbfd before
// calling this, per spec.md's design note); MaybeArchive never blocks.
func (a *Archiver) MaybeArchive(iter int64, wallTime float64, snapshot []float64) {
	crossedIter := a.arvIter > 0 && iter-a.lastIter >= a.arvIter
	crossedTime := a.arvTime > 0 && wallTime-a.lastTime >= a.arvTime
	if !crossedIter && !crossedTime {
		return
	}
	a.lastIter = iter
	a.lastTime = wallTime

	select {
	case a.jobs <- flushJob{iter: iter, wallTime: wallTime, params: snapshot}:
	default:
		// A flush is already queued; drop this one, the next gate
		// crossing will catch up.
	}
}

// Force enqueues a flush unconditionally (used for the initial archive at
// training start and the final archive at shutdown).
func (a *Archiver) Force(iter int64, wallTime float64, snapshot []float64) {
	a.lastIter = iter
	a.lastTime = wallTime
	select {
	case a.jobs <- flushJob{iter: iter, wallTime: wallTime, params: snapshot}:
	default:
	}
}

// Close stops accepting new flushes, waits for the queued one (if any) to
// finish, and closes the underlying sink.
func (a *Archiver) Close() error {
	close(a.jobs)
	<-a.done
	return a.sink.Close()
}
