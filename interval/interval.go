// Package interval implements FSP's interval estimator: a strategy object
// that decides how long the master should sleep between synchronization
// rounds based on observed gradient/timing dynamics.
package interval

// Estimator is the strategy contract spec.md §9 calls out as an
// out-of-scope-but-part-of-the-core interface.
type Estimator interface {
	// Interval returns the next sleep duration, in seconds.
	Interval() float64

	// Update feeds back the outcome of the round that just completed: the
	// applied delta vector, the interval that was used, the datapoint
	// count that produced cur, the time spent waiting on the sync
	// barrier, and total wall-clock time for the round.
	Update(cur []float64, interval, curDP, syncTime, wallTime float64)
}

// ThroughputEstimator adjusts the interval by comparing current
// datapoint-per-second throughput against a reference window snapshot,
// the same interference check the teacher pack's lsds-KungFu adaptive
// session strategy uses to decide whether to keep or drop a communication
// strategy. Here the "interference" signal instead widens or narrows the
// FSP sleep interval: when throughput falls under interferenceThreshold of
// the reference, the master waits longer between syncs to amortize
// coordination overhead; when it holds steady or improves, the interval is
// nudged back down toward MinInterval.
type ThroughputEstimator struct {
	MinInterval float64
	MaxInterval float64

	// InterferenceThreshold is the fraction of reference throughput below
	// which the interval is widened.
	InterferenceThreshold float64

	current       float64
	haveReference bool
	refThroughput float64
}

// NewThroughputEstimator creates an estimator seeded with an initial
// interval.
func NewThroughputEstimator(initial, min, max float64) *ThroughputEstimator {
	return &ThroughputEstimator{
		MinInterval:           min,
		MaxInterval:           max,
		InterferenceThreshold: 0.8,
		current:               initial,
	}
}

// Interval returns the current sleep duration.
func (t *ThroughputEstimator) Interval() float64 {
	return t.current
}

// Update recomputes the interval from the round's observed throughput.
func (t *ThroughputEstimator) Update(cur []float64, interval, curDP, syncTime, wallTime float64) {
	if wallTime <= 0 || curDP <= 0 {
		return
	}
	throughput := curDP / wallTime

	if !t.haveReference {
		t.refThroughput = throughput
		t.haveReference = true
		return
	}

	if throughput < t.InterferenceThreshold*t.refThroughput {
		t.current *= 1.5
	} else {
		t.current *= 0.9
		t.refThroughput = throughput
	}

	if t.current < t.MinInterval {
		t.current = t.MinInterval
	}
	if t.MaxInterval > 0 && t.current > t.MaxInterval {
		t.current = t.MaxInterval
	}
}
