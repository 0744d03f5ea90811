// Package accum implements the delta accumulator: the ring of "current" and
// "future" buffers that every synchronization mode folds worker deltas
// into. All methods assume the caller already holds whatever lock guards
// the parameter/accumulator pair (Core.mbfd in the master package) — the
// accumulator itself carries no lock, matching how the accompanying
// Parameter must be mutated in the same critical section.
package accum

// Accumulator holds the current-iteration delta and a staleness ring of
// future-iteration deltas, all of width W.
type Accumulator struct {
	width int

	cur   []float64
	curDP uint64

	// next[d] aggregates deltas labelled d iterations beyond cur, for
	// d >= 1. next[0] is unused filler so that indices line up with the
	// staleness offset directly. Slots are created lazily.
	next   [][]float64
	nextDP []uint64
}

// New creates an accumulator for parameters of the given width.
func New(width int) *Accumulator {
	return &Accumulator{
		width: width,
		cur:   make([]float64, width),
	}
}

// Width returns the parameter width this accumulator was built for.
func (a *Accumulator) Width() int {
	return a.width
}

// Accumulate folds a delta into the current-iteration aggregate.
func (a *Accumulator) Accumulate(delta []float64, cnt uint64) {
	for i, v := range delta {
		a.cur[i] += v
	}
	a.curDP += cnt
}

// CurDP returns the datapoint count folded into cur so far.
func (a *Accumulator) CurDP() uint64 {
	return a.curDP
}

// Cur returns the live current-iteration buffer. Callers that hand it off
// past the critical section (e.g. to the archiver) must copy it first.
func (a *Accumulator) Cur() []float64 {
	return a.cur
}

// ensureSlot grows next/nextDP so that index d is valid, zero-initializing
// any newly created slots.
func (a *Accumulator) ensureSlot(d int) {
	for len(a.next) <= d {
		a.next = append(a.next, nil)
		a.nextDP = append(a.nextDP, 0)
	}
	if a.next[d] == nil {
		a.next[d] = make([]float64, a.width)
	}
}

// AccumulateNext folds a delta labelled d iterations beyond cur into the
// staleness ring, creating and zero-initializing the slot as needed.
func (a *Accumulator) AccumulateNext(d int, delta []float64, cnt uint64) {
	a.ensureSlot(d)
	dst := a.next[d]
	for i, v := range delta {
		dst[i] += v
	}
	a.nextDP[d] += cnt
}

// NextDP returns the datapoint count folded into next[d], or 0 if the slot
// does not exist.
func (a *Accumulator) NextDP(d int) uint64 {
	if d < 0 || d >= len(a.nextDP) {
		return 0
	}
	return a.nextDP[d]
}

// Clear zeroes the current-iteration aggregate.
func (a *Accumulator) Clear() {
	for i := range a.cur {
		a.cur[i] = 0
	}
	a.curDP = 0
}

// Shift promotes next[1] into cur and shifts every remaining slot down by
// one, dropping the trailing slot. If next[1] does not exist, cur becomes
// zero.
func (a *Accumulator) Shift() {
	if len(a.next) < 2 {
		a.Clear()
		a.next = nil
		a.nextDP = nil
		return
	}
	promoted := a.next[1]
	promotedDP := a.nextDP[1]
	if promoted == nil {
		a.cur = make([]float64, a.width)
		a.curDP = 0
	} else {
		a.cur = promoted
		a.curDP = promotedDP
	}
	a.next = append(a.next[:1], a.next[2:]...)
	a.nextDP = append(a.nextDP[:1], a.nextDP[2:]...)
}

// ApplyCur applies cur directly to param with the given factor, walking the
// vector with a straight index loop (the master's fixed apply order):
// param[i] += factorDelta * cur[i].
func (a *Accumulator) ApplyCur(param []float64, factorDelta float64) {
	for i := range param {
		param[i] += factorDelta * a.cur[i]
	}
}

// ApplyDelta applies an arbitrary delta directly to param, used by the
// asynchronous modes (TAP/SAP/AAP/BSP-handler) that fold straight into the
// parameter instead of into cur.
func ApplyDelta(param, delta []float64, factorDelta float64) {
	for i := range param {
		param[i] += factorDelta * delta[i]
	}
}

// ApplyNext applies next[1..min(d, len(next)-1)] directly to param with the
// given factor, for every non-empty slot in that range, and returns the
// total datapoint count credited. next itself is left untouched; the
// caller decides separately when to Shift.
func (a *Accumulator) ApplyNext(param []float64, factorDelta float64, d int) uint64 {
	var totalDP uint64
	limit := d
	if limit > len(a.next)-1 {
		limit = len(a.next) - 1
	}
	for i := 1; i <= limit; i++ {
		if a.next[i] == nil {
			continue
		}
		ApplyDelta(param, a.next[i], factorDelta)
		totalDP += a.nextDP[i]
	}
	return totalDP
}

// ClearNext promotes next[d+1] into cur and compacts slots d+2.. down to
// 1.., discarding slots 1..d entirely (they have already been applied by
// ApplyNext).
func (a *Accumulator) ClearNext(d int) {
	promoteIdx := d + 1
	if promoteIdx >= len(a.next) {
		a.cur = make([]float64, a.width)
		a.curDP = 0
		a.next = nil
		a.nextDP = nil
		return
	}
	promoted := a.next[promoteIdx]
	promotedDP := a.nextDP[promoteIdx]
	if promoted == nil {
		a.cur = make([]float64, a.width)
		a.curDP = 0
	} else {
		a.cur = promoted
		a.curDP = promotedDP
	}
	rest := a.next[promoteIdx+1:]
	restDP := a.nextDP[promoteIdx+1:]
	a.next = append([][]float64{nil}, rest...)
	a.nextDP = append([]uint64{0}, restDP...)
}
