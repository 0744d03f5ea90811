// Package ring implements the AAP receiver selector as a consistent-hash
// ring over logical worker ids, adapted from the teacher pack's
// disthash.Consistent: instead of mapping arbitrary keys to storage sites,
// it maps a delta's source worker to a stable set of peers that should
// receive the echoed parameter.
package ring

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"math"

	"github.com/unixpickle/essentials"
)

// point is one position a worker occupies on the unit circle.
type point struct {
	lid int
	pos float64
}

// WorkerRing places every worker at pointsPerWorker positions on a
// circle of circumference 1, so that picking the k ring-successors of a
// source's canonical position yields a target set that stays stable as
// long as the worker roster does not change (spec.md's AAP receiver
// selector contract does not require rebalancing across membership
// changes, since elastic membership is a Non-goal).
type WorkerRing struct {
	points []point
}

// NewWorkerRing builds a ring for n workers (logical ids 0..n-1), using
// pointsPerWorker positions per worker to smooth out selection skew.
func NewWorkerRing(n, pointsPerWorker int) *WorkerRing {
	if pointsPerWorker < 1 {
		pointsPerWorker = 1
	}
	r := &WorkerRing{}
	for lid := 0; lid < n; lid++ {
		for i := 0; i < pointsPerWorker; i++ {
			r.points = append(r.points, point{lid: lid, pos: floatHash(lid, i)})
		}
	}
	essentials.VoodooSort(r.points, func(i, j int) bool {
		return r.points[i].pos < r.points[j].pos
	})
	return r
}

// Targets returns up to k distinct worker ids, other than source, chosen by
// walking the ring clockwise from source's first point. If the ring has
// fewer than k+1 distinct workers, every worker but source is returned.
func (r *WorkerRing) Targets(source, k int) []int {
	if len(r.points) == 0 || k <= 0 {
		return nil
	}
	start := r.sourceIndex(source)
	var out []int
	seen := map[int]bool{source: true}
	for i := 0; i < len(r.points) && len(out) < k; i++ {
		p := r.points[(start+1+i)%len(r.points)]
		if seen[p.lid] {
			continue
		}
		seen[p.lid] = true
		out = append(out, p.lid)
	}
	return out
}

// sourceIndex finds the ring index of source's first point, or 0 if source
// has no points (e.g. was never added, which should not happen for a valid
// logical id).
func (r *WorkerRing) sourceIndex(source int) int {
	for i, p := range r.points {
		if p.lid == source {
			return i
		}
	}
	return 0
}

// floatHash hashes (lid, point index) into [0, 1), mirroring the teacher's
// disthash.FloatHash construction.
func floatHash(lid, i int) float64 {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int64(lid))
	binary.Write(&buf, binary.LittleEndian, int64(i))
	digest := md5.Sum(buf.Bytes())
	var number uint64
	for i, x := range digest[:8] {
		number |= uint64(x) << uint(8*i)
	}
	return math.Min(math.Nextafter(1, -1), float64(number)/math.Pow(2, 64))
}
