package ring

import "testing"

func TestTargetsExcludesSource(t *testing.T) {
	r := NewWorkerRing(5, 8)
	targets := r.Targets(2, 2)
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %v", targets)
	}
	for _, tgt := range targets {
		if tgt == 2 {
			t.Fatal("targets must not include the source")
		}
	}
}

func TestTargetsStableAcrossCalls(t *testing.T) {
	r := NewWorkerRing(6, 16)
	first := r.Targets(1, 3)
	second := r.Targets(1, 3)
	if len(first) != len(second) {
		t.Fatalf("target set length changed: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("target set is not stable: %v vs %v", first, second)
		}
	}
}

func TestTargetsCapsAtAvailableWorkers(t *testing.T) {
	r := NewWorkerRing(3, 4)
	targets := r.Targets(0, 10)
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets (n-1), got %v", targets)
	}
}
