package sizer

import (
	"math"
	"testing"
)

// S5: PAP dynamic sizing — verify EstimateGlobalBatchSize equals the
// formula's exact integer output for the scenario spec.md spells out.
func TestEstimateGlobalBatchSizeMatchesS5(t *testing.T) {
	s := New(2, 0, 5)
	// mt_delta_sum/n_delta = 1ms
	s.mtDeltaSum, s.nDelta = 0.002, 2
	// mt_parameter_sum/n_par_send = 2ms
	s.mtParameterSum, s.nParSend = 0.004, 2
	// mt_report_sum/n_report = 0.5ms
	s.mtReportSum, s.nReport = 0.001, 2
	s.wtDatapoint = []float64{1, 1}
	s.wtDelta = []float64{0.1, 0.1}
	s.wtReport = []float64{0.2, 0.2}

	got := s.EstimateGlobalBatchSize(2, 5)

	mtu, mtb, mtr := 0.001, 0.002, 0.0005
	wtd, wtc, wtr := 1.0, 0.1, 0.2
	up := 2.0*2.0*(mtu+mtb) - 2.0*wtc
	down := wtd + (wtr-2.0*mtr)/5.0
	want := int(math.Floor(up / down))

	if got != want {
		t.Fatalf("expected %d (formula literal), got %d", want, got)
	}
	if want != -1 {
		t.Fatalf("sanity check on hand-computed literal failed: got %d", want)
	}
}

// Invariant 7: scale-covariance — scaling every timing measurement by the
// same constant leaves the estimate unchanged.
func TestEstimateGlobalBatchSizeScaleCovariant(t *testing.T) {
	base := New(3, 0, 4)
	base.mtDeltaSum, base.nDelta = 0.9, 3
	base.mtParameterSum, base.nParSend = 1.8, 3
	base.mtReportSum, base.nReport = 0.6, 3
	base.wtDatapoint = []float64{2, 3, 4}
	base.wtDelta = []float64{0.3, 0.4, 0.5}
	base.wtReport = []float64{0.6, 0.7, 0.8}
	want := base.EstimateGlobalBatchSize(3, 4)

	const c = 17.0
	scaled := New(3, 0, 4)
	scaled.mtDeltaSum, scaled.nDelta = base.mtDeltaSum*c, base.nDelta
	scaled.mtParameterSum, scaled.nParSend = base.mtParameterSum*c, base.nParSend
	scaled.mtReportSum, scaled.nReport = base.mtReportSum*c, base.nReport
	scaled.wtDatapoint = []float64{base.wtDatapoint[0] * c, base.wtDatapoint[1] * c, base.wtDatapoint[2] * c}
	scaled.wtDelta = []float64{base.wtDelta[0] * c, base.wtDelta[1] * c, base.wtDelta[2] * c}
	scaled.wtReport = []float64{base.wtReport[0] * c, base.wtReport[1] * c, base.wtReport[2] * c}

	got := scaled.EstimateGlobalBatchSize(3, 4)
	if got != want {
		t.Fatalf("scale-covariance violated: base=%d scaled=%d", want, got)
	}
}

func TestEstimateGlobalBatchSizeGuardsZeroDenominator(t *testing.T) {
	s := New(2, 42, 5)
	got := s.EstimateGlobalBatchSize(2, 5)
	if got != 42 {
		t.Fatalf("expected fallback to previous estimate 42, got %d", got)
	}
}

func TestEstimateGlobalBatchSizeClampedNeverDecreases(t *testing.T) {
	s := New(2, 100, 5)
	s.mtDeltaSum, s.nDelta = 0.002, 2
	s.mtParameterSum, s.nParSend = 0.004, 2
	s.mtReportSum, s.nReport = 0.001, 2
	s.wtDatapoint = []float64{1, 1}
	s.wtDelta = []float64{0.1, 0.1}
	s.wtReport = []float64{0.2, 0.2}

	got := s.EstimateGlobalBatchSizeClamped(2, 5)
	if got != 100 {
		t.Fatalf("pap2 must clamp to the current estimate when the raw formula would decrease it, got %d", got)
	}
}
