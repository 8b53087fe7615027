package testutil

import (
	"math"
	"math/cmplx"
	"testing"
)

// RequireComplexNearlyEqual fails t if got and want differ in length or if
// any element pair is further apart than eps.
func RequireComplexNearlyEqual(t *testing.T, got, want []complex128, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		diff := cmplx.Abs(got[i] - want[i])
		if diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireUnitMagnitude fails t if any sample is off the unit circle by more
// than eps in squared magnitude.
func RequireUnitMagnitude(t *testing.T, iq []complex128, eps float64) {
	t.Helper()
	for i, z := range iq {
		e := real(z)*real(z) + imag(z)*imag(z)
		if math.Abs(e-1) > eps {
			t.Fatalf("index %d: |z|^2 = %v, want 1 (eps %v)", i, e, eps)
		}
	}
}

// PhaseSteps returns the wrapped phase advance between consecutive samples
// in radians, in (-π, π].
func PhaseSteps(iq []complex128) []float64 {
	if len(iq) < 2 {
		return nil
	}
	out := make([]float64, len(iq)-1)
	for i := range out {
		out[i] = cmplx.Phase(iq[i+1] * cmplx.Conj(iq[i]))
	}
	return out
}
