package window

import (
	"math"
	"testing"
)

func TestGenerateShapes(t *testing.T) {
	const n = 65

	rect := Generate(TypeRectangular, n)
	for i, v := range rect {
		if v != 1 {
			t.Fatalf("rect[%d] = %v, want 1", i, v)
		}
	}

	for _, typ := range []Type{TypeHann, TypeBlackman} {
		w := Generate(typ, n)
		if len(w) != n {
			t.Fatalf("%v: len = %d, want %d", typ, len(w), n)
		}
		if math.Abs(w[0]) > 1e-12 || math.Abs(w[n-1]) > 1e-12 {
			t.Fatalf("%v: edges = %v, %v, want 0", typ, w[0], w[n-1])
		}
		if math.Abs(w[n/2]-1) > 1e-12 {
			t.Fatalf("%v: center = %v, want 1", typ, w[n/2])
		}
		for i := range w {
			if math.Abs(w[i]-w[n-1-i]) > 1e-12 {
				t.Fatalf("%v: not symmetric at %d", typ, i)
			}
		}
	}
}

func TestGeneratePeriodic(t *testing.T) {
	w := Generate(TypeHann, 8, WithPeriodic())
	if math.Abs(w[4]-1) > 1e-12 {
		t.Fatalf("periodic hann center = %v, want 1", w[4])
	}
	if w[7] == 0 {
		t.Fatal("periodic hann must not end at zero")
	}
}

func TestGenerateInvalid(t *testing.T) {
	if Generate(TypeHann, 0) != nil {
		t.Fatal("expected nil for zero length")
	}
	if Generate(Type(99), 8) != nil {
		t.Fatal("expected nil for unknown type")
	}
}

func TestParseType(t *testing.T) {
	for typ, name := range typeNames {
		got, err := ParseType(name)
		if err != nil {
			t.Fatalf("ParseType(%q) error = %v", name, err)
		}
		if got != typ {
			t.Fatalf("ParseType(%q) = %v, want %v", name, got, typ)
		}
	}
	if _, err := ParseType("kaiser"); err == nil {
		t.Fatal("expected error for unsupported window")
	}
}

func TestApplyComplexInPlace(t *testing.T) {
	re := []float64{1, 2, 3, 4}
	im := []float64{-1, -2, -3, -4}
	coeffs := []float64{0, 0.5, 1, 2}

	if err := ApplyComplexInPlace(re, im, coeffs); err != nil {
		t.Fatalf("ApplyComplexInPlace() error = %v", err)
	}

	wantRe := []float64{0, 1, 3, 8}
	for i := range re {
		if re[i] != wantRe[i] || im[i] != -wantRe[i] {
			t.Fatalf("index %d: got (%v, %v), want (%v, %v)", i, re[i], im[i], wantRe[i], -wantRe[i])
		}
	}

	if err := ApplyComplexInPlace(re, im[:2], coeffs); err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestGainMetrics(t *testing.T) {
	rect := Generate(TypeRectangular, 16)
	cg, err := CoherentGain(rect)
	if err != nil || cg != 1 {
		t.Fatalf("CoherentGain(rect) = %v, %v, want 1", cg, err)
	}
	enbw, err := EquivalentNoiseBandwidth(rect)
	if err != nil || math.Abs(enbw-1) > 1e-12 {
		t.Fatalf("ENBW(rect) = %v, %v, want 1", enbw, err)
	}

	hann := Generate(TypeHann, 4096, WithPeriodic())
	enbw, err = EquivalentNoiseBandwidth(hann)
	if err != nil || math.Abs(enbw-1.5) > 1e-3 {
		t.Fatalf("ENBW(hann) = %v, %v, want 1.5", enbw, err)
	}

	if _, err := CoherentGain(nil); err == nil {
		t.Fatal("expected error for empty coefficients")
	}
	if _, err := EquivalentNoiseBandwidth(make([]float64, 4)); err == nil {
		t.Fatal("expected error for zero coherent gain")
	}
}
