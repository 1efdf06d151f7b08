package window

import (
	"errors"
	"math"
	"testing"
)

const tol = 1e-12

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

var allTypes = []Type{TypeRectangular, TypeHann, TypeHamming, TypeBlackman, TypeBlackmanHarris}

func TestGenerateSymmetric(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			w := Generate(typ, 65)
			if len(w) != 65 {
				t.Fatalf("len=%d, want 65", len(w))
			}
			for i, v := range w {
				if math.IsNaN(v) || v < -tol || v > 1+tol {
					t.Fatalf("w[%d] out of range: %v", i, v)
				}
				if !almostEqual(v, w[len(w)-1-i], tol) {
					t.Fatalf("asymmetric at %d", i)
				}
			}
			if !almostEqual(w[32], 1, 1e-9) {
				t.Fatalf("center = %v, want 1", w[32])
			}
		})
	}
}

func TestGenerateEdgeCases(t *testing.T) {
	if Generate(TypeHann, 0) != nil || Generate(TypeHann, -3) != nil {
		t.Fatal("expected nil for non-positive length")
	}
	if w := Generate(TypeRectangular, 1); len(w) != 1 || w[0] != 1 {
		t.Fatalf("single rectangular coefficient = %v", w)
	}
	for i, v := range Generate(Type(99), 8) {
		if v != 1 {
			t.Fatalf("unknown type: w[%d]=%v, want 1", i, v)
		}
	}
}

func TestHannPeriodic(t *testing.T) {
	const n = 1024
	w := Generate(TypeHann, n, WithPeriodic())
	for i := range w {
		want := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/n)
		if !almostEqual(w[i], want, tol) {
			t.Fatalf("w[%d]=%v, want %v", i, w[i], want)
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"hann", TypeHann},
		{" Hamming ", TypeHamming},
		{"BLACKMAN", TypeBlackman},
		{"blackman-harris", TypeBlackmanHarris},
		{"blackmanharris", TypeBlackmanHarris},
		{"rect", TypeRectangular},
		{"rectangular", TypeRectangular},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseType(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseType("kaiser"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
}

func TestTextRoundTrip(t *testing.T) {
	for _, typ := range allTypes {
		b, err := typ.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Type
		if err := got.UnmarshalText(b); err != nil || got != typ {
			t.Fatalf("%s: got %v, %v", b, got, err)
		}
	}
	if _, err := Type(-1).MarshalText(); err == nil {
		t.Fatal("expected error for invalid type")
	}
	if Type(99).String() != "unknown" {
		t.Fatalf("String() = %q", Type(99).String())
	}
}

func TestCoherentGainAndENBW(t *testing.T) {
	tests := []struct {
		typ  Type
		cg   float64
		enbw float64
	}{
		{TypeRectangular, 1, 1},
		{TypeHann, 0.5, 1.5},
		{TypeHamming, 0.54, 1.3628},
		{TypeBlackmanHarris, 0.35875, 2.0044},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			w := Generate(tt.typ, 4096, WithPeriodic())

			cg, err := CoherentGain(w)
			if err != nil || !almostEqual(cg, tt.cg, 1e-9) {
				t.Fatalf("coherent gain=%v (%v), want %v", cg, err, tt.cg)
			}
			enbw, err := EquivalentNoiseBandwidth(w)
			if err != nil || !almostEqual(enbw, tt.enbw, 1e-3) {
				t.Fatalf("ENBW=%v (%v), want %v", enbw, err, tt.enbw)
			}
		})
	}

	if _, err := CoherentGain(nil); err == nil {
		t.Fatal("expected error for empty coefficients")
	}
	if _, err := EquivalentNoiseBandwidth([]float64{1, -1}); err == nil {
		t.Fatal("expected error for zero coherent gain")
	}
}

func TestApply(t *testing.T) {
	buf := make([]float64, 33)
	for i := range buf {
		buf[i] = float64(i)
	}
	Apply(TypeBlackman, buf)
	w := Generate(TypeBlackman, len(buf))
	for i := range buf {
		if !almostEqual(buf[i], float64(i)*w[i], 1e-10) {
			t.Fatalf("buf[%d]=%v, want %v", i, buf[i], float64(i)*w[i])
		}
	}
	Apply(TypeHann, nil)

	samples := []float64{1, 2, 3, 4}
	if err := ApplyCoefficientsInPlace(samples, []float64{0.5, 0.5, 2, 0}); err != nil {
		t.Fatal(err)
	}
	if samples[2] != 6 || samples[3] != 0 {
		t.Fatalf("in-place result %v", samples)
	}
	if err := ApplyCoefficientsInPlace(samples, samples[:2]); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func BenchmarkGenerateHann1024(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Generate(TypeHann, 1024, WithPeriodic())
	}
}
