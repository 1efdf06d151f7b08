package spectrum

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/dsp/fourier"
)

func randomSignal(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func TestDFTMatchesFFT(t *testing.T) {
	for _, n := range []int{8, 64, 256, 1024} {
		src := randomSignal(n, uint64(n))

		want := make([]complex128, n)
		if err := DFT(want, src); err != nil {
			t.Fatal(err)
		}

		fft, err := newFFTTransform(n)
		if err != nil {
			t.Fatal(err)
		}
		got := make([]complex128, n)
		if err := fft.forward(got, src); err != nil {
			t.Fatal(err)
		}

		for k := range n {
			if cmplx.Abs(got[k]-want[k]) > 1e-9*float64(n) {
				t.Fatalf("n=%d bin %d: fft=%v dft=%v", n, k, got[k], want[k])
			}
		}
	}
}

func TestDFTMatchesGonum(t *testing.T) {
	const n = 96

	src := randomSignal(n, 7)
	got := make([]complex128, n)
	if err := DFT(got, src); err != nil {
		t.Fatal(err)
	}

	ref := fourier.NewFFT(n).Coefficients(nil, src)
	for k := range ref {
		if cmplx.Abs(got[k]-ref[k]) > 1e-9 {
			t.Fatalf("bin %d: dft=%v gonum=%v", k, got[k], ref[k])
		}
	}
}

func TestDFTLengthMismatch(t *testing.T) {
	if err := DFT(make([]complex128, 3), make([]float64, 4)); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestDFTImpulseIsFlat(t *testing.T) {
	src := make([]float64, 16)
	src[0] = 1

	dst := make([]complex128, 16)
	if err := DFT(dst, src); err != nil {
		t.Fatal(err)
	}

	for k, c := range dst {
		if math.Abs(cmplx.Abs(c)-1) > 1e-12 {
			t.Fatalf("bin %d magnitude %v, want 1", k, cmplx.Abs(c))
		}
	}
}

func TestMagnitude(t *testing.T) {
	mag := Magnitude([]complex128{3 + 4i, -1 - 1i, 0})
	if len(mag) != 3 {
		t.Fatalf("len=%d", len(mag))
	}
	if math.Abs(mag[0]-5) > 1e-12 || math.Abs(mag[1]-math.Sqrt2) > 1e-12 || mag[2] != 0 {
		t.Fatalf("unexpected magnitudes %v", mag)
	}

	if Magnitude(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}
