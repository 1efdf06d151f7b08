package spectrum

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// DFT computes the direct O(N²) discrete Fourier transform of the real
// signal src into dst. len(dst) must equal len(src).
func DFT(dst []complex128, src []float64) error {
	n := len(src)
	if len(dst) != n {
		return fmt.Errorf("spectrum: dft length mismatch: dst=%d src=%d", len(dst), n)
	}

	for k := range n {
		var re, im float64
		for t, x := range src {
			// Reduce the phase index first to keep the argument small.
			phase := -2 * math.Pi * float64((k*t)%n) / float64(n)
			s, c := math.Sincos(phase)
			re += x * c
			im += x * s
		}
		dst[k] = complex(re, im)
	}

	return nil
}

// transform turns one windowed frame into complex bins.
type transform interface {
	forward(dst []complex128, frame []float64) error
}

type dftTransform struct{}

func (dftTransform) forward(dst []complex128, frame []float64) error {
	return DFT(dst, frame)
}

type fftTransform struct {
	plan *algofft.Plan[complex128]
	in   []complex128
}

func newFFTTransform(n int) (*fftTransform, error) {
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("spectrum: fft plan: %w", err)
	}

	return &fftTransform{plan: plan, in: make([]complex128, n)}, nil
}

func (f *fftTransform) forward(dst []complex128, frame []float64) error {
	for i, x := range frame {
		f.in[i] = complex(x, 0)
	}

	return f.plan.Forward(dst, f.in)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
