//nolint:funcorder
package biquad

import (
	"math"
	"sync"

	"github.com/cwbudde/algo-eqchain/dsp/core"
	archregistry "github.com/cwbudde/algo-eqchain/dsp/filter/biquad/internal/arch/registry"
	"github.com/cwbudde/algo-vecmath/cpu"
)

// normEpsilon guards the normalization divide in SetCoefficients.
const normEpsilon = 1e-10

// Coefficients holds the normalized transfer function of one biquad:
//
//	H(z) = (B0 + B1*z^-1 + B2*z^-2) / (1 + A1*z^-1 + A2*z^-2)
type Coefficients struct {
	B0, B1, B2 float64 // feedforward (numerator)
	A1, A2     float64 // feedback (denominator)
}

// Identity returns the flat (pass-through) coefficient set.
func Identity() Coefficients {
	return Coefficients{B0: 1}
}

// Normalize divides b0..b2 and a1, a2 by a0. An |a0| below a small epsilon
// is treated as 1 so the result is always finite for finite input.
func Normalize(b0, b1, b2, a0, a1, a2 float64) Coefficients {
	if math.Abs(a0) < normEpsilon || !core.IsFinite(a0) {
		a0 = 1
	}
	inv := 1 / a0
	return Coefficients{
		B0: b0 * inv,
		B1: b1 * inv,
		B2: b2 * inv,
		A1: a1 * inv,
		A2: a2 * inv,
	}
}

// IsFinite reports whether all coefficients are finite.
func (c Coefficients) IsFinite() bool {
	return core.IsFinite(c.B0) && core.IsFinite(c.B1) && core.IsFinite(c.B2) &&
		core.IsFinite(c.A1) && core.IsFinite(c.A2)
}

// Filter is a single biquad section with independent left/right state.
type Filter struct {
	coeffs Coefficients
	left   archregistry.State
	right  archregistry.State
}

var (
	kernel         *archregistry.OpEntry
	kernelInitOnce sync.Once
)

// NewFilter returns a Filter with identity coefficients and zero state.
func NewFilter() *Filter {
	return &Filter{coeffs: Identity()}
}

// SetCoefficients normalizes the raw coefficients by a0 and stores them.
// State is preserved.
func (f *Filter) SetCoefficients(b0, b1, b2, a0, a1, a2 float64) {
	f.coeffs = Normalize(b0, b1, b2, a0, a1, a2)
}

// SetNormalized stores an already normalized coefficient set.
func (f *Filter) SetNormalized(c Coefficients) {
	f.coeffs = c
}

// Coefficients returns the active normalized coefficients.
func (f *Filter) Coefficients() Coefficients {
	return f.coeffs
}

// ProcessSample filters one sample through the left-channel state.
func (f *Filter) ProcessSample(x float32) float32 {
	c := &f.coeffs
	w := float64(x) - c.A1*f.left.W1 - c.A2*f.left.W2
	y := c.B0*w + c.B1*f.left.W1 + c.B2*f.left.W2
	f.left.W2 = f.left.W1
	f.left.W1 = archregistry.Flush(w)
	return float32(y)
}

// Process filters src into dst using the left-channel state. dst may alias
// src. Only the common length of both slices is processed. Zero-alloc.
func (f *Filter) Process(dst, src []float32) {
	f.ProcessWith(f.coeffs, dst, src)
}

// ProcessWith is Process with an explicit coefficient set. The equalizer
// uses it to run a filter against a coefficient snapshot it owns.
func (f *Filter) ProcessWith(c Coefficients, dst, src []float32) {
	n := min(len(dst), len(src))
	if n == 0 {
		return
	}
	f.left = blockKernel().ProcessBlock(toArch(c), f.left, dst[:n], src[:n])
}

// ProcessStereo filters both channels with independent state under one
// coefficient set. Only the common length of all four slices is processed.
func (f *Filter) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	f.ProcessStereoWith(f.coeffs, dstL, dstR, srcL, srcR)
}

// ProcessStereoWith is ProcessStereo with an explicit coefficient set.
func (f *Filter) ProcessStereoWith(c Coefficients, dstL, dstR, srcL, srcR []float32) {
	n := core.CommonLen(dstL, dstR, srcL, srcR)
	if n == 0 {
		return
	}
	f.left, f.right = blockKernel().ProcessStereo(toArch(c), f.left, f.right,
		dstL[:n], dstR[:n], srcL[:n], srcR[:n])
}

// Reset zeroes the state of both channels.
func (f *Filter) Reset() {
	f.left = archregistry.State{}
	f.right = archregistry.State{}
}

// State returns the delay-line contents [w1, w2] of channel 0 (left) or 1 (right).
func (f *Filter) State(channel int) [2]float64 {
	st := f.left
	if channel == 1 {
		st = f.right
	}
	return [2]float64{st.W1, st.W2}
}

// KernelName reports which block kernel is in use.
func KernelName() string {
	return blockKernel().Name
}

func blockKernel() *archregistry.OpEntry {
	kernelInitOnce.Do(initKernel)
	return kernel
}

func initKernel() {
	entry := archregistry.Global.Lookup(cpu.DetectFeatures())
	if entry == nil {
		panic("biquad: no block kernel registered (missing generic fallback?)")
	}

	if entry.ProcessBlock == nil || entry.ProcessStereo == nil {
		panic("biquad: selected kernel " + entry.Name + " is incomplete")
	}

	kernel = entry
}

func toArch(c Coefficients) archregistry.Coefficients {
	return archregistry.Coefficients{B0: c.B0, B1: c.B1, B2: c.B2, A1: c.A1, A2: c.A2}
}
