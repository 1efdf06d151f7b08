package design

import (
	"math"

	"github.com/cwbudde/algo-eqchain/dsp/filter/biquad"
)

const (
	defaultQ = 1 / math.Sqrt2

	// ShelfSlope is the cookbook shelf slope used by LowShelf and HighShelf.
	ShelfSlope = 1.0
)

// Design returns normalized coefficients for shape t. gainDB is ignored by
// shapes that do not use it.
func Design(t Type, freq, q, gainDB, sampleRate float64) biquad.Coefficients {
	switch t {
	case Lowpass:
		return LowpassRBJ(freq, q, sampleRate)
	case Highpass:
		return HighpassRBJ(freq, q, sampleRate)
	case Bandpass:
		return BandpassRBJ(freq, q, sampleRate)
	case Notch:
		return NotchRBJ(freq, q, sampleRate)
	case LowShelf:
		return LowShelfRBJ(freq, gainDB, ShelfSlope, sampleRate)
	case HighShelf:
		return HighShelfRBJ(freq, gainDB, ShelfSlope, sampleRate)
	case Allpass:
		return AllpassRBJ(freq, q, sampleRate)
	default:
		return PeakingRBJ(freq, q, gainDB, sampleRate)
	}
}

// Apply designs shape t and installs the result on f.
func Apply(f *biquad.Filter, t Type, freq, q, gainDB, sampleRate float64) {
	f.SetNormalized(Design(t, freq, q, gainDB, sampleRate))
}

// LowpassRBJ designs a second-order lowpass at freq (Hz).
func LowpassRBJ(freq, q, sampleRate float64) biquad.Coefficients {
	cw, alpha, ok := prewarp(freq, q, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	return biquad.Normalize(
		(1-cw)/2, 1-cw, (1-cw)/2,
		1+alpha, -2*cw, 1-alpha,
	)
}

// HighpassRBJ designs a second-order highpass at freq (Hz).
func HighpassRBJ(freq, q, sampleRate float64) biquad.Coefficients {
	cw, alpha, ok := prewarp(freq, q, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	return biquad.Normalize(
		(1+cw)/2, -(1 + cw), (1+cw)/2,
		1+alpha, -2*cw, 1-alpha,
	)
}

// BandpassRBJ designs a constant 0 dB peak gain bandpass.
func BandpassRBJ(freq, q, sampleRate float64) biquad.Coefficients {
	cw, alpha, ok := prewarp(freq, q, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	return biquad.Normalize(
		alpha, 0, -alpha,
		1+alpha, -2*cw, 1-alpha,
	)
}

// NotchRBJ designs a notch centered at freq (Hz).
func NotchRBJ(freq, q, sampleRate float64) biquad.Coefficients {
	cw, alpha, ok := prewarp(freq, q, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	return biquad.Normalize(
		1, -2*cw, 1,
		1+alpha, -2*cw, 1-alpha,
	)
}

// AllpassRBJ designs a second-order allpass centered at freq (Hz).
func AllpassRBJ(freq, q, sampleRate float64) biquad.Coefficients {
	cw, alpha, ok := prewarp(freq, q, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	return biquad.Normalize(
		1-alpha, -2*cw, 1+alpha,
		1+alpha, -2*cw, 1-alpha,
	)
}

// PeakingRBJ designs a peaking EQ with gainDB at freq (Hz).
func PeakingRBJ(freq, q, gainDB, sampleRate float64) biquad.Coefficients {
	cw, alpha, ok := prewarp(freq, q, sampleRate)
	if !ok || !finite(gainDB) {
		return biquad.Identity()
	}

	a := math.Pow(10, gainDB/40)

	return biquad.Normalize(
		1+alpha*a, -2*cw, 1-alpha*a,
		1+alpha/a, -2*cw, 1-alpha/a,
	)
}

// LowShelfRBJ designs a low shelf with gainDB below freq (Hz) using the
// cookbook shelf slope parameter.
func LowShelfRBJ(freq, gainDB, slope, sampleRate float64) biquad.Coefficients {
	cw, sa, a, ok := shelfPrewarp(freq, gainDB, slope, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	return biquad.Normalize(
		a*((a+1)-(a-1)*cw+sa),
		2*a*((a-1)-(a+1)*cw),
		a*((a+1)-(a-1)*cw-sa),
		(a+1)+(a-1)*cw+sa,
		-2*((a-1)+(a+1)*cw),
		(a+1)+(a-1)*cw-sa,
	)
}

// HighShelfRBJ designs a high shelf with gainDB above freq (Hz) using the
// cookbook shelf slope parameter.
func HighShelfRBJ(freq, gainDB, slope, sampleRate float64) biquad.Coefficients {
	cw, sa, a, ok := shelfPrewarp(freq, gainDB, slope, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	return biquad.Normalize(
		a*((a+1)+(a-1)*cw+sa),
		-2*a*((a-1)+(a+1)*cw),
		a*((a+1)+(a-1)*cw-sa),
		(a+1)-(a-1)*cw+sa,
		2*((a-1)-(a+1)*cw),
		(a+1)-(a-1)*cw-sa,
	)
}

// prewarp returns cos(w0) and alpha = sin(w0)/(2Q).
func prewarp(freq, q, sampleRate float64) (cw, alpha float64, ok bool) {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok {
		return 0, 0, false
	}

	q = normalizedQ(q)
	return math.Cos(w0), math.Sin(w0) / (2 * q), true
}

// shelfPrewarp returns cos(w0), 2*sqrt(A)*alpha and A for the slope form
// alpha = sin(w0)/2 * sqrt((A + 1/A)(1/S - 1) + 2).
func shelfPrewarp(freq, gainDB, slope, sampleRate float64) (cw, sqrtAAlpha2, a float64, ok bool) {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok || !finite(gainDB) {
		return 0, 0, 0, false
	}

	if slope <= 0 || !finite(slope) {
		slope = ShelfSlope
	}

	a = math.Pow(10, gainDB/40)
	k := (a+1/a)*(1/slope-1) + 2
	if k < 0 {
		k = 0
	}
	alpha := math.Sin(w0) / 2 * math.Sqrt(k)

	return math.Cos(w0), 2 * math.Sqrt(a) * alpha, a, true
}

func normalizedW0(freq, sampleRate float64) (float64, bool) {
	if sampleRate <= 0 || !finite(sampleRate) {
		return 0, false
	}

	nyquist := sampleRate / 2
	if freq <= 0 || freq >= nyquist || !finite(freq) {
		return 0, false
	}

	return 2 * math.Pi * freq / sampleRate, true
}

func normalizedQ(q float64) float64 {
	if q <= 0 || !finite(q) {
		return defaultQ
	}

	return q
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
