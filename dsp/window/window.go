// Package window generates cosine-sum analysis windows for the spectrum
// analyzer.
package window

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a cosine-sum window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	TypeBlackmanHarris
)

var (
	// ErrUnknownType is returned by ParseType for names it does not know.
	ErrUnknownType = errors.New("window: unknown type")

	errEmpty    = errors.New("window: coefficients must not be empty")
	errZeroGain = errors.New("window: coherent gain is zero")
	errLength   = errors.New("window: samples and coefficients differ in length")
)

type shape struct {
	name  string
	terms []float64
}

var shapes = [...]shape{
	TypeRectangular:    {"rectangular", []float64{1}},
	TypeHann:           {"hann", []float64{0.5, -0.5}},
	TypeHamming:        {"hamming", []float64{0.54, -0.46}},
	TypeBlackman:       {"blackman", []float64{0.42, -0.5, 0.08}},
	TypeBlackmanHarris: {"blackman-harris", []float64{0.35875, -0.48829, 0.14128, -0.01168}},
}

// Valid reports whether t names a known window.
func (t Type) Valid() bool { return t >= 0 && int(t) < len(shapes) }

// String returns the lower-case window name.
func (t Type) String() string {
	if !t.Valid() {
		return "unknown"
	}
	return shapes[t].name
}

// ParseType resolves a window name case-insensitively. "rect" and
// "blackmanharris" are accepted as aliases.
func ParseType(name string) (Type, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "rect":
		return TypeRectangular, nil
	case "blackmanharris":
		return TypeBlackmanHarris, nil
	}
	for t := range shapes {
		if shapes[t].name == n {
			return Type(t), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic selects the periodic form used for FFT framing instead of the
// symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns length window coefficients. Unknown types yield a
// rectangular window and non-positive lengths yield nil.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if !t.Valid() {
		t = TypeRectangular
	}
	terms := shapes[t].terms

	den := float64(length - 1)
	if cfg.periodic || length == 1 {
		den = float64(length)
	}

	out := make([]float64, length)
	for i := range out {
		phase := 2 * math.Pi * float64(i) / den
		var v float64
		for k, c := range terms {
			v += c * math.Cos(float64(k)*phase)
		}
		out[i] = v
	}
	return out
}

// Apply multiplies buf in place by the selected window.
func Apply(t Type, buf []float64, opts ...Option) {
	if len(buf) == 0 {
		return
	}
	vecmath.MulBlockInPlace(buf, Generate(t, len(buf), opts...))
}

// ApplyCoefficientsInPlace multiplies samples by precomputed coefficients.
func ApplyCoefficientsInPlace(samples, coeffs []float64) error {
	if len(samples) != len(coeffs) {
		return errLength
	}
	vecmath.MulBlockInPlace(samples, coeffs)
	return nil
}

// CoherentGain returns sum(w[n]) / N, the DC response of the window.
func CoherentGain(coeffs []float64) (float64, error) {
	if len(coeffs) == 0 {
		return 0, errEmpty
	}
	var sum float64
	for _, c := range coeffs {
		sum += c
	}
	return sum / float64(len(coeffs)), nil
}

// EquivalentNoiseBandwidth returns the ENBW of a window in bins.
func EquivalentNoiseBandwidth(coeffs []float64) (float64, error) {
	if len(coeffs) == 0 {
		return 0, errEmpty
	}
	var sum, sq float64
	for _, c := range coeffs {
		sum += c
		sq += c * c
	}
	if sum == 0 {
		return 0, errZeroGain
	}
	return float64(len(coeffs)) * sq / (sum * sum), nil
}
