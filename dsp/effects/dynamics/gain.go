package dynamics

import (
	"fmt"
	"math"
)

// log2Of10Div20 converts decibels to the log2 domain: log2(10) / 20.
const log2Of10Div20 = 0.166096404744

// knee holds a threshold and soft-knee width in the log2 domain.
type knee struct {
	thresholdLog2 float64
	widthLog2     float64
	invWidthLog2  float64
}

func newKnee(thresholdDB, kneeDB float64) knee {
	k := knee{
		thresholdLog2: thresholdDB * log2Of10Div20,
		widthLog2:     kneeDB * log2Of10Div20,
	}
	if k.widthLog2 > 0 {
		k.invWidthLog2 = 1 / k.widthLog2
	}
	return k
}

// shape maps a signed distance from the threshold (log2 units, positive on
// the side where gain is applied) to the effective distance after the
// quadratic soft knee.
func (k knee) shape(distance float64) float64 {
	if k.widthLog2 <= 0 {
		return math.Max(distance, 0)
	}

	half := k.widthLog2 * 0.5
	switch {
	case distance < -half:
		return 0
	case distance > half:
		return distance
	default:
		s := distance + half
		return s * s * 0.5 * k.invWidthLog2
	}
}

// above returns the effective overshoot of level above the threshold.
func (k knee) above(level float64) float64 {
	return k.shape(mathLog2(level) - k.thresholdLog2)
}

// below returns the effective undershoot of level below the threshold.
func (k knee) below(level float64) float64 {
	return k.shape(k.thresholdLog2 - mathLog2(level))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateSampleRate(stage string, sampleRate float64) error {
	if sampleRate <= 0 || !isFinite(sampleRate) {
		return fmt.Errorf("%s sample rate must be positive and finite: %f", stage, sampleRate)
	}
	return nil
}

// clampParam bounds v to [lo, hi] and rejects non-finite input.
func clampParam(stage, name string, v, lo, hi float64) (float64, error) {
	if !isFinite(v) {
		return 0, fmt.Errorf("%s %s must be finite: %f", stage, name, v)
	}
	return math.Min(math.Max(v, lo), hi), nil
}

// peakLevel returns the absolute peak of a sample pair as float64.
func peakLevel(l, r float32) float64 {
	a := math.Abs(float64(l))
	b := math.Abs(float64(r))
	if b > a {
		return b
	}
	return a
}
