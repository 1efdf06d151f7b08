package dynamics

import (
	"math"

	"github.com/cwbudde/algo-eqchain/dsp/core"
)

const (
	DefaultExpanderThresholdDB = -45.0
	DefaultExpanderRatio       = 2.5
	DefaultExpanderRangeDB     = -18.0
	DefaultExpanderAttackMs    = 3.0
	DefaultExpanderReleaseMs   = 80.0

	minExpanderThresholdDB = -100.0
	maxExpanderThresholdDB = 0.0
	minExpanderRatio       = 1.0
	maxExpanderRatio       = 20.0
	minExpanderAttackMs    = 0.1
	maxExpanderAttackMs    = 1000.0
	minExpanderReleaseMs   = 1.0
	maxExpanderReleaseMs   = 5000.0
	minExpanderKneeDB      = 0.0
	maxExpanderKneeDB      = 24.0
	minExpanderRangeDB     = -120.0
	maxExpanderRangeDB     = 0.0
)

// Expander is a downward expander. Below the threshold the output level
// falls by ratio dB for every dB the input falls, and the attenuation never
// exceeds the range (floor).
//
// The envelope is a one-pole follower with separate attack and release
// coefficients exp(-1/(t*fs)).
type Expander struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	attackMs    float64
	releaseMs   float64
	rangeDB     float64
	sampleRate  float64

	envelope     float64
	attackCoeff  float64
	releaseCoeff float64
	knee         knee
	rangeLin     float64
	lastGain     float64
}

// NewExpander creates an expander with the noise-reduction defaults:
// -45 dB threshold, 2.5:1 ratio, -18 dB floor, 3 ms attack, 80 ms release
// and a hard knee.
func NewExpander(sampleRate float64) (*Expander, error) {
	if err := validateSampleRate("expander", sampleRate); err != nil {
		return nil, err
	}

	e := &Expander{
		thresholdDB: DefaultExpanderThresholdDB,
		ratio:       DefaultExpanderRatio,
		attackMs:    DefaultExpanderAttackMs,
		releaseMs:   DefaultExpanderReleaseMs,
		rangeDB:     DefaultExpanderRangeDB,
		sampleRate:  sampleRate,
		lastGain:    1,
	}
	e.updateCoefficients()
	return e, nil
}

// SetThreshold sets the threshold in dB, clamped to [-100, 0].
func (e *Expander) SetThreshold(dB float64) error {
	v, err := clampParam("expander", "threshold", dB, minExpanderThresholdDB, maxExpanderThresholdDB)
	if err != nil {
		return err
	}
	e.thresholdDB = v
	e.updateCoefficients()
	return nil
}

// SetRatio sets the expansion ratio, clamped to [1, 20].
func (e *Expander) SetRatio(ratio float64) error {
	v, err := clampParam("expander", "ratio", ratio, minExpanderRatio, maxExpanderRatio)
	if err != nil {
		return err
	}
	e.ratio = v
	return nil
}

// SetKnee sets the soft-knee width in dB, clamped to [0, 24].
func (e *Expander) SetKnee(kneeDB float64) error {
	v, err := clampParam("expander", "knee", kneeDB, minExpanderKneeDB, maxExpanderKneeDB)
	if err != nil {
		return err
	}
	e.kneeDB = v
	e.updateCoefficients()
	return nil
}

// SetAttack sets the attack time in milliseconds.
func (e *Expander) SetAttack(ms float64) error {
	v, err := clampParam("expander", "attack", ms, minExpanderAttackMs, maxExpanderAttackMs)
	if err != nil {
		return err
	}
	e.attackMs = v
	e.updateTimeConstants()
	return nil
}

// SetRelease sets the release time in milliseconds.
func (e *Expander) SetRelease(ms float64) error {
	v, err := clampParam("expander", "release", ms, minExpanderReleaseMs, maxExpanderReleaseMs)
	if err != nil {
		return err
	}
	e.releaseMs = v
	e.updateTimeConstants()
	return nil
}

// SetRange sets the maximum attenuation (floor) in dB, clamped to
// [-120, 0].
func (e *Expander) SetRange(dB float64) error {
	v, err := clampParam("expander", "range", dB, minExpanderRangeDB, maxExpanderRangeDB)
	if err != nil {
		return err
	}
	e.rangeDB = v
	e.rangeLin = mathPower10(v / 20)
	return nil
}

// SetSampleRate updates the sample rate.
func (e *Expander) SetSampleRate(sampleRate float64) error {
	if err := validateSampleRate("expander", sampleRate); err != nil {
		return err
	}
	e.sampleRate = sampleRate
	e.updateTimeConstants()
	return nil
}

func (e *Expander) Threshold() float64  { return e.thresholdDB }
func (e *Expander) Ratio() float64      { return e.ratio }
func (e *Expander) Knee() float64       { return e.kneeDB }
func (e *Expander) Attack() float64     { return e.attackMs }
func (e *Expander) Release() float64    { return e.releaseMs }
func (e *Expander) Range() float64      { return e.rangeDB }
func (e *Expander) SampleRate() float64 { return e.sampleRate }

// Gain returns the most recently applied linear gain.
func (e *Expander) Gain() float64 { return e.lastGain }

// ProcessSample expands one sample.
func (e *Expander) ProcessSample(x float32) float32 {
	g := e.gainFor(math.Abs(float64(x)))
	return float32(float64(x) * g)
}

// ProcessMono expands src into dst. dst may alias src.
func (e *Expander) ProcessMono(dst, src []float32) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = e.ProcessSample(src[i])
	}
}

// ProcessStereo expands both channels with a linked detector.
func (e *Expander) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	n := min(len(dstL), len(dstR), len(srcL), len(srcR))
	for i := range n {
		l, r := srcL[i], srcR[i]
		g := e.gainFor(peakLevel(l, r))
		dstL[i] = float32(float64(l) * g)
		dstR[i] = float32(float64(r) * g)
	}
}

// CalculateOutputLevel returns the static output level for an input
// magnitude.
func (e *Expander) CalculateOutputLevel(inputMagnitude float64) float64 {
	inputMagnitude = math.Abs(inputMagnitude)
	return inputMagnitude * e.staticGain(inputMagnitude)
}

// Reset clears the envelope.
func (e *Expander) Reset() {
	e.envelope = 0
	e.lastGain = 1
}

func (e *Expander) gainFor(level float64) float64 {
	coeff := e.releaseCoeff
	if level > e.envelope {
		coeff = e.attackCoeff
	}
	e.envelope = core.FlushDenormals(level + (e.envelope-level)*coeff)
	e.lastGain = e.staticGain(e.envelope)
	return e.lastGain
}

func (e *Expander) staticGain(level float64) float64 {
	if level <= 0 {
		return e.rangeLin
	}
	under := e.knee.below(level)
	if under == 0 {
		return 1
	}
	return math.Max(mathPower2(-under*(e.ratio-1)), e.rangeLin)
}

func (e *Expander) updateCoefficients() {
	e.knee = newKnee(e.thresholdDB, e.kneeDB)
	e.rangeLin = mathPower10(e.rangeDB / 20)
	e.updateTimeConstants()
}

func (e *Expander) updateTimeConstants() {
	e.attackCoeff = core.SmoothingCoeff(e.attackMs, e.sampleRate)
	e.releaseCoeff = core.SmoothingCoeff(e.releaseMs, e.sampleRate)
}
