package dynamics

import (
	"math"
)

const (
	DefaultCompressorThresholdDB = -12.0
	DefaultCompressorRatio       = 3.0
	DefaultCompressorKneeDB      = 6.0
	DefaultCompressorAttackMs    = 10.0
	DefaultCompressorReleaseMs   = 120.0
	DefaultCompressorMakeupDB    = 0.0

	minCompressorThresholdDB = -80.0
	maxCompressorThresholdDB = 0.0
	minCompressorRatio       = 1.0
	maxCompressorRatio       = 100.0
	minCompressorAttackMs    = 0.1
	maxCompressorAttackMs    = 1000.0
	minCompressorReleaseMs   = 1.0
	maxCompressorReleaseMs   = 5000.0
	minCompressorKneeDB      = 0.0
	maxCompressorKneeDB      = 24.0
	minCompressorMakeupDB    = -24.0
	maxCompressorMakeupDB    = 24.0
)

// CompressorMetrics holds metering information since the last reset.
type CompressorMetrics struct {
	InputPeak     float64 // Maximum input level
	OutputPeak    float64 // Maximum output level
	GainReduction float64 // Minimum applied gain (1 = no reduction)
}

// Compressor is a soft-knee downward compressor.
//
// The gain computer works in the log2 domain with a quadratic knee around
// the threshold. In stereo the detector follows the louder channel and the
// same gain is applied to both, so the stereo image does not shift.
//
// Out-of-range parameters are clamped; non-finite values are rejected.
type Compressor struct {
	thresholdDB  float64
	ratio        float64
	kneeDB       float64
	attackMs     float64
	releaseMs    float64
	makeupGainDB float64
	autoMakeup   bool
	sampleRate   float64

	envelope float64

	attackCoeff   float64
	releaseCoeff  float64
	knee          knee
	slope         float64 // 1 - 1/ratio
	makeupGainLin float64

	metrics CompressorMetrics
}

// NewCompressor creates a compressor with the chain defaults: -12 dB
// threshold, 3:1 ratio, 6 dB knee, 10 ms attack, 120 ms release and no
// makeup gain.
func NewCompressor(sampleRate float64) (*Compressor, error) {
	if err := validateSampleRate("compressor", sampleRate); err != nil {
		return nil, err
	}

	c := &Compressor{
		thresholdDB:  DefaultCompressorThresholdDB,
		ratio:        DefaultCompressorRatio,
		kneeDB:       DefaultCompressorKneeDB,
		attackMs:     DefaultCompressorAttackMs,
		releaseMs:    DefaultCompressorReleaseMs,
		makeupGainDB: DefaultCompressorMakeupDB,
		sampleRate:   sampleRate,
		metrics:      CompressorMetrics{GainReduction: 1},
	}
	c.updateCoefficients()
	return c, nil
}

// SetThreshold sets the threshold in dB, clamped to [-80, 0].
func (c *Compressor) SetThreshold(dB float64) error {
	v, err := clampParam("compressor", "threshold", dB, minCompressorThresholdDB, maxCompressorThresholdDB)
	if err != nil {
		return err
	}
	c.thresholdDB = v
	c.updateCoefficients()
	return nil
}

// SetRatio sets the compression ratio, clamped to [1, 100].
//   - 1 = no compression
//   - 100 ≈ limiting
func (c *Compressor) SetRatio(ratio float64) error {
	v, err := clampParam("compressor", "ratio", ratio, minCompressorRatio, maxCompressorRatio)
	if err != nil {
		return err
	}
	c.ratio = v
	c.updateCoefficients()
	return nil
}

// SetKnee sets the soft-knee width in dB, clamped to [0, 24]. 0 is a hard
// knee.
func (c *Compressor) SetKnee(kneeDB float64) error {
	v, err := clampParam("compressor", "knee", kneeDB, minCompressorKneeDB, maxCompressorKneeDB)
	if err != nil {
		return err
	}
	c.kneeDB = v
	c.updateCoefficients()
	return nil
}

// SetAttack sets the attack time in milliseconds, clamped to [0.1, 1000].
func (c *Compressor) SetAttack(ms float64) error {
	v, err := clampParam("compressor", "attack", ms, minCompressorAttackMs, maxCompressorAttackMs)
	if err != nil {
		return err
	}
	c.attackMs = v
	c.updateTimeConstants()
	return nil
}

// SetRelease sets the release time in milliseconds, clamped to [1, 5000].
func (c *Compressor) SetRelease(ms float64) error {
	v, err := clampParam("compressor", "release", ms, minCompressorReleaseMs, maxCompressorReleaseMs)
	if err != nil {
		return err
	}
	c.releaseMs = v
	c.updateTimeConstants()
	return nil
}

// SetMakeupGain sets a manual makeup gain in dB and disables auto makeup.
func (c *Compressor) SetMakeupGain(dB float64) error {
	v, err := clampParam("compressor", "makeup gain", dB, minCompressorMakeupDB, maxCompressorMakeupDB)
	if err != nil {
		return err
	}
	c.makeupGainDB = v
	c.autoMakeup = false
	c.updateCoefficients()
	return nil
}

// SetAutoMakeup enables makeup gain that compensates the reduction at the
// threshold.
func (c *Compressor) SetAutoMakeup(enable bool) {
	c.autoMakeup = enable
	c.updateCoefficients()
}

// SetSampleRate updates the sample rate and recalculates time constants.
func (c *Compressor) SetSampleRate(sampleRate float64) error {
	if err := validateSampleRate("compressor", sampleRate); err != nil {
		return err
	}
	c.sampleRate = sampleRate
	c.updateTimeConstants()
	return nil
}

func (c *Compressor) Threshold() float64  { return c.thresholdDB }
func (c *Compressor) Ratio() float64      { return c.ratio }
func (c *Compressor) Knee() float64       { return c.kneeDB }
func (c *Compressor) Attack() float64     { return c.attackMs }
func (c *Compressor) Release() float64    { return c.releaseMs }
func (c *Compressor) MakeupGain() float64 { return c.makeupGainDB }
func (c *Compressor) AutoMakeup() bool    { return c.autoMakeup }
func (c *Compressor) SampleRate() float64 { return c.sampleRate }

// ProcessSample compresses one sample.
func (c *Compressor) ProcessSample(x float32) float32 {
	level := math.Abs(float64(x))
	g := c.gainFor(level)
	y := float32(float64(x) * g)
	c.meter(level, math.Abs(float64(y)), g)
	return y
}

// ProcessMono compresses src into dst. dst may alias src. Only the common
// length is processed.
func (c *Compressor) ProcessMono(dst, src []float32) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = c.ProcessSample(src[i])
	}
}

// ProcessStereo compresses both channels with a linked detector. Only the
// common length of all four slices is processed.
func (c *Compressor) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	n := min(len(dstL), len(dstR), len(srcL), len(srcR))
	for i := range n {
		l, r := srcL[i], srcR[i]
		level := peakLevel(l, r)
		g := c.gainFor(level)
		dstL[i] = float32(float64(l) * g)
		dstR[i] = float32(float64(r) * g)
		c.meter(level, peakLevel(dstL[i], dstR[i]), g)
	}
}

// CalculateOutputLevel returns the static output level for an input
// magnitude, ignoring the envelope follower.
func (c *Compressor) CalculateOutputLevel(inputMagnitude float64) float64 {
	inputMagnitude = math.Abs(inputMagnitude)
	return inputMagnitude * c.staticGain(inputMagnitude) * c.makeupGainLin
}

// Reset clears the envelope follower and metrics.
func (c *Compressor) Reset() {
	c.envelope = 0
	c.ResetMetrics()
}

// Metrics returns the current metering values.
func (c *Compressor) Metrics() CompressorMetrics {
	return c.metrics
}

// ResetMetrics clears metering state.
func (c *Compressor) ResetMetrics() {
	c.metrics = CompressorMetrics{GainReduction: 1}
}

// gainFor advances the envelope with level and returns the total linear
// gain including makeup.
func (c *Compressor) gainFor(level float64) float64 {
	if level > c.envelope {
		c.envelope += (level - c.envelope) * c.attackCoeff
	} else {
		c.envelope = level + (c.envelope-level)*c.releaseCoeff
	}
	return c.staticGain(c.envelope) * c.makeupGainLin
}

func (c *Compressor) staticGain(level float64) float64 {
	if level <= 0 || c.slope == 0 {
		return 1
	}
	over := c.knee.above(level)
	if over == 0 {
		return 1
	}
	return mathPower2(-over * c.slope)
}

func (c *Compressor) meter(in, out, gain float64) {
	if in > c.metrics.InputPeak {
		c.metrics.InputPeak = in
	}
	if out > c.metrics.OutputPeak {
		c.metrics.OutputPeak = out
	}
	if gain < c.metrics.GainReduction {
		c.metrics.GainReduction = gain
	}
}

func (c *Compressor) updateCoefficients() {
	c.knee = newKnee(c.thresholdDB, c.kneeDB)
	c.slope = 1 - 1/c.ratio

	if c.autoMakeup {
		c.makeupGainDB = -c.thresholdDB * c.slope
	}
	c.makeupGainLin = mathPower10(c.makeupGainDB / 20)

	c.updateTimeConstants()
}

func (c *Compressor) updateTimeConstants() {
	// Attack: 1 - exp(-ln2 / (attack_sec * fs))
	c.attackCoeff = 1 - math.Exp(-math.Ln2/(c.attackMs*0.001*c.sampleRate))
	// Release: exp(-ln2 / (release_sec * fs))
	c.releaseCoeff = math.Exp(-math.Ln2 / (c.releaseMs * 0.001 * c.sampleRate))
}
