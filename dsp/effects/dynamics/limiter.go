package dynamics

import "math"

const (
	DefaultLimiterThresholdDB = -1.0
	DefaultLimiterKneeDB      = 6.0
	DefaultLimiterReleaseMs   = 50.0

	minLimiterThresholdDB = -40.0
	maxLimiterThresholdDB = 0.0
)

// Limiter is an instant-attack peak limiter. Its envelope jumps to every new
// peak and decays with the release time; the gain computer has an infinite
// ratio above the threshold with an optional quadratic soft knee.
//
// The knee starts reducing gain half a knee width below the threshold, so
// the static output never exceeds the threshold.
type Limiter struct {
	thresholdDB float64
	kneeDB      float64
	softKnee    bool
	releaseMs   float64
	sampleRate  float64

	envelope     float64
	releaseCoeff float64
	knee         knee
	minGain      float64
}

// NewLimiter creates a limiter at -1 dB with a 6 dB soft knee.
func NewLimiter(sampleRate float64) (*Limiter, error) {
	if err := validateSampleRate("limiter", sampleRate); err != nil {
		return nil, err
	}

	l := &Limiter{
		thresholdDB: DefaultLimiterThresholdDB,
		kneeDB:      DefaultLimiterKneeDB,
		softKnee:    true,
		releaseMs:   DefaultLimiterReleaseMs,
		sampleRate:  sampleRate,
		minGain:     1,
	}
	l.updateCoefficients()
	return l, nil
}

// SetThreshold sets the ceiling in dB, clamped to [-40, 0].
func (l *Limiter) SetThreshold(dB float64) error {
	v, err := clampParam("limiter", "threshold", dB, minLimiterThresholdDB, maxLimiterThresholdDB)
	if err != nil {
		return err
	}
	l.thresholdDB = v
	l.updateCoefficients()
	return nil
}

// SetKnee sets the soft-knee width in dB, clamped to [0, 24].
func (l *Limiter) SetKnee(kneeDB float64) error {
	v, err := clampParam("limiter", "knee", kneeDB, minCompressorKneeDB, maxCompressorKneeDB)
	if err != nil {
		return err
	}
	l.kneeDB = v
	l.updateCoefficients()
	return nil
}

// SetSoftKnee switches between the soft knee and a hard knee.
func (l *Limiter) SetSoftKnee(enabled bool) {
	l.softKnee = enabled
	l.updateCoefficients()
}

// SetRelease sets the release time in milliseconds.
func (l *Limiter) SetRelease(ms float64) error {
	v, err := clampParam("limiter", "release", ms, minCompressorReleaseMs, maxCompressorReleaseMs)
	if err != nil {
		return err
	}
	l.releaseMs = v
	l.updateCoefficients()
	return nil
}

// SetSampleRate updates the sample rate.
func (l *Limiter) SetSampleRate(sampleRate float64) error {
	if err := validateSampleRate("limiter", sampleRate); err != nil {
		return err
	}
	l.sampleRate = sampleRate
	l.updateCoefficients()
	return nil
}

func (l *Limiter) Threshold() float64 { return l.thresholdDB }
func (l *Limiter) Knee() float64      { return l.kneeDB }
func (l *Limiter) SoftKnee() bool     { return l.softKnee }
func (l *Limiter) Release() float64   { return l.releaseMs }

// MinGain returns the smallest gain applied since the last Reset.
func (l *Limiter) MinGain() float64 { return l.minGain }

// ProcessMono limits src into dst. dst may alias src.
func (l *Limiter) ProcessMono(dst, src []float32) {
	n := min(len(dst), len(src))
	for i := range n {
		x := src[i]
		g := l.gainFor(math.Abs(float64(x)))
		dst[i] = float32(float64(x) * g)
	}
}

// ProcessStereo limits both channels with a linked detector.
func (l *Limiter) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	n := min(len(dstL), len(dstR), len(srcL), len(srcR))
	for i := range n {
		a, b := srcL[i], srcR[i]
		g := l.gainFor(peakLevel(a, b))
		dstL[i] = float32(float64(a) * g)
		dstR[i] = float32(float64(b) * g)
	}
}

// CalculateOutputLevel returns the static output level for an input
// magnitude.
func (l *Limiter) CalculateOutputLevel(inputMagnitude float64) float64 {
	inputMagnitude = math.Abs(inputMagnitude)
	return inputMagnitude * l.staticGain(inputMagnitude)
}

// Reset clears the envelope and the gain meter.
func (l *Limiter) Reset() {
	l.envelope = 0
	l.minGain = 1
}

func (l *Limiter) gainFor(level float64) float64 {
	if level > l.envelope {
		l.envelope = level
	} else {
		l.envelope = level + (l.envelope-level)*l.releaseCoeff
	}
	g := l.staticGain(l.envelope)
	if g < l.minGain {
		l.minGain = g
	}
	return g
}

func (l *Limiter) staticGain(level float64) float64 {
	if level <= 0 {
		return 1
	}
	over := l.knee.above(level)
	if over == 0 {
		return 1
	}
	return mathPower2(-over)
}

func (l *Limiter) updateCoefficients() {
	kneeDB := 0.0
	if l.softKnee {
		kneeDB = l.kneeDB
	}
	l.knee = newKnee(l.thresholdDB, kneeDB)
	l.releaseCoeff = math.Exp(-math.Ln2 / (l.releaseMs * 0.001 * l.sampleRate))
}
