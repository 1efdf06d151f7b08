package effects

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-eqchain/dsp/core"
	"github.com/cwbudde/algo-eqchain/dsp/effects/dynamics"
)

const (
	// dcBlockerPole is the pole radius R of y = x - x1 + R*y1.
	dcBlockerPole = 0.995
	// dcTrackMs is the time constant of the DC estimate.
	dcTrackMs = 50.0

	// feedbackAttenuation is applied to a block flagged as feedback (-6 dB).
	feedbackAttenuation = 0.5
	// feedbackHoldBlocks is how many consecutive blocks must score above
	// the threshold before attenuation starts.
	feedbackHoldBlocks = 3
	// feedbackMinRMS keeps silence and noise floor from being scored.
	feedbackMinRMS = 1e-3
	// feedbackMaxWindow bounds the autocorrelation work per block.
	feedbackMaxWindow = 1024
	// feedback lags cover tones between 50 Hz and 4 kHz.
	feedbackMinHz = 50.0
	feedbackMaxHz = 4000.0
)

// SafetyConfig holds the safety engine parameters.
type SafetyConfig struct {
	Enabled               bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	DCRemovalEnabled      bool    `json:"dcRemovalEnabled" yaml:"dc_removal_enabled" mapstructure:"dc_removal_enabled"`
	DCThreshold           float64 `json:"dcThreshold" yaml:"dc_threshold" mapstructure:"dc_threshold"`
	LimiterEnabled        bool    `json:"limiterEnabled" yaml:"limiter_enabled" mapstructure:"limiter_enabled"`
	LimiterThresholdDB    float64 `json:"limiterThresholdDb" yaml:"limiter_threshold_db" mapstructure:"limiter_threshold_db"`
	SoftKneeLimiter       bool    `json:"softKneeLimiter" yaml:"soft_knee_limiter" mapstructure:"soft_knee_limiter"`
	KneeWidthDB           float64 `json:"kneeWidthDb" yaml:"knee_width_db" mapstructure:"knee_width_db"`
	FeedbackDetectEnabled bool    `json:"feedbackDetectEnabled" yaml:"feedback_detect_enabled" mapstructure:"feedback_detect_enabled"`
	FeedbackCorrThreshold float64 `json:"feedbackCorrThreshold" yaml:"feedback_corr_threshold" mapstructure:"feedback_corr_threshold"`
}

// DefaultSafetyConfig returns the factory settings.
func DefaultSafetyConfig() SafetyConfig {
	return SafetyConfig{
		Enabled:               true,
		DCRemovalEnabled:      true,
		DCThreshold:           0.002,
		LimiterEnabled:        true,
		LimiterThresholdDB:    dynamics.DefaultLimiterThresholdDB,
		SoftKneeLimiter:       true,
		KneeWidthDB:           dynamics.DefaultLimiterKneeDB,
		FeedbackDetectEnabled: true,
		FeedbackCorrThreshold: 0.95,
	}
}

// SafetyReport describes the most recently processed block.
// FeedbackSuppressed is set when the block was attenuated because feedback
// had been detected for several consecutive blocks.
type SafetyReport struct {
	Peak               float64 `json:"peak"`
	RMS                float64 `json:"rms"`
	DCOffset           float64 `json:"dcOffset"`
	ClippedSamples     int     `json:"clippedSamples"`
	FeedbackScore      float64 `json:"feedbackScore"`
	FeedbackSuppressed bool    `json:"feedbackSuppressed"`
	Overload           bool    `json:"overload"`
}

// SafetyEngine is the last line of defense before the output. It removes
// DC and attenuates suspected acoustic feedback, then limits peaks and
// clamps every sample to [-1, 1].
//
// Feedback is suspected when the normalized autocorrelation of the block
// stays at or above the configured threshold for several consecutive
// blocks; each such block is attenuated by 6 dB.
type SafetyEngine struct {
	cfg        SafetyConfig
	sampleRate float64

	limiter *dynamics.Limiter

	dcCoeff float64
	dc      [2]dcBlocker

	minLag, maxLag int
	feedbackRun    int

	report reportCell
}

type dcBlocker struct {
	estimate float64
	x1, y1   float64
}

func (b *dcBlocker) reset() { *b = dcBlocker{} }

// process tracks the DC estimate and returns x with DC removed when
// engaged. The blocker runs continuously so engaging it does not click.
func (b *dcBlocker) process(x, trackCoeff float64, engaged bool) float64 {
	b.estimate = x + (b.estimate-x)*trackCoeff
	y := x - b.x1 + dcBlockerPole*b.y1
	b.x1 = x
	b.y1 = core.FlushDenormals(y)
	if engaged {
		return y
	}
	return x
}

// NewSafetyEngine creates a safety engine with the default configuration.
func NewSafetyEngine(sampleRate float64) (*SafetyEngine, error) {
	lim, err := dynamics.NewLimiter(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("safety: %w", err)
	}

	s := &SafetyEngine{limiter: lim}
	s.setSampleRate(sampleRate)
	if err := s.Configure(DefaultSafetyConfig()); err != nil {
		return nil, err
	}
	return s, nil
}

// Configure applies cfg. The DC threshold and correlation threshold are
// clamped to [0, 1].
func (s *SafetyEngine) Configure(cfg SafetyConfig) error {
	if !core.IsFinite(cfg.DCThreshold) || !core.IsFinite(cfg.FeedbackCorrThreshold) {
		return fmt.Errorf("safety thresholds must be finite: dc=%f corr=%f",
			cfg.DCThreshold, cfg.FeedbackCorrThreshold)
	}
	if err := s.limiter.SetThreshold(cfg.LimiterThresholdDB); err != nil {
		return fmt.Errorf("safety: configure limiter threshold: %w", err)
	}
	if err := s.limiter.SetKnee(cfg.KneeWidthDB); err != nil {
		return fmt.Errorf("safety: configure limiter knee: %w", err)
	}
	s.limiter.SetSoftKnee(cfg.SoftKneeLimiter)

	cfg.DCThreshold = core.Clamp(cfg.DCThreshold, 0, 1)
	cfg.FeedbackCorrThreshold = core.Clamp(cfg.FeedbackCorrThreshold, 0, 1)
	cfg.LimiterThresholdDB = s.limiter.Threshold()
	cfg.KneeWidthDB = s.limiter.Knee()
	s.cfg = cfg
	return nil
}

// Config returns the effective configuration.
func (s *SafetyEngine) Config() SafetyConfig { return s.cfg }

// SetSampleRate retimes the DC tracker, limiter and feedback lag range.
func (s *SafetyEngine) SetSampleRate(sampleRate float64) error {
	if err := s.limiter.SetSampleRate(sampleRate); err != nil {
		return fmt.Errorf("safety: %w", err)
	}
	s.setSampleRate(sampleRate)
	s.Reset()
	return nil
}

func (s *SafetyEngine) setSampleRate(sampleRate float64) {
	s.sampleRate = sampleRate
	s.dcCoeff = core.SmoothingCoeff(dcTrackMs, sampleRate)
	s.minLag = max(1, int(sampleRate/feedbackMaxHz))
	s.maxLag = max(s.minLag, int(sampleRate/feedbackMinHz))
}

// Reset clears all filter and detector state and the report.
func (s *SafetyEngine) Reset() {
	s.dc[0].reset()
	s.dc[1].reset()
	s.limiter.Reset()
	s.feedbackRun = 0
	s.report.store(SafetyReport{})
}

// Report returns a consistent copy of the latest block report. It is safe
// to call from any goroutine.
func (s *SafetyEngine) Report() SafetyReport {
	return s.report.load()
}

// ProcessMono runs the safety stages over src into dst. dst may alias src.
func (s *SafetyEngine) ProcessMono(dst, src []float32) {
	n := min(len(dst), len(src))
	s.process(dst[:n], nil, src[:n], nil)
}

// ProcessStereo runs the safety stages over both channels with linked
// limiting and feedback detection on the mid signal.
func (s *SafetyEngine) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	n := core.CommonLen(dstL, dstR, srcL, srcR)
	s.process(dstL[:n], dstR[:n], srcL[:n], srcR[:n])
}

func (s *SafetyEngine) process(dstL, dstR, srcL, srcR []float32) {
	stereo := dstR != nil
	if !s.cfg.Enabled {
		copy(dstL, srcL)
		if stereo {
			copy(dstR, srcR)
		}
		s.measure(dstL, dstR, 0, 0, 0, false)
		return
	}

	dcOffset := 0.0
	if s.cfg.DCRemovalEnabled {
		dcOffset = s.removeDC(&s.dc[0], dstL, srcL)
		if stereo {
			dcOffset = math.Max(dcOffset, s.removeDC(&s.dc[1], dstR, srcR))
		}
	} else {
		copy(dstL, srcL)
		if stereo {
			copy(dstR, srcR)
		}
	}

	score := 0.0
	suppressed := false
	if s.cfg.FeedbackDetectEnabled {
		score = s.feedbackScore(dstL, dstR)
		if score >= s.cfg.FeedbackCorrThreshold {
			s.feedbackRun++
		} else {
			s.feedbackRun = 0
		}
		if s.feedbackRun >= feedbackHoldBlocks {
			suppressed = true
			core.Scale(dstL, feedbackAttenuation)
			if stereo {
				core.Scale(dstR, feedbackAttenuation)
			}
		}
	}

	if s.cfg.LimiterEnabled {
		if stereo {
			s.limiter.ProcessStereo(dstL, dstR, dstL, dstR)
		} else {
			s.limiter.ProcessMono(dstL, dstL)
		}
	}

	clipped := hardClamp(dstL)
	if stereo {
		clipped += hardClamp(dstR)
	}
	s.measure(dstL, dstR, dcOffset, clipped, score, suppressed)
}

// removeDC returns the absolute DC estimate at the end of the block.
func (s *SafetyEngine) removeDC(b *dcBlocker, dst, src []float32) float64 {
	engaged := math.Abs(b.estimate) > s.cfg.DCThreshold
	for i, x := range src {
		dst[i] = float32(b.process(float64(x), s.dcCoeff, engaged))
	}
	return math.Abs(b.estimate)
}

// feedbackScore returns the highest normalized autocorrelation of the mid
// signal over the feedback lag range. Howling feedback is a sustained
// sinusoid, which correlates almost perfectly with itself one period later.
func (s *SafetyEngine) feedbackScore(l, r []float32) float64 {
	n := min(len(l), feedbackMaxWindow)
	maxLag := min(s.maxLag, n/2)
	if maxLag < s.minLag {
		return 0
	}

	mid := func(i int) float64 {
		if r == nil {
			return float64(l[i])
		}
		return 0.5 * (float64(l[i]) + float64(r[i]))
	}

	var energy float64
	for i := range n {
		v := mid(i)
		energy += v * v
	}
	if math.Sqrt(energy/float64(n)) < feedbackMinRMS {
		return 0
	}

	best := 0.0
	for lag := s.minLag; lag <= maxLag; lag++ {
		var num, e0, e1 float64
		for i := 0; i+lag < n; i++ {
			a, b := mid(i), mid(i+lag)
			num += a * b
			e0 += a * a
			e1 += b * b
		}
		if e0 <= 0 || e1 <= 0 {
			continue
		}
		if c := num / math.Sqrt(e0*e1); c > best {
			best = c
		}
	}
	return best
}

// hardClamp bounds buf to [-1, 1] and returns how many samples exceeded it.
func hardClamp(buf []float32) int {
	clipped := 0
	for i, v := range buf {
		if v > 1 || v < -1 {
			clipped++
			buf[i] = core.Clamp32(v, -1, 1)
		}
	}
	return clipped
}

func (s *SafetyEngine) measure(l, r []float32, dcOffset float64, clipped int, score float64, suppressed bool) {
	var peak, sum float64
	count := 0
	for _, ch := range [2][]float32{l, r} {
		for _, v := range ch {
			a := math.Abs(float64(v))
			peak = math.Max(peak, a)
			sum += a * a
		}
		count += len(ch)
	}

	rep := SafetyReport{
		Peak:               peak,
		DCOffset:           dcOffset,
		ClippedSamples:     clipped,
		FeedbackScore:      score,
		FeedbackSuppressed: suppressed,
		Overload:           peak >= 1 || clipped > 0,
	}
	if count > 0 {
		rep.RMS = math.Sqrt(sum / float64(count))
	}
	s.report.store(rep)
}

const (
	reportOverload = 1 << iota
	reportFeedback
)

// reportCell publishes a SafetyReport from the audio goroutine to readers
// without locks. The sequence counter is odd while a write is in progress.
type reportCell struct {
	seq    atomic.Uint64
	fields [6]atomic.Uint64
}

func (c *reportCell) store(r SafetyReport) {
	c.seq.Add(1)
	c.fields[0].Store(math.Float64bits(r.Peak))
	c.fields[1].Store(math.Float64bits(r.RMS))
	c.fields[2].Store(math.Float64bits(r.DCOffset))
	c.fields[3].Store(uint64(r.ClippedSamples))
	c.fields[4].Store(math.Float64bits(r.FeedbackScore))
	var flags uint64
	if r.Overload {
		flags |= reportOverload
	}
	if r.FeedbackSuppressed {
		flags |= reportFeedback
	}
	c.fields[5].Store(flags)
	c.seq.Add(1)
}

func (c *reportCell) load() SafetyReport {
	for {
		start := c.seq.Load()
		if start&1 == 1 {
			continue
		}
		r := SafetyReport{
			Peak:           math.Float64frombits(c.fields[0].Load()),
			RMS:            math.Float64frombits(c.fields[1].Load()),
			DCOffset:       math.Float64frombits(c.fields[2].Load()),
			ClippedSamples: int(c.fields[3].Load()),
			FeedbackScore:  math.Float64frombits(c.fields[4].Load()),
		}
		flags := c.fields[5].Load()
		r.Overload = flags&reportOverload != 0
		r.FeedbackSuppressed = flags&reportFeedback != 0
		if c.seq.Load() == start {
			return r
		}
	}
}
