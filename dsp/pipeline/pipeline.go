package pipeline

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-eqchain/dsp/core"
	"github.com/cwbudde/algo-eqchain/dsp/effectchain"
	"github.com/cwbudde/algo-eqchain/dsp/effects"
	"github.com/cwbudde/algo-eqchain/dsp/eq"
	"github.com/cwbudde/algo-eqchain/dsp/spectrum"
)

// DefaultSampleRate replaces non-positive sample rates passed to ProcessInt16.
const DefaultSampleRate = 48000

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	proc     []core.ProcessorOption
	analyzer *spectrum.Analyzer
	metrics  *Metrics
	settings *Settings
	registry *effectchain.Registry
}

// WithBlockSize sets the internal processing block size. Larger inputs are
// processed in chunks of this size.
func WithBlockSize(n int) Option {
	return func(o *options) {
		o.proc = append(o.proc, core.WithBlockSize(n))
	}
}

// WithChannels sets the channel count used by Process.
func WithChannels(n int) Option {
	return func(o *options) {
		o.proc = append(o.proc, core.WithChannels(n))
	}
}

// WithAnalyzer attaches a spectrum analyzer fed after the noise reducer.
func WithAnalyzer(a *spectrum.Analyzer) Option {
	return func(o *options) {
		o.analyzer = a
	}
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSettings sets the initial stage settings.
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.settings = &s
	}
}

// WithRegistry sets the effect registry used by the FX chain.
func WithRegistry(r *effectchain.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// Pipeline is the full processing chain for one stream.
//
// Process*, Reset and SetSampleRate belong to the audio goroutine.
// Configure, Settings, RequestReset, SafetyReport and the accessors may be
// called from any goroutine.
type Pipeline struct {
	eq       *eq.Equalizer
	analyzer *spectrum.Analyzer
	metrics  *Metrics

	nr     *effects.NoiseReducer
	chain  *effectchain.Chain
	safety *effects.SafetyEngine

	pending      atomic.Pointer[pendingSettings]
	current      atomic.Pointer[Settings]
	resetPending atomic.Bool
	sampleRate   atomic.Uint64
	applied      atomic.Uint64
	failed       atomic.Uint64
	lastErr      atomic.Pointer[error]

	// Stage configs last installed by apply. Audio goroutine only.
	active Settings
	synced bool

	blockSize int
	channels  int
	left      []float32
	right     []float32
}

// New builds a pipeline around e. The pipeline runs at e's sample rate.
func New(e *eq.Equalizer, opts ...Option) (*Pipeline, error) {
	if e == nil {
		return nil, errors.New("pipeline: nil equalizer")
	}

	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	proc := core.ApplyProcessorOptions(append([]core.ProcessorOption{
		core.WithSampleRate(e.SampleRate()),
	}, o.proc...)...)

	nr, err := effects.NewNoiseReducer(proc.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	safety, err := effects.NewSafetyEngine(proc.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	registry := o.registry
	if registry == nil {
		registry = effectchain.DefaultRegistry()
	}

	p := &Pipeline{
		eq:        e,
		analyzer:  o.analyzer,
		metrics:   o.metrics,
		nr:        nr,
		chain:     effectchain.New(effectchain.Context{SampleRate: proc.SampleRate}, registry),
		safety:    safety,
		blockSize: proc.BlockSize,
		channels:  proc.Channels,
		left:      make([]float32, proc.BlockSize),
		right:     make([]float32, proc.BlockSize),
	}
	p.sampleRate.Store(math.Float64bits(proc.SampleRate))

	settings := DefaultSettings()
	if o.settings != nil {
		settings = *o.settings
	}
	if err := p.Configure(settings); err != nil {
		return nil, err
	}
	if err := p.applyPending(); err != nil {
		return nil, err
	}

	return p, nil
}

// Equalizer returns the equalizer stage.
func (p *Pipeline) Equalizer() *eq.Equalizer { return p.eq }

// Analyzer returns the attached analyzer or nil.
func (p *Pipeline) Analyzer() *spectrum.Analyzer { return p.analyzer }

// SampleRate returns the current processing rate.
func (p *Pipeline) SampleRate() float64 {
	return math.Float64frombits(p.sampleRate.Load())
}

// BlockSize returns the internal chunk size.
func (p *Pipeline) BlockSize() int { return p.blockSize }

// Channels returns the channel count used by Process.
func (p *Pipeline) Channels() int { return p.channels }

// SafetyReport returns the report of the most recent block.
func (p *Pipeline) SafetyReport() effects.SafetyReport { return p.safety.Report() }

// AppliedSettings returns how many settings updates were applied and how
// many failed.
func (p *Pipeline) AppliedSettings() (applied, failed uint64) {
	return p.applied.Load(), p.failed.Load()
}

// SettingsError returns the error of the most recent settings update that
// could not be applied, or nil once a later update succeeds.
func (p *Pipeline) SettingsError() error {
	if err := p.lastErr.Load(); err != nil {
		return *err
	}
	return nil
}

// Configure validates s and hands it to the audio goroutine, which applies
// it before the next block. Only the latest unapplied settings are kept.
func (p *Pipeline) Configure(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	p.current.Store(&s)
	p.pending.Store(newPendingSettings(s))
	return nil
}

// Settings returns the most recently configured settings.
func (p *Pipeline) Settings() Settings {
	return *p.current.Load()
}

// RequestReset asks the audio goroutine to clear all stage state before the
// next block.
func (p *Pipeline) RequestReset() {
	p.resetPending.Store(true)
	p.eq.RequestReset()
}

// Reset clears all stage state. Audio goroutine only.
func (p *Pipeline) Reset() {
	p.nr.Reset()
	p.chain.Reset()
	p.safety.Reset()
	p.eq.Reset()
}

// SetSampleRate retimes every stage. It is not real-time safe and must not
// run concurrently with processing.
func (p *Pipeline) SetSampleRate(sampleRate float64) error {
	if !core.ValidSampleRate(sampleRate) {
		return fmt.Errorf("pipeline sample rate must be positive and finite: %f", sampleRate)
	}
	if sampleRate == p.SampleRate() {
		return nil
	}

	if err := p.eq.SetSampleRate(sampleRate); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := p.nr.SetSampleRate(sampleRate); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := p.safety.SetSampleRate(sampleRate); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := p.chain.SetContext(effectchain.Context{SampleRate: sampleRate}); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	p.sampleRate.Store(math.Float64bits(sampleRate))
	return nil
}

// ProcessMono runs src through the chain into dst. dst may alias src. Only
// the common length is processed.
func (p *Pipeline) ProcessMono(dst, src []float32) {
	n := min(len(dst), len(src))
	start := p.begin()

	for off := 0; off < n; off += p.blockSize {
		end := min(off+p.blockSize, n)
		w := p.left[:end-off]
		copy(w, src[off:end])
		p.runMono(w)
		copy(dst[off:end], w)
	}

	p.observe(n, start)
}

// ProcessStereo is the two-channel form of ProcessMono.
func (p *Pipeline) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	n := core.CommonLen(dstL, dstR, srcL, srcR)
	start := p.begin()

	for off := 0; off < n; off += p.blockSize {
		end := min(off+p.blockSize, n)
		l, r := p.left[:end-off], p.right[:end-off]
		copy(l, srcL[off:end])
		copy(r, srcR[off:end])
		p.runStereo(l, r)
		copy(dstL[off:end], l)
		copy(dstR[off:end], r)
	}

	p.observe(n, start)
}

// runMono processes one chunk in place.
func (p *Pipeline) runMono(buf []float32) {
	p.nr.ProcessMono(buf, buf)
	if p.analyzer != nil {
		p.analyzer.Push(buf)
	}
	p.chain.ProcessMono(buf, buf)
	p.safety.ProcessMono(buf, buf)
	p.eq.Process(buf, buf)
	clampOutput(buf)
}

// runStereo processes one stereo chunk in place.
func (p *Pipeline) runStereo(l, r []float32) {
	p.nr.ProcessStereo(l, r, l, r)
	if p.analyzer != nil {
		p.analyzer.PushStereo(l, r)
	}
	p.chain.ProcessStereo(l, r, l, r)
	p.safety.ProcessStereo(l, r, l, r)
	p.eq.ProcessStereo(l, r, l, r)
	clampOutput(l)
	clampOutput(r)
}

// begin applies pending resets and settings and returns the block start
// time when metrics are enabled.
func (p *Pipeline) begin() time.Time {
	if p.resetPending.CompareAndSwap(true, false) {
		p.Reset()
	}
	// Failures are recorded for SettingsError and the failed counter.
	_ = p.applyPending()

	if p.metrics == nil {
		return time.Time{}
	}
	return time.Now()
}

func (p *Pipeline) applyPending() error {
	ps := p.pending.Swap(nil)
	if ps == nil {
		return nil
	}

	err := p.apply(ps)
	if err != nil {
		// Heap copy only on the failure path.
		stored := err
		p.lastErr.Store(&stored)
		p.failed.Add(1)
		if p.metrics != nil {
			p.metrics.settingsFailed.Inc()
		}
		return err
	}

	if p.lastErr.Load() != nil {
		p.lastErr.Store(nil)
	}
	p.applied.Add(1)
	if p.metrics != nil {
		p.metrics.settingsApplied.Inc()
	}
	return nil
}

// apply installs ps on the stages. Unchanged stage configs are skipped and
// an FX list with the loaded layout is retuned in place, so updates after the
// first one do not allocate. After a failure every stage is reapplied by the
// next update.
func (p *Pipeline) apply(ps *pendingSettings) error {
	s := ps.settings
	all := !p.synced
	p.synced = false

	if all || s.NoiseReducer != p.active.NoiseReducer {
		wasEnabled := p.nr.Enabled()
		if err := p.nr.Configure(s.NoiseReducer); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		if s.NoiseReducer.Enabled && !wasEnabled {
			p.nr.Reset()
		}
		p.active.NoiseReducer = s.NoiseReducer
	}

	if all || s.Safety != p.active.Safety {
		if err := p.safety.Configure(s.Safety); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		p.active.Safety = s.Safety
	}

	if all || s.FX != p.active.FX {
		var err error
		if p.chain.Matches(ps.fx) {
			err = p.chain.Retune(ps.fx)
		} else {
			err = p.chain.Load(ps.fx)
		}
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		if s.FX.Enabled && !p.chain.Enabled() {
			p.chain.Reset()
		}
		p.chain.SetEnabled(s.FX.Enabled)
		p.active.FX = s.FX
	}

	p.synced = true
	return nil
}

func (p *Pipeline) observe(frames int, start time.Time) {
	m := p.metrics
	if m == nil || frames == 0 {
		return
	}

	rep := p.safety.Report()
	m.blocks.Inc()
	m.frames.Add(float64(frames))
	m.clipped.Add(float64(rep.ClippedSamples))
	if rep.FeedbackSuppressed {
		m.feedbackBlocks.Inc()
	}
	m.outputPeak.Set(rep.Peak)
	m.outputRMS.Set(rep.RMS)
	m.blockSeconds.Observe(time.Since(start).Seconds())
}

// clampOutput bounds buf to [-1, 1] and silences NaN samples.
func clampOutput(buf []float32) {
	for i, v := range buf {
		if v != v {
			buf[i] = 0
			continue
		}
		buf[i] = core.Clamp32(v, -1, 1)
	}
}
