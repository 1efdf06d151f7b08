package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-eqchain/dsp/core"
	"github.com/cwbudde/algo-eqchain/dsp/effects/dynamics"
	"github.com/cwbudde/algo-eqchain/dsp/filter/biquad"
	"github.com/cwbudde/algo-eqchain/dsp/filter/design"
)

// noiseHighPassQ is the Butterworth Q of the rumble filter.
const noiseHighPassQ = 1 / math.Sqrt2

// NoiseReducerConfig holds the noise reducer parameters.
type NoiseReducerConfig struct {
	Enabled         bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	HighPassEnabled bool    `json:"highPassEnabled" yaml:"high_pass_enabled" mapstructure:"high_pass_enabled"`
	HighPassHz      float64 `json:"highPassHz" yaml:"high_pass_hz" mapstructure:"high_pass_hz"`
	ThresholdDB     float64 `json:"thresholdDb" yaml:"threshold_db" mapstructure:"threshold_db"`
	Ratio           float64 `json:"ratio" yaml:"ratio" mapstructure:"ratio"`
	FloorDB         float64 `json:"floorDb" yaml:"floor_db" mapstructure:"floor_db"`
	AttackMs        float64 `json:"attackMs" yaml:"attack_ms" mapstructure:"attack_ms"`
	ReleaseMs       float64 `json:"releaseMs" yaml:"release_ms" mapstructure:"release_ms"`
}

// DefaultNoiseReducerConfig returns the factory settings. The reducer
// itself starts disabled.
func DefaultNoiseReducerConfig() NoiseReducerConfig {
	return NoiseReducerConfig{
		HighPassEnabled: true,
		HighPassHz:      80,
		ThresholdDB:     dynamics.DefaultExpanderThresholdDB,
		Ratio:           dynamics.DefaultExpanderRatio,
		FloorDB:         dynamics.DefaultExpanderRangeDB,
		AttackMs:        dynamics.DefaultExpanderAttackMs,
		ReleaseMs:       dynamics.DefaultExpanderReleaseMs,
	}
}

// NoiseReducer removes low-frequency rumble and pushes down signal that
// stays below the threshold, never by more than the floor.
type NoiseReducer struct {
	cfg        NoiseReducerConfig
	sampleRate float64

	highPass *biquad.Filter
	expander *dynamics.Expander
}

// NewNoiseReducer creates a noise reducer with the default configuration.
func NewNoiseReducer(sampleRate float64) (*NoiseReducer, error) {
	exp, err := dynamics.NewExpander(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("noise reducer: %w", err)
	}

	nr := &NoiseReducer{
		sampleRate: sampleRate,
		highPass:   biquad.NewFilter(),
		expander:   exp,
	}
	if err := nr.Configure(DefaultNoiseReducerConfig()); err != nil {
		return nil, err
	}
	return nr, nil
}

// Configure applies cfg. Out-of-range values are clamped by the underlying
// stages; non-finite values are rejected and leave the previous settings in
// place.
func (nr *NoiseReducer) Configure(cfg NoiseReducerConfig) error {
	if !core.IsFinite(cfg.HighPassHz) {
		return fmt.Errorf("noise reducer high-pass frequency must be finite: %f", cfg.HighPassHz)
	}
	for _, v := range [...]float64{cfg.ThresholdDB, cfg.Ratio, cfg.FloorDB, cfg.AttackMs, cfg.ReleaseMs} {
		if !core.IsFinite(v) {
			return fmt.Errorf("noise reducer parameter must be finite: %f", v)
		}
	}

	if err := nr.expander.SetThreshold(cfg.ThresholdDB); err != nil {
		return fmt.Errorf("noise reducer: configure threshold: %w", err)
	}
	if err := nr.expander.SetRatio(cfg.Ratio); err != nil {
		return fmt.Errorf("noise reducer: configure ratio: %w", err)
	}
	if err := nr.expander.SetRange(cfg.FloorDB); err != nil {
		return fmt.Errorf("noise reducer: configure floor: %w", err)
	}
	if err := nr.expander.SetAttack(cfg.AttackMs); err != nil {
		return fmt.Errorf("noise reducer: configure attack: %w", err)
	}
	if err := nr.expander.SetRelease(cfg.ReleaseMs); err != nil {
		return fmt.Errorf("noise reducer: configure release: %w", err)
	}

	if cfg.HighPassEnabled != nr.cfg.HighPassEnabled {
		nr.highPass.Reset()
	}
	cfg.HighPassHz = core.Clamp(cfg.HighPassHz, 20, 0.45*nr.sampleRate)
	nr.highPass.SetNormalized(design.HighpassRBJ(cfg.HighPassHz, noiseHighPassQ, nr.sampleRate))

	// Read back the clamped expander values.
	cfg.ThresholdDB = nr.expander.Threshold()
	cfg.Ratio = nr.expander.Ratio()
	cfg.FloorDB = nr.expander.Range()
	cfg.AttackMs = nr.expander.Attack()
	cfg.ReleaseMs = nr.expander.Release()
	nr.cfg = cfg
	return nil
}

// Config returns the effective configuration.
func (nr *NoiseReducer) Config() NoiseReducerConfig { return nr.cfg }

// Enabled reports whether the reducer processes audio.
func (nr *NoiseReducer) Enabled() bool { return nr.cfg.Enabled }

// SetEnabled switches the reducer on or off. Switching on clears its state.
func (nr *NoiseReducer) SetEnabled(enabled bool) {
	if enabled && !nr.cfg.Enabled {
		nr.Reset()
	}
	nr.cfg.Enabled = enabled
}

// SetSampleRate redesigns the high-pass filter and retimes the expander.
func (nr *NoiseReducer) SetSampleRate(sampleRate float64) error {
	if err := nr.expander.SetSampleRate(sampleRate); err != nil {
		return fmt.Errorf("noise reducer: %w", err)
	}
	nr.sampleRate = sampleRate
	nr.Reset()
	return nr.Configure(nr.cfg)
}

// Gain returns the expander gain applied to the most recent sample.
func (nr *NoiseReducer) Gain() float64 { return nr.expander.Gain() }

// Reset clears filter and envelope state.
func (nr *NoiseReducer) Reset() {
	nr.highPass.Reset()
	nr.expander.Reset()
}

// ProcessMono reduces noise in src and writes dst. When disabled src is
// copied unchanged.
func (nr *NoiseReducer) ProcessMono(dst, src []float32) {
	n := min(len(dst), len(src))
	dst, src = dst[:n], src[:n]
	if !nr.cfg.Enabled {
		copy(dst, src)
		return
	}

	if nr.cfg.HighPassEnabled {
		nr.highPass.Process(dst, src)
		src = dst
	}
	nr.expander.ProcessMono(dst, src)
}

// ProcessStereo is the two-channel form of ProcessMono with a linked
// expander detector.
func (nr *NoiseReducer) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	n := core.CommonLen(dstL, dstR, srcL, srcR)
	dstL, dstR, srcL, srcR = dstL[:n], dstR[:n], srcL[:n], srcR[:n]
	if !nr.cfg.Enabled {
		copy(dstL, srcL)
		copy(dstR, srcR)
		return
	}

	if nr.cfg.HighPassEnabled {
		nr.highPass.ProcessStereo(dstL, dstR, srcL, srcR)
		srcL, srcR = dstL, dstR
	}
	nr.expander.ProcessStereo(dstL, dstR, srcL, srcR)
}
