package pipeline

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-eqchain/dsp/core"
	"github.com/cwbudde/algo-eqchain/dsp/effectchain"
	"github.com/cwbudde/algo-eqchain/dsp/effects"
)

// ErrInvalidSettings is returned by Configure for settings that cannot be
// applied.
var ErrInvalidSettings = errors.New("pipeline: invalid settings")

// Settings holds the configuration of every stage except the equalizer.
type Settings struct {
	NoiseReducer effects.NoiseReducerConfig `json:"noiseReduction" yaml:"noise_reduction" mapstructure:"noise_reduction"`
	Safety       effects.SafetyConfig       `json:"safety" yaml:"safety" mapstructure:"safety"`
	FX           effectchain.FXConfig       `json:"fx" yaml:"fx" mapstructure:"fx"`
}

// DefaultSettings returns the factory settings: noise reduction and FX off,
// safety on.
func DefaultSettings() Settings {
	return Settings{
		NoiseReducer: effects.DefaultNoiseReducerConfig(),
		Safety:       effects.DefaultSafetyConfig(),
		FX:           effectchain.DefaultFXConfig(),
	}
}

// pendingSettings is the handoff unit between Configure and the audio
// goroutine. The FX node list is built on the control side.
type pendingSettings struct {
	settings Settings
	fx       []effectchain.Params
}

func newPendingSettings(s Settings) *pendingSettings {
	return &pendingSettings{settings: s, fx: s.FX.Params()}
}

// Validate rejects non-finite numeric settings. Out-of-range values are
// clamped by the stages when applied.
func (s Settings) Validate() error {
	nr, sf, fx := s.NoiseReducer, s.Safety, s.FX
	values := [...]struct {
		name string
		v    float64
	}{
		{"noise_reduction.high_pass_hz", nr.HighPassHz},
		{"noise_reduction.threshold_db", nr.ThresholdDB},
		{"noise_reduction.ratio", nr.Ratio},
		{"noise_reduction.floor_db", nr.FloorDB},
		{"noise_reduction.attack_ms", nr.AttackMs},
		{"noise_reduction.release_ms", nr.ReleaseMs},
		{"safety.dc_threshold", sf.DCThreshold},
		{"safety.limiter_threshold_db", sf.LimiterThresholdDB},
		{"safety.knee_width_db", sf.KneeWidthDB},
		{"safety.feedback_corr_threshold", sf.FeedbackCorrThreshold},
		{"fx.compressor.threshold_db", fx.Compressor.ThresholdDB},
		{"fx.compressor.ratio", fx.Compressor.Ratio},
		{"fx.compressor.attack_ms", fx.Compressor.AttackMs},
		{"fx.compressor.release_ms", fx.Compressor.ReleaseMs},
		{"fx.compressor.makeup_db", fx.Compressor.MakeupDB},
		{"fx.delay.delay_ms", fx.Delay.DelayMs},
		{"fx.delay.feedback", fx.Delay.Feedback},
		{"fx.delay.mix", fx.Delay.Mix},
	}
	for _, f := range values {
		if !core.IsFinite(f.v) {
			return fmt.Errorf("%w: %s must be finite: %f", ErrInvalidSettings, f.name, f.v)
		}
	}
	return nil
}
