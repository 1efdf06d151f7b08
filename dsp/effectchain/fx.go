package effectchain

import (
	"github.com/cwbudde/algo-eqchain/dsp/effects"
	"github.com/cwbudde/algo-eqchain/dsp/effects/dynamics"
)

// Node IDs of the standard FX chain.
const (
	FXCompressorID = "fx-compressor"
	FXDelayID      = "fx-delay"
)

// CompressorConfig holds the FX compressor parameters.
type CompressorConfig struct {
	ThresholdDB float64 `json:"thresholdDb" yaml:"threshold_db" mapstructure:"threshold_db"`
	Ratio       float64 `json:"ratio" yaml:"ratio" mapstructure:"ratio"`
	AttackMs    float64 `json:"attackMs" yaml:"attack_ms" mapstructure:"attack_ms"`
	ReleaseMs   float64 `json:"releaseMs" yaml:"release_ms" mapstructure:"release_ms"`
	MakeupDB    float64 `json:"makeupDb" yaml:"makeup_db" mapstructure:"makeup_db"`
}

// DelayConfig holds the FX delay parameters.
type DelayConfig struct {
	DelayMs  float64 `json:"delayMs" yaml:"delay_ms" mapstructure:"delay_ms"`
	Feedback float64 `json:"feedback" yaml:"feedback" mapstructure:"feedback"`
	Mix      float64 `json:"mix" yaml:"mix" mapstructure:"mix"`
}

// FXConfig describes the standard FX chain: a compressor followed by a
// delay.
type FXConfig struct {
	Enabled    bool             `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Compressor CompressorConfig `json:"compressor" yaml:"compressor" mapstructure:"compressor"`
	Delay      DelayConfig      `json:"delay" yaml:"delay" mapstructure:"delay"`
}

// DefaultFXConfig returns the factory FX settings. The chain starts
// disabled.
func DefaultFXConfig() FXConfig {
	return FXConfig{
		Compressor: CompressorConfig{
			ThresholdDB: dynamics.DefaultCompressorThresholdDB,
			Ratio:       dynamics.DefaultCompressorRatio,
			AttackMs:    dynamics.DefaultCompressorAttackMs,
			ReleaseMs:   dynamics.DefaultCompressorReleaseMs,
			MakeupDB:    dynamics.DefaultCompressorMakeupDB,
		},
		Delay: DelayConfig{
			DelayMs:  effects.DefaultDelayTimeMs,
			Feedback: effects.DefaultDelayFeedback,
			Mix:      effects.DefaultDelayMix,
		},
	}
}

// Params returns the node list for cfg in processing order.
func (cfg FXConfig) Params() []Params {
	return []Params{
		{
			ID:   FXCompressorID,
			Type: TypeCompressor,
			Num: map[string]float64{
				"thresholdDB":  cfg.Compressor.ThresholdDB,
				"ratio":        cfg.Compressor.Ratio,
				"attackMs":     cfg.Compressor.AttackMs,
				"releaseMs":    cfg.Compressor.ReleaseMs,
				"makeupGainDB": cfg.Compressor.MakeupDB,
			},
		},
		{
			ID:   FXDelayID,
			Type: TypeDelay,
			Num: map[string]float64{
				"delayMs":  cfg.Delay.DelayMs,
				"feedback": cfg.Delay.Feedback,
				"mix":      cfg.Delay.Mix,
			},
		},
	}
}

// ApplyFX loads the standard FX node list and sets the enabled flag.
func (c *Chain) ApplyFX(cfg FXConfig) error {
	if err := c.Load(cfg.Params()); err != nil {
		return err
	}
	c.SetEnabled(cfg.Enabled)
	return nil
}
