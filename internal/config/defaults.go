package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/cwbudde/algo-eqchain/dsp/eq"
	"github.com/cwbudde/algo-eqchain/dsp/pipeline"
	"github.com/cwbudde/algo-eqchain/dsp/spectrum"
	"github.com/cwbudde/algo-eqchain/dsp/window"
)

// setDefaults installs the factory value of every key so that environment
// overrides resolve for all of them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	// Audio
	v.SetDefault("audio.sample_rate", float64(pipeline.DefaultSampleRate))
	v.SetDefault("audio.channels", 2)
	v.SetDefault("audio.block_size", 512)

	// Equalizer
	v.SetDefault("equalizer.enabled", true)
	v.SetDefault("equalizer.bands", len(eq.DefaultFrequencies))
	v.SetDefault("equalizer.master_gain_db", 0.0)
	v.SetDefault("equalizer.preset", "")
	v.SetDefault("equalizer.gains", []float64{})
	v.SetDefault("equalizer.preset_files", []string{})

	s := pipeline.DefaultSettings()

	nr := s.NoiseReducer
	v.SetDefault("noise_reduction.enabled", nr.Enabled)
	v.SetDefault("noise_reduction.high_pass_enabled", nr.HighPassEnabled)
	v.SetDefault("noise_reduction.high_pass_hz", nr.HighPassHz)
	v.SetDefault("noise_reduction.threshold_db", nr.ThresholdDB)
	v.SetDefault("noise_reduction.ratio", nr.Ratio)
	v.SetDefault("noise_reduction.floor_db", nr.FloorDB)
	v.SetDefault("noise_reduction.attack_ms", nr.AttackMs)
	v.SetDefault("noise_reduction.release_ms", nr.ReleaseMs)

	sf := s.Safety
	v.SetDefault("safety.enabled", sf.Enabled)
	v.SetDefault("safety.dc_removal_enabled", sf.DCRemovalEnabled)
	v.SetDefault("safety.dc_threshold", sf.DCThreshold)
	v.SetDefault("safety.limiter_enabled", sf.LimiterEnabled)
	v.SetDefault("safety.limiter_threshold_db", sf.LimiterThresholdDB)
	v.SetDefault("safety.soft_knee_limiter", sf.SoftKneeLimiter)
	v.SetDefault("safety.knee_width_db", sf.KneeWidthDB)
	v.SetDefault("safety.feedback_detect_enabled", sf.FeedbackDetectEnabled)
	v.SetDefault("safety.feedback_corr_threshold", sf.FeedbackCorrThreshold)

	fx := s.FX
	v.SetDefault("fx.enabled", fx.Enabled)
	v.SetDefault("fx.compressor.threshold_db", fx.Compressor.ThresholdDB)
	v.SetDefault("fx.compressor.ratio", fx.Compressor.Ratio)
	v.SetDefault("fx.compressor.attack_ms", fx.Compressor.AttackMs)
	v.SetDefault("fx.compressor.release_ms", fx.Compressor.ReleaseMs)
	v.SetDefault("fx.compressor.makeup_db", fx.Compressor.MakeupDB)
	v.SetDefault("fx.delay.delay_ms", fx.Delay.DelayMs)
	v.SetDefault("fx.delay.feedback", fx.Delay.Feedback)
	v.SetDefault("fx.delay.mix", fx.Delay.Mix)

	// Spectrum
	v.SetDefault("spectrum.enabled", false)
	v.SetDefault("spectrum.size", spectrum.DefaultSize)
	v.SetDefault("spectrum.bars", spectrum.DefaultBars)
	v.SetDefault("spectrum.window", window.TypeHann.String())

	// Server
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.sync_interval", 10*time.Millisecond)
	v.SetDefault("server.spectrum_interval", 50*time.Millisecond)
	v.SetDefault("server.event_capacity", 64)
}
