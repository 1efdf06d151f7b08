package loudness

import "github.com/cwbudde/algo-eqchain/dsp/core"

// MeterConfig defines configuration for the loudness meter.
type MeterConfig struct {
	core.ProcessorConfig
}

// MeterOption mutates a MeterConfig.
type MeterOption func(*MeterConfig)

// DefaultMeterConfig returns a stereo meter at the default processor rate.
func DefaultMeterConfig() MeterConfig {
	return MeterConfig{ProcessorConfig: core.DefaultProcessorConfig()}
}

// WithSampleRate sets the metering sample rate. Invalid rates are ignored.
func WithSampleRate(sampleRate float64) MeterOption {
	return func(cfg *MeterConfig) {
		if core.ValidSampleRate(sampleRate) {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithChannels sets the interleaved channel count (1 or 2).
func WithChannels(channels int) MeterOption {
	return func(cfg *MeterConfig) {
		if channels == 1 || channels == 2 {
			cfg.Channels = channels
		}
	}
}

// ApplyMeterOptions applies zero or more options to the default config.
func ApplyMeterOptions(opts ...MeterOption) MeterConfig {
	cfg := DefaultMeterConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
