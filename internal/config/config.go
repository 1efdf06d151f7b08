// Package config loads eqchain settings from defaults, an optional YAML
// file, EQCHAIN_* environment variables and bound command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-eqchain/bridge"
	"github.com/cwbudde/algo-eqchain/dsp/core"
	"github.com/cwbudde/algo-eqchain/dsp/effectchain"
	"github.com/cwbudde/algo-eqchain/dsp/effects"
	"github.com/cwbudde/algo-eqchain/dsp/pipeline"
	"github.com/cwbudde/algo-eqchain/dsp/window"
)

// EnvPrefix prefixes every environment override, e.g. EQCHAIN_AUDIO_SAMPLE_RATE.
const EnvPrefix = "EQCHAIN"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid")

// Config is the complete application configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Audio          AudioConfig                `mapstructure:"audio"`
	Equalizer      EqualizerConfig            `mapstructure:"equalizer"`
	NoiseReduction effects.NoiseReducerConfig `mapstructure:"noise_reduction"`
	Safety         effects.SafetyConfig       `mapstructure:"safety"`
	FX             effectchain.FXConfig       `mapstructure:"fx"`
	Spectrum       SpectrumConfig             `mapstructure:"spectrum"`
	Server         ServerConfig               `mapstructure:"server"`
}

// AudioConfig describes the stream format.
type AudioConfig struct {
	SampleRate float64 `mapstructure:"sample_rate"`
	Channels   int     `mapstructure:"channels"`
	BlockSize  int     `mapstructure:"block_size"`
}

// EqualizerConfig holds the initial equalizer state.
type EqualizerConfig struct {
	Enabled      bool      `mapstructure:"enabled"`
	Bands        int       `mapstructure:"bands"`
	MasterGainDB float64   `mapstructure:"master_gain_db"`
	Preset       string    `mapstructure:"preset"`
	Gains        []float64 `mapstructure:"gains"`
	PresetFiles  []string  `mapstructure:"preset_files"`
}

// SpectrumConfig configures the analyzer.
type SpectrumConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Size    int    `mapstructure:"size"`
	Bars    int    `mapstructure:"bars"`
	Window  string `mapstructure:"window"`
}

// ServerConfig configures the HTTP control API.
type ServerConfig struct {
	Addr             string        `mapstructure:"addr"`
	SyncInterval     time.Duration `mapstructure:"sync_interval"`
	SpectrumInterval time.Duration `mapstructure:"spectrum_interval"`
	EventCapacity    int           `mapstructure:"event_capacity"`
}

// New returns a viper instance with defaults and environment overrides
// installed.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads file (if not empty) into v and decodes the result. A nil v
// uses New().
func Load(v *viper.Viper, file string) (*Config, error) {
	if v == nil {
		v = New()
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	cfg, err := Load(New(), "")
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks ranges that cannot be clamped.
func (c *Config) Validate() error {
	if !core.ValidSampleRate(c.Audio.SampleRate) {
		return fmt.Errorf("%w: audio.sample_rate must be positive and finite: %f", ErrInvalidConfig, c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return fmt.Errorf("%w: audio.channels must be 1 or 2: %d", ErrInvalidConfig, c.Audio.Channels)
	}
	if c.Audio.BlockSize <= 0 {
		return fmt.Errorf("%w: audio.block_size must be positive: %d", ErrInvalidConfig, c.Audio.BlockSize)
	}
	if c.Equalizer.Bands <= 0 {
		return fmt.Errorf("%w: equalizer.bands must be positive: %d", ErrInvalidConfig, c.Equalizer.Bands)
	}
	if n := len(c.Equalizer.Gains); n != 0 && n != c.Equalizer.Bands {
		return fmt.Errorf("%w: equalizer.gains has %d values for %d bands", ErrInvalidConfig, n, c.Equalizer.Bands)
	}
	if c.Spectrum.Size < 2 || c.Spectrum.Bars < 1 || c.Spectrum.Bars > c.Spectrum.Size/2 {
		return fmt.Errorf("%w: spectrum size %d with %d bars", ErrInvalidConfig, c.Spectrum.Size, c.Spectrum.Bars)
	}
	if _, err := window.ParseType(c.Spectrum.Window); err != nil {
		return fmt.Errorf("%w: spectrum.window: %w", ErrInvalidConfig, err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}
	if err := c.Settings().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Settings returns the stage settings for the pipeline.
func (c *Config) Settings() pipeline.Settings {
	return pipeline.Settings{
		NoiseReducer: c.NoiseReduction,
		Safety:       c.Safety,
		FX:           c.FX,
	}
}

// Instance returns the bridge instance configuration. Explicit gains are
// applied by the caller after the preset.
func (c *Config) Instance(catalog *bridge.Catalog, metrics *pipeline.Metrics, logger zerolog.Logger) bridge.InstanceConfig {
	return bridge.InstanceConfig{
		SampleRate:     c.Audio.SampleRate,
		BlockSize:      c.Audio.BlockSize,
		Channels:       c.Audio.Channels,
		NumBands:       c.Equalizer.Bands,
		Enabled:        c.Equalizer.Enabled,
		MasterGainDB:   c.Equalizer.MasterGainDB,
		Preset:         c.Equalizer.Preset,
		Settings:       c.Settings(),
		SpectrumSize:   c.Spectrum.Size,
		SpectrumBars:   c.Spectrum.Bars,
		SpectrumWindow: c.Spectrum.Window,
		Catalog:        catalog,
		Metrics:        metrics,
		Logger:         logger,
	}
}
