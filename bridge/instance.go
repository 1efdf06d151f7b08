package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-eqchain/dsp/eq"
	"github.com/cwbudde/algo-eqchain/dsp/pipeline"
	"github.com/cwbudde/algo-eqchain/dsp/spectrum"
	"github.com/cwbudde/algo-eqchain/dsp/window"
)

// InstanceConfig describes a complete chain to build.
type InstanceConfig struct {
	SampleRate     float64
	BlockSize      int
	Channels       int
	NumBands       int
	Enabled        bool
	MasterGainDB   float64
	Preset         string
	Settings       pipeline.Settings
	SpectrumSize   int
	SpectrumBars   int
	SpectrumWindow string // empty selects Hann

	Catalog *Catalog
	Metrics *pipeline.Metrics
	Logger  zerolog.Logger
}

// DefaultInstanceConfig returns a 10-band stereo chain at 48 kHz with the
// equalizer enabled.
func DefaultInstanceConfig() InstanceConfig {
	return InstanceConfig{
		SampleRate:   pipeline.DefaultSampleRate,
		BlockSize:    512,
		Channels:     2,
		NumBands:     len(eq.DefaultFrequencies),
		Enabled:      true,
		Settings:     pipeline.DefaultSettings(),
		SpectrumSize: spectrum.DefaultSize,
		SpectrumBars: spectrum.DefaultBars,
		Logger:       zerolog.Nop(),
	}
}

// Instance is one running chain: the processing pipeline plus the bridge
// that controls it.
type Instance struct {
	handle   uuid.UUID
	pipeline *pipeline.Pipeline
	bridge   *Bridge
	logger   zerolog.Logger
}

// NewInstance builds an instance from cfg and pushes the initial state into
// the pipeline.
func NewInstance(cfg InstanceConfig) (*Instance, error) {
	if cfg.NumBands <= 0 {
		cfg.NumBands = len(eq.DefaultFrequencies)
	}
	if cfg.SpectrumSize <= 0 {
		cfg.SpectrumSize = spectrum.DefaultSize
	}
	if cfg.SpectrumBars <= 0 {
		cfg.SpectrumBars = spectrum.DefaultBars
	}

	e, err := eq.New(cfg.NumBands, cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("bridge: create equalizer: %w", err)
	}

	win := window.TypeHann
	if cfg.SpectrumWindow != "" {
		if win, err = window.ParseType(cfg.SpectrumWindow); err != nil {
			return nil, fmt.Errorf("bridge: %w", err)
		}
	}

	analyzer, err := spectrum.New(
		spectrum.WithSize(cfg.SpectrumSize),
		spectrum.WithBars(cfg.SpectrumBars),
		spectrum.WithWindow(win),
	)
	if err != nil {
		return nil, fmt.Errorf("bridge: create analyzer: %w", err)
	}

	p, err := pipeline.New(e,
		pipeline.WithBlockSize(cfg.BlockSize),
		pipeline.WithChannels(cfg.Channels),
		pipeline.WithAnalyzer(analyzer),
		pipeline.WithMetrics(cfg.Metrics),
		pipeline.WithSettings(cfg.Settings),
	)
	if err != nil {
		return nil, fmt.Errorf("bridge: create pipeline: %w", err)
	}

	handle := uuid.New()
	logger := cfg.Logger.With().Str("instance", handle.String()).Logger()

	b, err := New(cfg.NumBands,
		WithLogger(logger),
		WithCatalog(cfg.Catalog),
		WithAnalyzer(analyzer),
		WithEnabled(cfg.Enabled),
		WithSettings(cfg.Settings),
	)
	if err != nil {
		return nil, err
	}
	if err := b.SetMasterGainDB(cfg.MasterGainDB); err != nil {
		return nil, err
	}
	if cfg.Preset != "" {
		if err := b.ApplyPreset(cfg.Preset); err != nil {
			return nil, err
		}
	}
	if _, err := b.Sync(p); err != nil {
		return nil, err
	}

	return &Instance{handle: handle, pipeline: p, bridge: b, logger: logger}, nil
}

// Handle returns the instance handle.
func (in *Instance) Handle() uuid.UUID { return in.handle }

// Pipeline returns the processing side.
func (in *Instance) Pipeline() *pipeline.Pipeline { return in.pipeline }

// Bridge returns the control side.
func (in *Instance) Bridge() *Bridge { return in.bridge }

// Sync drains a pending bridge update into the pipeline.
func (in *Instance) Sync() (bool, error) {
	return in.bridge.Sync(in.pipeline)
}

// SyncLoop calls Sync every interval until ctx is done. It keeps the
// equalizer lock off the audio goroutine when audio runs elsewhere. Settings
// the audio goroutine failed to apply are logged once per failure.
func (in *Instance) SyncLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_, failed := in.pipeline.AppliedSettings()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := in.Sync(); err != nil {
				in.logger.Error().Err(err).Msg("sync failed")
			}
			failed = in.reportApplyFailures(failed)
		}
	}
}

// reportApplyFailures logs the pipeline's settings error when the failure
// count moved past seen and returns the current count.
func (in *Instance) reportApplyFailures(seen uint64) uint64 {
	_, failed := in.pipeline.AppliedSettings()
	if failed == seen {
		return seen
	}
	in.logger.Error().
		Err(in.pipeline.SettingsError()).
		Uint64("failed", failed-seen).
		Msg("settings not applied")
	return failed
}
