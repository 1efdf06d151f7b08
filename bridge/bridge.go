package bridge

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-eqchain/dsp/eq"
	"github.com/cwbudde/algo-eqchain/dsp/effectchain"
	"github.com/cwbudde/algo-eqchain/dsp/effects"
	"github.com/cwbudde/algo-eqchain/dsp/pipeline"
	"github.com/cwbudde/algo-eqchain/dsp/spectrum"
)

// Target is the processing side that Sync writes into. *pipeline.Pipeline
// implements it.
type Target interface {
	Equalizer() *eq.Equalizer
	Configure(pipeline.Settings) error
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l.With().Str("component", "bridge").Logger()
	}
}

// WithCatalog shares a preset catalog between bridges.
func WithCatalog(c *Catalog) Option {
	return func(b *Bridge) {
		if c != nil {
			b.catalog = c
		}
	}
}

// WithEvents sets the event queue.
func WithEvents(e *Events) Option {
	return func(b *Bridge) {
		if e != nil {
			b.events = e
		}
	}
}

// WithAnalyzer exposes a spectrum analyzer through the bridge.
func WithAnalyzer(a *spectrum.Analyzer) Option {
	return func(b *Bridge) {
		b.analyzer = a
	}
}

// WithEnabled sets the initial enabled state.
func WithEnabled(enabled bool) Option {
	return func(b *Bridge) {
		b.enabled = enabled
	}
}

// WithSettings sets the initial stage settings.
func WithSettings(s pipeline.Settings) Option {
	return func(b *Bridge) {
		b.settings = s
	}
}

// Bridge holds the control-plane state for one equalizer chain. All
// methods are safe for concurrent use.
type Bridge struct {
	mu           sync.Mutex
	enabled      bool
	masterGainDB float64
	gains        []float64
	preset       string
	settings     pipeline.Settings

	pending atomic.Bool
	syncs   atomic.Uint64

	catalog  *Catalog
	events   *Events
	analyzer *spectrum.Analyzer
	logger   zerolog.Logger
}

// New creates a bridge for numBands bands. The chain starts disabled with
// flat gains and the default stage settings, and with an update pending so
// that the first Sync pushes the full state.
func New(numBands int, opts ...Option) (*Bridge, error) {
	if numBands <= 0 {
		return nil, fmt.Errorf("%w: band count must be positive: %d", eq.ErrInvalidParameter, numBands)
	}

	b := &Bridge{
		gains:    make([]float64, numBands),
		settings: pipeline.DefaultSettings(),
		catalog:  NewCatalog(),
		events:   NewEvents(DefaultEventCapacity),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.pending.Store(true)
	return b, nil
}

// Catalog returns the preset catalog.
func (b *Bridge) Catalog() *Catalog { return b.catalog }

// Events returns the event queue.
func (b *Bridge) Events() *Events { return b.events }

// NumBands returns the band count.
func (b *Bridge) NumBands() int { return len(b.gains) }

// IsEnabled reports whether the equalizer is active. A disabled chain
// bypasses the equalizer.
func (b *Bridge) IsEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// SetEnabled switches the equalizer on or off.
func (b *Bridge) SetEnabled(enabled bool) {
	b.mu.Lock()
	changed := b.enabled != enabled
	b.enabled = enabled
	b.mu.Unlock()

	if changed {
		b.changed(EventEnabled, enabled)
		b.logger.Debug().Bool("enabled", enabled).Msg("equalizer toggled")
	}
}

// MasterGainDB returns the master gain in dB.
func (b *Bridge) MasterGainDB() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.masterGainDB
}

// SetMasterGainDB sets the master gain, clamped to the equalizer gain range.
func (b *Bridge) SetMasterGainDB(db float64) error {
	if !isFinite(db) {
		return fmt.Errorf("bridge: master gain: %w", eq.ErrInvalidParameter)
	}
	db = min(max(db, eq.MinGainDB), eq.MaxGainDB)

	b.mu.Lock()
	b.masterGainDB = db
	b.mu.Unlock()

	b.changed(EventMasterGain, db)
	return nil
}

// CopyBandGains writes up to len(dst) gains into dst and returns the count.
func (b *Bridge) CopyBandGains(dst []float64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copy(dst, b.gains)
}

// BandGains returns a copy of all band gains.
func (b *Bridge) BandGains() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]float64(nil), b.gains...)
}

// SetBandGain sets one band gain, clamped to the equalizer gain range.
// Setting a gain clears the selected preset name.
func (b *Bridge) SetBandGain(band int, db float64) error {
	if band < 0 || band >= len(b.gains) {
		return fmt.Errorf("bridge: band %d of %d: %w", band, len(b.gains), eq.ErrInvalidParameter)
	}
	if !isFinite(db) {
		return fmt.Errorf("bridge: band %d gain: %w", band, eq.ErrInvalidParameter)
	}
	db = min(max(db, eq.MinGainDB), eq.MaxGainDB)

	b.mu.Lock()
	b.gains[band] = db
	b.preset = ""
	b.mu.Unlock()

	b.changed(EventBandGain, BandGainData{Band: band, GainDB: db})
	return nil
}

// SetBandGains replaces all gains at once. The slice length must match the
// band count.
func (b *Bridge) SetBandGains(gains []float64) error {
	if len(gains) != len(b.gains) {
		return fmt.Errorf("bridge: %d gains for %d bands: %w", len(gains), len(b.gains), eq.ErrInvalidParameter)
	}
	for i, g := range gains {
		if !isFinite(g) {
			return fmt.Errorf("bridge: band %d gain: %w", i, eq.ErrInvalidParameter)
		}
	}

	b.mu.Lock()
	for i, g := range gains {
		b.gains[i] = min(max(g, eq.MinGainDB), eq.MaxGainDB)
	}
	b.preset = ""
	b.mu.Unlock()

	b.changed(EventBandGain, append([]float64(nil), gains...))
	return nil
}

// ApplyPreset loads the named preset's gains. Names are matched without
// regard to case.
func (b *Bridge) ApplyPreset(name string) error {
	p, err := b.catalog.Lookup(name)
	if err != nil {
		b.logger.Warn().Str("preset", name).Msg("unknown preset requested")
		return err
	}
	if len(p.Gains) != len(b.gains) {
		return fmt.Errorf("bridge: preset %q has %d gains for %d bands: %w",
			p.Name, len(p.Gains), len(b.gains), eq.ErrInvalidParameter)
	}

	b.mu.Lock()
	for i, g := range p.Gains {
		b.gains[i] = min(max(g, eq.MinGainDB), eq.MaxGainDB)
	}
	b.preset = p.Name
	b.mu.Unlock()

	b.changed(EventPreset, p.Name)
	b.logger.Info().Str("preset", p.Name).Msg("preset applied")
	return nil
}

// CurrentPreset returns the name of the applied preset, or "" after manual
// gain changes.
func (b *Bridge) CurrentPreset() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.preset
}

// SavePreset stores the current gains as a user preset.
func (b *Bridge) SavePreset(name string) (eq.Preset, error) {
	b.mu.Lock()
	p := eq.Preset{Name: name, Gains: append([]float64(nil), b.gains...)}
	b.mu.Unlock()

	if err := b.catalog.Add(p); err != nil {
		return eq.Preset{}, err
	}

	b.mu.Lock()
	b.preset = name
	b.mu.Unlock()

	b.logger.Info().Str("preset", name).Msg("preset saved")
	return p, nil
}

// Settings returns the stage settings.
func (b *Bridge) Settings() pipeline.Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

// NoiseReduction returns the noise reducer settings.
func (b *Bridge) NoiseReduction() effects.NoiseReducerConfig {
	return b.Settings().NoiseReducer
}

// SetNoiseReduction replaces the noise reducer settings.
func (b *Bridge) SetNoiseReduction(cfg effects.NoiseReducerConfig) error {
	return b.updateSettings(EventNoiseReduction, cfg, func(s *pipeline.Settings) {
		s.NoiseReducer = cfg
	})
}

// Safety returns the safety engine settings.
func (b *Bridge) Safety() effects.SafetyConfig {
	return b.Settings().Safety
}

// SetSafety replaces the safety engine settings.
func (b *Bridge) SetSafety(cfg effects.SafetyConfig) error {
	return b.updateSettings(EventSafety, cfg, func(s *pipeline.Settings) {
		s.Safety = cfg
	})
}

// FX returns the effect chain settings.
func (b *Bridge) FX() effectchain.FXConfig {
	return b.Settings().FX
}

// SetFX replaces the effect chain settings.
func (b *Bridge) SetFX(cfg effectchain.FXConfig) error {
	return b.updateSettings(EventFX, cfg, func(s *pipeline.Settings) {
		s.FX = cfg
	})
}

func (b *Bridge) updateSettings(typ EventType, data any, apply func(*pipeline.Settings)) error {
	b.mu.Lock()
	next := b.settings
	apply(&next)
	if err := next.Validate(); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("bridge: %w", err)
	}
	b.settings = next
	b.mu.Unlock()

	b.changed(typ, data)
	return nil
}

// HasPendingUpdate reports whether state changed since the last Sync.
func (b *Bridge) HasPendingUpdate() bool { return b.pending.Load() }

// MarkPendingUpdate forces the next Sync to push the full state.
func (b *Bridge) MarkPendingUpdate() { b.pending.Store(true) }

// ClearPendingUpdate drops a pending update without applying it.
func (b *Bridge) ClearPendingUpdate() { b.pending.Store(false) }

// Syncs returns how many updates Sync has applied.
func (b *Bridge) Syncs() uint64 { return b.syncs.Load() }

// Sync pushes a pending update into target and reports whether one was
// applied. Band gains are written in one equalizer transaction (as a
// preset load when a preset is selected), then
// master gain and bypass (= !enabled), then the stage settings. Changes
// made while Sync runs stay pending for the next call.
func (b *Bridge) Sync(target Target) (bool, error) {
	if !b.pending.CompareAndSwap(true, false) {
		return false, nil
	}

	b.mu.Lock()
	gains := append([]float64(nil), b.gains...)
	preset := b.preset
	master := b.masterGainDB
	enabled := b.enabled
	settings := b.settings
	b.mu.Unlock()

	e := target.Equalizer()
	var err error
	if preset != "" && len(gains) == e.NumBands() {
		err = e.LoadPreset(eq.Preset{Name: preset, Gains: gains})
	} else {
		err = e.Update(func() error {
			for i := range min(len(gains), e.NumBands()) {
				if err := e.SetBandGain(i, gains[i]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err != nil {
		b.logger.Error().Err(err).Msg("sync band gains")
		return false, fmt.Errorf("bridge: sync band gains: %w", err)
	}

	if err := e.SetMasterGain(master); err != nil {
		b.logger.Error().Err(err).Msg("sync master gain")
		return false, fmt.Errorf("bridge: sync master gain: %w", err)
	}
	e.SetBypass(!enabled)

	if err := target.Configure(settings); err != nil {
		b.logger.Error().Err(err).Msg("sync stage settings")
		return false, fmt.Errorf("bridge: sync stage settings: %w", err)
	}

	b.syncs.Add(1)
	b.events.Publish(Event{Type: EventSynced})
	return true, nil
}

// StartSpectrum starts the attached analyzer.
func (b *Bridge) StartSpectrum() {
	if b.analyzer != nil {
		b.analyzer.Start()
	}
}

// StopSpectrum stops the attached analyzer.
func (b *Bridge) StopSpectrum() {
	if b.analyzer != nil {
		b.analyzer.Stop()
	}
}

// SpectrumRunning reports whether the analyzer is running.
func (b *Bridge) SpectrumRunning() bool {
	return b.analyzer != nil && b.analyzer.Running()
}

// SpectrumBars returns the number of bars CopyMagnitudes fills.
func (b *Bridge) SpectrumBars() int {
	if b.analyzer == nil {
		return spectrum.DefaultBars
	}
	return b.analyzer.Bars()
}

// CopyMagnitudes copies the latest spectrum bars into dst and returns the
// count. Without a running analyzer the bars are zero.
func (b *Bridge) CopyMagnitudes(dst []float32) int {
	if b.analyzer == nil {
		n := min(len(dst), spectrum.DefaultBars)
		clear(dst[:n])
		return n
	}
	return b.analyzer.CopyMagnitudes(dst)
}

// PublishSpectrum queues the current bars as an EventSpectrum. It returns
// false when the analyzer is stopped or the queue is full.
func (b *Bridge) PublishSpectrum() bool {
	if !b.SpectrumRunning() {
		return false
	}
	bars := make([]float32, b.analyzer.Bars())
	b.analyzer.CopyMagnitudes(bars)
	return b.events.Publish(Event{Type: EventSpectrum, Data: bars})
}

// changed marks the state pending and reports the change.
func (b *Bridge) changed(typ EventType, data any) {
	b.pending.Store(true)
	if !b.events.Publish(Event{Type: typ, Data: data}) {
		b.logger.Debug().Str("event", string(typ)).Uint64("dropped", b.events.Dropped()).Msg("event queue full")
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
