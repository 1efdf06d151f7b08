package eq

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-eqchain/dsp/core"
	"github.com/cwbudde/algo-eqchain/dsp/filter/biquad"
	"github.com/cwbudde/algo-eqchain/dsp/filter/design"
)

// snapshot is an immutable coefficient set read by the audio goroutine.
type snapshot struct {
	coeffs  []biquad.Coefficients
	enabled []bool
}

// Equalizer is a fixed-size cascade of biquad bands with master gain and
// bypass.
type Equalizer struct {
	// control state, guarded by mu
	mu           sync.Mutex
	sampleRate   float64
	bands        []Band
	dirty        []bool
	depth        int
	masterGainDB float64
	presetName   string
	recomputes   []uint64

	// published state, read lock-free by the audio goroutine
	current      atomic.Pointer[snapshot]
	masterGain   atomic.Uint32 // float32 bits, linear
	bypass       atomic.Bool
	resetPending atomic.Bool

	// audio goroutine state
	filters []*biquad.Filter
}

type config struct {
	bands        []Band
	masterGainDB float64
	bypass       bool
}

// Option configures an Equalizer at construction.
type Option func(*config)

// WithBands replaces the default band layout. The slice length must match
// the band count passed to New.
func WithBands(bands []Band) Option {
	return func(c *config) {
		c.bands = append([]Band(nil), bands...)
	}
}

// WithMasterGainDB sets the initial master gain.
func WithMasterGainDB(db float64) Option {
	return func(c *config) {
		c.masterGainDB = db
	}
}

// WithBypass sets the initial bypass state.
func WithBypass(bypass bool) Option {
	return func(c *config) {
		c.bypass = bypass
	}
}

// New creates an equalizer with numBands bands at sampleRate.
func New(numBands int, sampleRate float64, opts ...Option) (*Equalizer, error) {
	if numBands <= 0 {
		return nil, fmt.Errorf("%w: band count must be > 0: %d", ErrInvalidParameter, numBands)
	}
	if !core.ValidSampleRate(sampleRate) {
		return nil, fmt.Errorf("eq sample rate must be positive and finite: %f", sampleRate)
	}

	cfg := config{bands: DefaultBands(numBands)}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if len(cfg.bands) != numBands {
		return nil, fmt.Errorf("%w: got %d band configs for %d bands", ErrInvalidParameter, len(cfg.bands), numBands)
	}

	e := &Equalizer{
		sampleRate: sampleRate,
		bands:      make([]Band, numBands),
		dirty:      make([]bool, numBands),
		recomputes: make([]uint64, numBands),
		filters:    make([]*biquad.Filter, numBands),
	}
	for i := range e.filters {
		e.filters[i] = biquad.NewFilter()
		e.bands[i] = cfg.bands[i].sanitize(sampleRate)
		e.dirty[i] = true
	}

	e.mu.Lock()
	e.setMasterGainLocked(cfg.masterGainDB)
	e.commitLocked()
	e.mu.Unlock()
	e.bypass.Store(cfg.bypass)

	return e, nil
}

// NewDefault creates the standard 10-band equalizer.
func NewDefault(sampleRate float64) (*Equalizer, error) {
	return New(len(DefaultFrequencies), sampleRate)
}

// NumBands returns the fixed band count.
func (e *Equalizer) NumBands() int {
	return len(e.filters)
}

// SampleRate returns the current sample rate in Hz.
func (e *Equalizer) SampleRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampleRate
}

// SetSampleRate changes the sample rate, redesigns every band and schedules
// a filter state reset before the next processed block.
func (e *Equalizer) SetSampleRate(sampleRate float64) error {
	if !core.ValidSampleRate(sampleRate) {
		return fmt.Errorf("eq sample rate must be positive and finite: %f", sampleRate)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.sampleRate = sampleRate
	for i := range e.bands {
		e.bands[i] = e.bands[i].sanitize(sampleRate)
		e.dirty[i] = true
	}
	e.commitLocked()
	e.resetPending.Store(true)

	return nil
}

// BeginParameterUpdate opens a (nestable) transaction.
func (e *Equalizer) BeginParameterUpdate() {
	e.mu.Lock()
	e.depth++
	e.mu.Unlock()
}

// EndParameterUpdate closes a transaction. Closing the outermost bracket
// redesigns each dirty band once and publishes one snapshot.
func (e *Equalizer) EndParameterUpdate() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.depth == 0 {
		return ErrNoTransaction
	}
	e.depth--
	e.commitLocked()
	return nil
}

// InTransaction reports whether a transaction is open.
func (e *Equalizer) InTransaction() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.depth > 0
}

// Update runs fn inside a transaction.
func (e *Equalizer) Update(fn func() error) error {
	e.BeginParameterUpdate()
	err := fn()
	if endErr := e.EndParameterUpdate(); err == nil {
		err = endErr
	}
	return err
}

// SetBandGain sets the gain of band i in dB, clamped to ±24 dB. The gain
// vector no longer matches a preset afterwards, so the preset name is cleared.
func (e *Equalizer) SetBandGain(i int, gainDB float64) error {
	return e.mutateBand(i, gainDB, func(b *Band) {
		b.GainDB = clampGain(gainDB)
		e.presetName = ""
	})
}

// SetBandFrequency sets the center of band i in Hz, clamped to
// [20, fs/2 - margin].
func (e *Equalizer) SetBandFrequency(i int, freq float64) error {
	return e.mutateBand(i, freq, func(b *Band) { b.Frequency = clampFrequency(freq, e.sampleRate) })
}

// SetBandQ sets the quality factor of band i, clamped to [0.1, 10].
func (e *Equalizer) SetBandQ(i int, q float64) error {
	return e.mutateBand(i, q, func(b *Band) { b.Q = clampQ(q) })
}

// SetBandType sets the filter shape of band i. Unknown shapes become peaking.
func (e *Equalizer) SetBandType(i int, t design.Type) error {
	return e.mutateBand(i, 0, func(b *Band) { b.Type = design.TypeFromCode(int(t)) })
}

// SetBandEnabled enables or disables band i. Disabled bands pass audio
// through unchanged.
func (e *Equalizer) SetBandEnabled(i int, enabled bool) error {
	return e.mutateBand(i, 0, func(b *Band) { b.Enabled = enabled })
}

// SetBand replaces every parameter of band i.
func (e *Equalizer) SetBand(i int, b Band) error {
	return e.mutateBand(i, 0, func(dst *Band) { *dst = b.sanitize(e.sampleRate) })
}

func (e *Equalizer) mutateBand(i int, value float64, apply func(*Band)) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: non-finite value for band %d", ErrInvalidParameter, i)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if i < 0 || i >= len(e.bands) {
		return fmt.Errorf("%w: band index %d out of range [0, %d)", ErrInvalidParameter, i, len(e.bands))
	}

	apply(&e.bands[i])
	e.dirty[i] = true
	if e.depth == 0 {
		e.commitLocked()
	}
	return nil
}

// Band returns a copy of band i.
func (e *Equalizer) Band(i int) (Band, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i < 0 || i >= len(e.bands) {
		return Band{}, fmt.Errorf("%w: band index %d out of range [0, %d)", ErrInvalidParameter, i, len(e.bands))
	}
	return e.bands[i], nil
}

// Bands returns a copy of all bands.
func (e *Equalizer) Bands() []Band {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Band(nil), e.bands...)
}

// CopyBandGains writes up to len(dst) band gains into dst and returns the
// number written.
func (e *Equalizer) CopyBandGains(dst []float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := min(len(dst), len(e.bands))
	for i := range n {
		dst[i] = e.bands[i].GainDB
	}
	return n
}

// SetMasterGain sets the post-cascade gain in dB.
func (e *Equalizer) SetMasterGain(db float64) error {
	if math.IsNaN(db) || math.IsInf(db, 0) {
		return fmt.Errorf("%w: non-finite master gain", ErrInvalidParameter)
	}

	e.mu.Lock()
	e.setMasterGainLocked(db)
	e.mu.Unlock()
	return nil
}

// MasterGain returns the master gain in dB.
func (e *Equalizer) MasterGain() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.masterGainDB
}

func (e *Equalizer) setMasterGainLocked(db float64) {
	e.masterGainDB = clampGain(db)
	e.masterGain.Store(math.Float32bits(float32(core.DBToLinear(e.masterGainDB))))
}

// SetBypass switches passthrough mode.
func (e *Equalizer) SetBypass(bypass bool) {
	e.bypass.Store(bypass)
}

// Bypassed reports whether the equalizer is in passthrough mode.
func (e *Equalizer) Bypassed() bool {
	return e.bypass.Load()
}

// RecomputeCount returns how many times band i has been redesigned.
func (e *Equalizer) RecomputeCount(i int) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i < 0 || i >= len(e.recomputes) {
		return 0
	}
	return e.recomputes[i]
}

// TotalRecomputes returns the sum of all band redesigns.
func (e *Equalizer) TotalRecomputes() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sum uint64
	for _, n := range e.recomputes {
		sum += n
	}
	return sum
}

// MagnitudeDB returns the response of the enabled cascade including master
// gain at freq. Bypass yields 0 dB.
func (e *Equalizer) MagnitudeDB(freq float64) float64 {
	if e.bypass.Load() {
		return 0
	}

	s := e.current.Load()
	e.mu.Lock()
	sr, gain := e.sampleRate, e.masterGainDB
	e.mu.Unlock()

	db := gain
	for i, c := range s.coeffs {
		if s.enabled[i] {
			db += c.MagnitudeDB(freq, sr)
		}
	}
	return db
}

// commitLocked redesigns dirty bands and publishes a new snapshot. It is a
// no-op while a transaction is open.
func (e *Equalizer) commitLocked() {
	if e.depth > 0 {
		return
	}

	prev := e.current.Load()
	next := &snapshot{
		coeffs:  make([]biquad.Coefficients, len(e.bands)),
		enabled: make([]bool, len(e.bands)),
	}

	changed := prev == nil
	for i, b := range e.bands {
		next.enabled[i] = b.Enabled
		if e.dirty[i] || prev == nil {
			next.coeffs[i] = design.Design(b.Type, b.Frequency, b.Q, b.GainDB, e.sampleRate)
			e.recomputes[i]++
			e.dirty[i] = false
			changed = true
			continue
		}
		next.coeffs[i] = prev.coeffs[i]
		if prev.enabled[i] != b.Enabled {
			changed = true
		}
	}

	if changed {
		e.current.Store(next)
	}
}
