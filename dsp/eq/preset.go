package eq

import (
	"fmt"
	"math"
)

// Preset is a named vector of per-band gains in dB.
type Preset struct {
	Name  string    `json:"name" yaml:"name"`
	Gains []float64 `json:"gains" yaml:"gains"`
}

// Validate checks that the preset has a name and finite gains.
func (p Preset) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: preset name is empty", ErrInvalidParameter)
	}
	for i, g := range p.Gains {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return fmt.Errorf("%w: preset %q gain %d is not finite", ErrInvalidParameter, p.Name, i)
		}
	}
	return nil
}

// LoadPreset applies p's gains under one transaction. Frequency, Q and type
// are left untouched. The gain vector length must equal the band count.
func (e *Equalizer) LoadPreset(p Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if len(p.Gains) != e.NumBands() {
		return fmt.Errorf("%w: preset %q has %d gains, equalizer has %d bands",
			ErrInvalidParameter, p.Name, len(p.Gains), e.NumBands())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, g := range p.Gains {
		e.bands[i].GainDB = clampGain(g)
		e.dirty[i] = true
	}
	e.presetName = p.Name
	e.commitLocked()
	return nil
}

// SavePreset captures the current band gains under name. An empty name
// reuses the name of the last loaded preset.
func (e *Equalizer) SavePreset(name string) Preset {
	e.mu.Lock()
	defer e.mu.Unlock()

	if name == "" {
		name = e.presetName
	}
	p := Preset{Name: name, Gains: make([]float64, len(e.bands))}
	for i, b := range e.bands {
		p.Gains[i] = b.GainDB
	}
	return p
}

// CurrentPreset returns the name of the last loaded preset.
func (e *Equalizer) CurrentPreset() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presetName
}
