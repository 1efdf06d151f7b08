package eq

import (
	"math"

	"github.com/cwbudde/algo-eqchain/dsp/core"
	"github.com/cwbudde/algo-eqchain/dsp/filter/design"
)

// Parameter bounds.
const (
	MinFrequency = 20.0
	MinGainDB    = -24.0
	MaxGainDB    = 24.0
	MinQ         = 0.1
	MaxQ         = 10.0

	// nyquistMargin keeps band centers this fraction of fs below Nyquist.
	nyquistMargin = 0.01

	// DefaultQ is the Q of the default band layout.
	DefaultQ = 0.7
)

// DefaultFrequencies are the centers of the default 10-band layout.
var DefaultFrequencies = []float64{32, 64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// Band describes one equalizer band.
type Band struct {
	Frequency float64     `json:"frequency" yaml:"frequency" mapstructure:"frequency"`
	GainDB    float64     `json:"gainDb" yaml:"gain_db" mapstructure:"gain_db"`
	Q         float64     `json:"q" yaml:"q" mapstructure:"q"`
	Type      design.Type `json:"type" yaml:"type" mapstructure:"type"`
	Enabled   bool        `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
}

// DefaultBands returns the band layout for n bands. Ten bands use the
// standard octave layout with a low shelf at the bottom and a high shelf at
// the top. Other counts are spaced logarithmically between 31.25 Hz and
// 16 kHz, all peaking.
func DefaultBands(n int) []Band {
	if n <= 0 {
		return nil
	}

	bands := make([]Band, n)
	if n == len(DefaultFrequencies) {
		for i, f := range DefaultFrequencies {
			bands[i] = Band{Frequency: f, Q: DefaultQ, Type: design.Peaking, Enabled: true}
		}
		bands[0].Type = design.LowShelf
		bands[n-1].Type = design.HighShelf
		return bands
	}

	const lo, hi = 31.25, 16000.0
	for i := range bands {
		f := lo
		if n > 1 {
			f = lo * math.Pow(hi/lo, float64(i)/float64(n-1))
		}
		bands[i] = Band{Frequency: f, Q: DefaultQ, Type: design.Peaking, Enabled: true}
	}
	return bands
}

// MaxFrequency returns the highest allowed band center at sampleRate.
func MaxFrequency(sampleRate float64) float64 {
	return sampleRate/2 - nyquistMargin*sampleRate
}

// clampFrequency bounds freq to [MinFrequency, MaxFrequency(sampleRate)].
func clampFrequency(freq, sampleRate float64) float64 {
	return core.Clamp(freq, MinFrequency, math.Max(MinFrequency, MaxFrequency(sampleRate)))
}

func clampGain(gainDB float64) float64 {
	return core.Clamp(gainDB, MinGainDB, MaxGainDB)
}

func clampQ(q float64) float64 {
	return core.Clamp(q, MinQ, MaxQ)
}

// sanitize clamps every field of b to the safe range at sampleRate.
func (b Band) sanitize(sampleRate float64) Band {
	if !core.IsFinite(b.Frequency) {
		b.Frequency = 1000
	}
	if !core.IsFinite(b.GainDB) {
		b.GainDB = 0
	}
	if !core.IsFinite(b.Q) {
		b.Q = DefaultQ
	}
	b.Frequency = clampFrequency(b.Frequency, sampleRate)
	b.GainDB = clampGain(b.GainDB)
	b.Q = clampQ(b.Q)
	b.Type = design.TypeFromCode(int(b.Type))
	return b
}
