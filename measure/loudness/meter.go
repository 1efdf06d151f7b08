// Package loudness measures programme loudness of interleaved float32 audio
// following ITU-R BS.1770 K-weighting and EBU R128 gating.
package loudness

import (
	"math"

	"github.com/cwbudde/algo-eqchain/dsp/filter/biquad"
	"github.com/cwbudde/algo-eqchain/dsp/filter/design"
)

const (
	shelfFreq   = 1500.0
	shelfGainDB = 4.0
	hpfFreq     = 38.0

	momentarySeconds = 0.4
	shortTermSeconds = 3.0

	absGateLUFS = -70.0
	relGateLU   = -10.0
	// gating blocks overlap by 75%
	blockStep = momentarySeconds / 4

	// Floor reported for silence by Momentary and ShortTerm.
	FloorLUFS = -120.0
)

// window is a running sum of squares over a fixed number of samples.
type window struct {
	hist []float64
	pos  int
	sum  float64
}

func newWindow(n int) window {
	return window{hist: make([]float64, max(n, 1))}
}

func (w *window) push(sq float64) {
	w.sum += sq - w.hist[w.pos]
	if w.sum < 0 {
		w.sum = 0
	}
	w.hist[w.pos] = sq
	w.pos++
	if w.pos == len(w.hist) {
		w.pos = 0
	}
}

func (w *window) mean() float64 {
	return w.sum / float64(len(w.hist))
}

func (w *window) reset() {
	clear(w.hist)
	w.pos = 0
	w.sum = 0
}

type channelState struct {
	shelf *biquad.Filter
	hpf   *biquad.Filter
	mom   window
	short window
	peak  float64
}

// Meter implements EBU R128 momentary, short-term and integrated loudness.
// It is not safe for concurrent use.
type Meter struct {
	cfg      MeterConfig
	ch       []channelState
	step     int
	sinceRun int
	blocks   []float64
	running  bool
}

// NewMeter returns a meter with integration already running.
func NewMeter(opts ...MeterOption) *Meter {
	cfg := ApplyMeterOptions(opts...)
	m := &Meter{
		cfg:     cfg,
		ch:      make([]channelState, cfg.Channels),
		step:    max(int(math.Round(blockStep*cfg.SampleRate)), 1),
		running: true,
	}

	shelf := design.HighShelfRBJ(shelfFreq, shelfGainDB, 1, cfg.SampleRate)
	hpf := design.HighpassRBJ(hpfFreq, 1/math.Sqrt2, cfg.SampleRate)
	for i := range m.ch {
		c := &m.ch[i]
		c.shelf = biquad.NewFilter()
		c.shelf.SetNormalized(shelf)
		c.hpf = biquad.NewFilter()
		c.hpf.SetNormalized(hpf)
		c.mom = newWindow(int(math.Round(momentarySeconds * cfg.SampleRate)))
		c.short = newWindow(int(math.Round(shortTermSeconds * cfg.SampleRate)))
	}
	return m
}

// Channels returns the interleaved channel count.
func (m *Meter) Channels() int { return m.cfg.Channels }

// SampleRate returns the metering sample rate in Hz.
func (m *Meter) SampleRate() float64 { return m.cfg.SampleRate }

// Reset clears filter state, windows, peaks and gating blocks.
func (m *Meter) Reset() {
	for i := range m.ch {
		c := &m.ch[i]
		c.shelf.Reset()
		c.hpf.Reset()
		c.mom.reset()
		c.short.reset()
		c.peak = 0
	}
	m.sinceRun = 0
	m.blocks = m.blocks[:0]
}

// StartIntegration resumes collecting gating blocks.
func (m *Meter) StartIntegration() { m.running = true }

// StopIntegration pauses collecting gating blocks. Momentary and short-term
// readings keep updating.
func (m *Meter) StopIntegration() { m.running = false }

// Process meters one interleaved block. A trailing partial frame is ignored.
func (m *Meter) Process(block []float32) {
	n := len(m.ch)
	for f := 0; f+n <= len(block); f += n {
		for i := range m.ch {
			c := &m.ch[i]
			x := block[f+i]
			if a := math.Abs(float64(x)); a > c.peak {
				c.peak = a
			}
			y := float64(c.hpf.ProcessSample(c.shelf.ProcessSample(x)))
			sq := y * y
			c.mom.push(sq)
			c.short.push(sq)
		}

		if !m.running {
			continue
		}
		m.sinceRun++
		if m.sinceRun >= m.step {
			m.sinceRun = 0
			m.blocks = append(m.blocks, m.momentaryPower())
		}
	}
}

func (m *Meter) momentaryPower() float64 {
	var p float64
	for i := range m.ch {
		p += m.ch[i].mom.mean()
	}
	return p
}

// Momentary returns the 400 ms loudness in LUFS.
func (m *Meter) Momentary() float64 {
	return toLUFS(m.momentaryPower())
}

// ShortTerm returns the 3 s loudness in LUFS.
func (m *Meter) ShortTerm() float64 {
	var p float64
	for i := range m.ch {
		p += m.ch[i].short.mean()
	}
	return toLUFS(p)
}

// Integrated returns the gated programme loudness in LUFS, or -Inf when no
// block passes the absolute gate.
func (m *Meter) Integrated() float64 {
	var sum float64
	var n int
	for _, b := range m.blocks {
		if toLUFS(b) > absGateLUFS {
			sum += b
			n++
		}
	}
	if n == 0 {
		return math.Inf(-1)
	}

	gate := toLUFS(sum/float64(n)) + relGateLU
	sum, n = 0, 0
	for _, b := range m.blocks {
		if l := toLUFS(b); l > absGateLUFS && l > gate {
			sum += b
			n++
		}
	}
	if n == 0 {
		return math.Inf(-1)
	}
	return toLUFS(sum / float64(n))
}

// Peak returns the largest absolute sample seen on any channel since Reset.
func (m *Meter) Peak() float64 {
	var p float64
	for i := range m.ch {
		p = max(p, m.ch[i].peak)
	}
	return p
}

func toLUFS(power float64) float64 {
	if power <= 0 {
		return FloorLUFS
	}
	return -0.691 + 10*math.Log10(power)
}
