package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-eqchain/dsp/core"
)

const (
	DefaultDelayTimeMs   = 150.0
	DefaultDelayFeedback = 0.25
	DefaultDelayMix      = 0.2

	minDelayTimeMs   = 1.0
	maxDelayTimeMs   = 2000.0
	maxDelayFeedback = 0.99
)

// Delay is a stereo feedback delay with dry/wet mix. The delay lines are
// sized for the maximum delay time at construction, so changing the time
// never allocates.
type Delay struct {
	sampleRate float64
	timeMs     float64
	feedback   float64
	mix        float64

	delaySamples int
	left, right  []float64
	write        int
}

// NewDelay creates a delay with 150 ms time, 0.25 feedback and 0.2 mix.
func NewDelay(sampleRate float64) (*Delay, error) {
	if !core.ValidSampleRate(sampleRate) {
		return nil, fmt.Errorf("delay sample rate must be positive and finite: %f", sampleRate)
	}

	d := &Delay{
		sampleRate: sampleRate,
		timeMs:     DefaultDelayTimeMs,
		feedback:   DefaultDelayFeedback,
		mix:        DefaultDelayMix,
	}
	d.allocate()
	return d, nil
}

// SetSampleRate reallocates the delay lines for sampleRate and clears them.
func (d *Delay) SetSampleRate(sampleRate float64) error {
	if !core.ValidSampleRate(sampleRate) {
		return fmt.Errorf("delay sample rate must be positive and finite: %f", sampleRate)
	}
	d.sampleRate = sampleRate
	d.allocate()
	return nil
}

// SetTime sets the delay time in milliseconds, clamped to [1, 2000].
func (d *Delay) SetTime(ms float64) error {
	if !core.IsFinite(ms) {
		return fmt.Errorf("delay time must be finite: %f", ms)
	}
	d.timeMs = core.Clamp(ms, minDelayTimeMs, maxDelayTimeMs)
	d.updateDelaySamples()
	return nil
}

// SetFeedback sets the feedback amount, clamped to [0, 0.99].
func (d *Delay) SetFeedback(feedback float64) error {
	if !core.IsFinite(feedback) {
		return fmt.Errorf("delay feedback must be finite: %f", feedback)
	}
	d.feedback = core.Clamp(feedback, 0, maxDelayFeedback)
	return nil
}

// SetMix sets the wet amount, clamped to [0, 1].
func (d *Delay) SetMix(mix float64) error {
	if !core.IsFinite(mix) {
		return fmt.Errorf("delay mix must be finite: %f", mix)
	}
	d.mix = core.Clamp(mix, 0, 1)
	return nil
}

func (d *Delay) SampleRate() float64 { return d.sampleRate }
func (d *Delay) Time() float64       { return d.timeMs }
func (d *Delay) Feedback() float64   { return d.feedback }
func (d *Delay) Mix() float64        { return d.mix }

// DelaySamples returns the current delay in samples.
func (d *Delay) DelaySamples() int { return d.delaySamples }

// Reset clears both delay lines.
func (d *Delay) Reset() {
	clear(d.left)
	clear(d.right)
	d.write = 0
}

// ProcessMono runs src through the left delay line into dst. dst may alias
// src.
func (d *Delay) ProcessMono(dst, src []float32) {
	n := min(len(dst), len(src))
	for i := range n {
		read := d.readIndex()
		dst[i] = d.tick(d.left, read, src[i])
		d.advance()
	}
}

// ProcessStereo runs each channel through its own delay line.
func (d *Delay) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	n := core.CommonLen(dstL, dstR, srcL, srcR)
	for i := range n {
		read := d.readIndex()
		dstL[i] = d.tick(d.left, read, srcL[i])
		dstR[i] = d.tick(d.right, read, srcR[i])
		d.advance()
	}
}

func (d *Delay) tick(line []float64, read int, x float32) float32 {
	in := float64(x)
	delayed := line[read]
	line[d.write] = core.FlushDenormals(in + delayed*d.feedback)
	return float32(in*(1-d.mix) + delayed*d.mix)
}

func (d *Delay) readIndex() int {
	read := d.write - d.delaySamples
	if read < 0 {
		read += len(d.left)
	}
	return read
}

func (d *Delay) advance() {
	d.write++
	if d.write >= len(d.left) {
		d.write = 0
	}
}

func (d *Delay) allocate() {
	size := int(math.Ceil(maxDelayTimeMs*0.001*d.sampleRate)) + 1
	d.left = make([]float64, size)
	d.right = make([]float64, size)
	d.write = 0
	d.updateDelaySamples()
}

func (d *Delay) updateDelaySamples() {
	d.delaySamples = max(1, min(int(math.Round(d.timeMs*0.001*d.sampleRate)), len(d.left)-1))
}
