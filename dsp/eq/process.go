package eq

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-eqchain/dsp/core"
)

// Process runs src through the enabled bands in index order and applies the
// master gain, writing to dst. Only the common length of dst and src is
// processed. dst and src may alias. Process must only be called from the
// audio goroutine.
func (e *Equalizer) Process(dst, src []float32) {
	n := min(len(dst), len(src))
	dst, src = dst[:n], src[:n]

	e.applyPendingReset()

	if e.bypass.Load() {
		copy(dst, src)
		return
	}

	s := e.current.Load()
	in := src
	filtered := false
	for i, f := range e.filters {
		if !s.enabled[i] {
			continue
		}
		f.ProcessWith(s.coeffs[i], dst, in)
		in = dst
		filtered = true
	}
	if !filtered {
		copy(dst, src)
	}

	if g := math.Float32frombits(e.masterGain.Load()); g != 1 {
		core.Scale(dst, g)
	}
}

// ProcessStereo is the two-channel form of Process. Each band keeps
// independent left and right state. Only the common length of all four
// buffers is processed.
func (e *Equalizer) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	n := core.CommonLen(dstL, dstR, srcL, srcR)
	dstL, dstR, srcL, srcR = dstL[:n], dstR[:n], srcL[:n], srcR[:n]

	e.applyPendingReset()

	if e.bypass.Load() {
		copy(dstL, srcL)
		copy(dstR, srcR)
		return
	}

	s := e.current.Load()
	inL, inR := srcL, srcR
	filtered := false
	for i, f := range e.filters {
		if !s.enabled[i] {
			continue
		}
		f.ProcessStereoWith(s.coeffs[i], dstL, dstR, inL, inR)
		inL, inR = dstL, dstR
		filtered = true
	}
	if !filtered {
		copy(dstL, srcL)
		copy(dstR, srcR)
	}

	if g := math.Float32frombits(e.masterGain.Load()); g != 1 {
		core.Scale(dstL, g)
		core.Scale(dstR, g)
	}
}

// ProcessStereoChecked is ProcessStereo with strict buffer validation: all
// four buffers must have the same length.
func (e *Equalizer) ProcessStereoChecked(dstL, dstR, srcL, srcR []float32) error {
	n := len(srcL)
	if len(srcR) != n || len(dstL) != n || len(dstR) != n {
		return fmt.Errorf("%w: stereo buffer lengths differ: %d/%d/%d/%d",
			ErrInvalidParameter, len(dstL), len(dstR), len(srcL), len(srcR))
	}
	e.ProcessStereo(dstL, dstR, srcL, srcR)
	return nil
}

// ProcessChecked is Process with strict buffer validation.
func (e *Equalizer) ProcessChecked(dst, src []float32) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: buffer lengths differ: %d/%d", ErrInvalidParameter, len(dst), len(src))
	}
	e.Process(dst, src)
	return nil
}

// Reset zeroes the state of every band. It must be called from the audio
// goroutine or while no audio is being processed. Control goroutines use
// RequestReset.
func (e *Equalizer) Reset() {
	e.resetPending.Store(false)
	for _, f := range e.filters {
		f.Reset()
	}
}

// RequestReset asks the audio goroutine to zero all band state before the
// next processed block.
func (e *Equalizer) RequestReset() {
	e.resetPending.Store(true)
}

func (e *Equalizer) applyPendingReset() {
	if e.resetPending.CompareAndSwap(true, false) {
		for _, f := range e.filters {
			f.Reset()
		}
	}
}
