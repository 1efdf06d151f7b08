package effectchain

import (
	"fmt"

	"github.com/cwbudde/algo-eqchain/dsp/core"
	"github.com/cwbudde/algo-eqchain/dsp/effects"
)

type delayStage struct {
	fx *effects.Delay
}

func (s *delayStage) Configure(ctx Context, p Params) error {
	if ctx.SampleRate != s.fx.SampleRate() {
		err := s.fx.SetSampleRate(ctx.SampleRate)
		if err != nil {
			return fmt.Errorf("effectchain: configure delay sample rate: %w", err)
		}
	}

	err := s.fx.SetTime(p.GetNum("delayMs", effects.DefaultDelayTimeMs))
	if err != nil {
		return fmt.Errorf("effectchain: configure delay time: %w", err)
	}

	err = s.fx.SetFeedback(p.GetNum("feedback", effects.DefaultDelayFeedback))
	if err != nil {
		return fmt.Errorf("effectchain: configure delay feedback: %w", err)
	}

	err = s.fx.SetMix(p.GetNum("mix", effects.DefaultDelayMix))
	if err != nil {
		return fmt.Errorf("effectchain: configure delay mix: %w", err)
	}

	return nil
}

func (s *delayStage) ProcessMono(dst, src []float32) {
	s.fx.ProcessMono(dst, src)
}

func (s *delayStage) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	s.fx.ProcessStereo(dstL, dstR, srcL, srcR)
}

func (s *delayStage) Reset() { s.fx.Reset() }

// gainStage applies a fixed gain in dB.
type gainStage struct {
	gain float32
}

func (s *gainStage) Configure(_ Context, p Params) error {
	s.gain = float32(core.DBToLinear(core.Clamp(p.GetNum("gainDB", 0), -60, 24)))
	return nil
}

func (s *gainStage) ProcessMono(dst, src []float32) {
	n := core.CopyInto(dst, src)
	core.Scale(dst[:n], s.gain)
}

func (s *gainStage) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	s.ProcessMono(dstL, srcL)
	s.ProcessMono(dstR, srcR)
}

func (s *gainStage) Reset() {}
