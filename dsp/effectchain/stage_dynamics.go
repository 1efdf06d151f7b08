package effectchain

import (
	"fmt"

	"github.com/cwbudde/algo-eqchain/dsp/effects/dynamics"
)

type compressorStage struct {
	fx *dynamics.Compressor
}

func (s *compressorStage) Configure(ctx Context, p Params) error {
	err := s.fx.SetSampleRate(ctx.SampleRate)
	if err != nil {
		return fmt.Errorf("effectchain: configure compressor sample rate: %w", err)
	}

	err = s.fx.SetThreshold(p.GetNum("thresholdDB", dynamics.DefaultCompressorThresholdDB))
	if err != nil {
		return fmt.Errorf("effectchain: configure compressor threshold: %w", err)
	}

	err = s.fx.SetRatio(p.GetNum("ratio", dynamics.DefaultCompressorRatio))
	if err != nil {
		return fmt.Errorf("effectchain: configure compressor ratio: %w", err)
	}

	err = s.fx.SetKnee(p.GetNum("kneeDB", dynamics.DefaultCompressorKneeDB))
	if err != nil {
		return fmt.Errorf("effectchain: configure compressor knee: %w", err)
	}

	err = s.fx.SetAttack(p.GetNum("attackMs", dynamics.DefaultCompressorAttackMs))
	if err != nil {
		return fmt.Errorf("effectchain: configure compressor attack: %w", err)
	}

	err = s.fx.SetRelease(p.GetNum("releaseMs", dynamics.DefaultCompressorReleaseMs))
	if err != nil {
		return fmt.Errorf("effectchain: configure compressor release: %w", err)
	}

	err = s.fx.SetMakeupGain(p.GetNum("makeupGainDB", dynamics.DefaultCompressorMakeupDB))
	if err != nil {
		return fmt.Errorf("effectchain: configure compressor makeup gain: %w", err)
	}

	return nil
}

func (s *compressorStage) ProcessMono(dst, src []float32) {
	s.fx.ProcessMono(dst, src)
}

func (s *compressorStage) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	s.fx.ProcessStereo(dstL, dstR, srcL, srcR)
}

func (s *compressorStage) Reset() { s.fx.Reset() }

type limiterStage struct {
	fx *dynamics.Limiter
}

func (s *limiterStage) Configure(ctx Context, p Params) error {
	err := s.fx.SetSampleRate(ctx.SampleRate)
	if err != nil {
		return fmt.Errorf("effectchain: configure limiter sample rate: %w", err)
	}

	err = s.fx.SetThreshold(p.GetNum("thresholdDB", dynamics.DefaultLimiterThresholdDB))
	if err != nil {
		return fmt.Errorf("effectchain: configure limiter threshold: %w", err)
	}

	err = s.fx.SetKnee(p.GetNum("kneeDB", dynamics.DefaultLimiterKneeDB))
	if err != nil {
		return fmt.Errorf("effectchain: configure limiter knee: %w", err)
	}

	err = s.fx.SetRelease(p.GetNum("releaseMs", dynamics.DefaultLimiterReleaseMs))
	if err != nil {
		return fmt.Errorf("effectchain: configure limiter release: %w", err)
	}

	s.fx.SetSoftKnee(p.GetNum("softKnee", 1) != 0)

	return nil
}

func (s *limiterStage) ProcessMono(dst, src []float32) {
	s.fx.ProcessMono(dst, src)
}

func (s *limiterStage) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	s.fx.ProcessStereo(dstL, dstR, srcL, srcR)
}

func (s *limiterStage) Reset() { s.fx.Reset() }
