package effectchain

import (
	"github.com/cwbudde/algo-eqchain/dsp/effects"
	"github.com/cwbudde/algo-eqchain/dsp/effects/dynamics"
)

// Built-in effect types.
const (
	TypeCompressor = "compressor"
	TypeDelay      = "delay"
	TypeLimiter    = "limiter"
	TypeGain       = "gain"
)

// DefaultRegistry returns a Registry pre-populated with the built-in stages.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(TypeCompressor, func(ctx Context) (Stage, error) {
		fx, err := dynamics.NewCompressor(ctx.SampleRate)
		if err != nil {
			return nil, err
		}

		return &compressorStage{fx: fx}, nil
	})
	r.MustRegister(TypeDelay, func(ctx Context) (Stage, error) {
		fx, err := effects.NewDelay(ctx.SampleRate)
		if err != nil {
			return nil, err
		}

		return &delayStage{fx: fx}, nil
	})
	r.MustRegister(TypeLimiter, func(ctx Context) (Stage, error) {
		fx, err := dynamics.NewLimiter(ctx.SampleRate)
		if err != nil {
			return nil, err
		}

		return &limiterStage{fx: fx}, nil
	})
	r.MustRegister(TypeGain, func(_ Context) (Stage, error) {
		return &gainStage{gain: 1}, nil
	})

	return r
}
