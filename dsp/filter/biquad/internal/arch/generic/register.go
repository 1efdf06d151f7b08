package generic

import (
	"github.com/cwbudde/algo-eqchain/dsp/filter/biquad/internal/arch/registry"
	"github.com/cwbudde/algo-vecmath/cpu"
)

func init() {
	registry.Global.Register(registry.OpEntry{
		Name:          "generic",
		SIMDLevel:     cpu.SIMDNone,
		Priority:      0,
		ProcessBlock:  processBlock,
		ProcessStereo: processStereo,
	})
}

// processBlock is the scalar reference recursion:
//
//	w = x - a1*w1 - a2*w2
//	y = b0*w + b1*w1 + b2*w2
func processBlock(c registry.Coefficients, st registry.State, dst, src []float32) registry.State {
	b0, b1, b2 := c.B0, c.B1, c.B2
	a1, a2 := c.A1, c.A2
	w1, w2 := st.W1, st.W2

	for i, x := range src {
		w := float64(x) - a1*w1 - a2*w2
		y := b0*w + b1*w1 + b2*w2
		w2 = w1
		w1 = registry.Flush(w)
		dst[i] = float32(y)
	}

	return registry.State{W1: w1, W2: w2}
}

func processStereo(c registry.Coefficients, l, r registry.State, dstL, dstR, srcL, srcR []float32) (registry.State, registry.State) {
	return processBlock(c, l, dstL, srcL), processBlock(c, r, dstR, srcR)
}
