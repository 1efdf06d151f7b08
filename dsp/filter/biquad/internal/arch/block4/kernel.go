package block4

import "github.com/cwbudde/algo-eqchain/dsp/filter/biquad/internal/arch/registry"

// processBlock walks the input in blocks of four samples. The recursion is
// still evaluated one sample at a time; unrolling only removes loop and
// bounds-check overhead.
func processBlock(c registry.Coefficients, st registry.State, dst, src []float32) registry.State {
	b0, b1, b2 := c.B0, c.B1, c.B2
	a1, a2 := c.A1, c.A2
	w1, w2 := st.W1, st.W2

	n := len(src)
	if n == 0 {
		return st
	}
	_ = dst[n-1]

	i := 0
	for ; i+3 < n; i += 4 {
		in := src[i : i+4 : i+4]
		out := dst[i : i+4 : i+4]

		w := float64(in[0]) - a1*w1 - a2*w2
		out[0] = float32(b0*w + b1*w1 + b2*w2)
		w2, w1 = w1, registry.Flush(w)

		w = float64(in[1]) - a1*w1 - a2*w2
		out[1] = float32(b0*w + b1*w1 + b2*w2)
		w2, w1 = w1, registry.Flush(w)

		w = float64(in[2]) - a1*w1 - a2*w2
		out[2] = float32(b0*w + b1*w1 + b2*w2)
		w2, w1 = w1, registry.Flush(w)

		w = float64(in[3]) - a1*w1 - a2*w2
		out[3] = float32(b0*w + b1*w1 + b2*w2)
		w2, w1 = w1, registry.Flush(w)
	}

	for ; i < n; i++ {
		w := float64(src[i]) - a1*w1 - a2*w2
		dst[i] = float32(b0*w + b1*w1 + b2*w2)
		w2, w1 = w1, registry.Flush(w)
	}

	return registry.State{W1: w1, W2: w2}
}

// processStereo advances both channels in lockstep. The channels are
// independent, so their recursions interleave without a data dependency.
func processStereo(c registry.Coefficients, l, r registry.State, dstL, dstR, srcL, srcR []float32) (registry.State, registry.State) {
	b0, b1, b2 := c.B0, c.B1, c.B2
	a1, a2 := c.A1, c.A2
	l1, l2 := l.W1, l.W2
	r1, r2 := r.W1, r.W2

	n := min(len(srcL), len(srcR))
	if n == 0 {
		return l, r
	}
	_ = dstL[n-1]
	_ = dstR[n-1]

	for i := 0; i < n; i++ {
		wl := float64(srcL[i]) - a1*l1 - a2*l2
		wr := float64(srcR[i]) - a1*r1 - a2*r2
		dstL[i] = float32(b0*wl + b1*l1 + b2*l2)
		dstR[i] = float32(b0*wr + b1*r1 + b2*r2)
		l2, l1 = l1, registry.Flush(wl)
		r2, r1 = r1, registry.Flush(wr)
	}

	return registry.State{W1: l1, W2: l2}, registry.State{W1: r1, W2: r2}
}
