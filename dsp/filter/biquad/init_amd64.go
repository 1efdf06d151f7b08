//go:build amd64 && !purego

package biquad

import (
	_ "github.com/cwbudde/algo-eqchain/dsp/filter/biquad/internal/arch/block4"   // register block-of-4 backend
	_ "github.com/cwbudde/algo-eqchain/dsp/filter/biquad/internal/arch/generic"  // register generic backend
	_ "github.com/cwbudde/algo-eqchain/dsp/filter/biquad/internal/arch/registry" // initialize backend registry
)
