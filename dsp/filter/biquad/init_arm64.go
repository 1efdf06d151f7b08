//go:build arm64 && !purego

package biquad

import (
	_ "github.com/cwbudde/algo-eqchain/dsp/filter/biquad/internal/arch/block4"
	_ "github.com/cwbudde/algo-eqchain/dsp/filter/biquad/internal/arch/generic"
	_ "github.com/cwbudde/algo-eqchain/dsp/filter/biquad/internal/arch/registry"
)
