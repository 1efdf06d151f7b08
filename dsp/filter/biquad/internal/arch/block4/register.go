//go:build (amd64 || arm64) && !purego

package block4

import (
	"runtime"

	"github.com/cwbudde/algo-eqchain/dsp/filter/biquad/internal/arch/registry"
	"github.com/cwbudde/algo-vecmath/cpu"
)

func init() {
	level := cpu.SIMDSSE2
	if runtime.GOARCH == "arm64" {
		level = cpu.SIMDNEON
	}

	registry.Global.Register(registry.OpEntry{
		Name:          "block4",
		SIMDLevel:     level,
		Priority:      10,
		ProcessBlock:  processBlock,
		ProcessStereo: processStereo,
	})
}
