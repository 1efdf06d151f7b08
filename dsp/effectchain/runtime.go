package effectchain

// Stage is the per-node processing and configuration contract.
type Stage interface {
	Configure(ctx Context, params Params) error
	ProcessMono(dst, src []float32)
	ProcessStereo(dstL, dstR, srcL, srcR []float32)
	Reset()
}

// Context provides environmental information that stages need.
type Context struct {
	SampleRate float64
}
