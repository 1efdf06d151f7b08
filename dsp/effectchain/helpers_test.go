package effectchain

import "errors"

const testSampleRate = 48000.0

func testCtx() Context {
	return Context{SampleRate: testSampleRate}
}

var errStub = errors.New("stub configure failure")

// stubStage records calls for assertions.
type stubStage struct {
	configureErr   error
	configureCalls int
	processCalls   int
	resetCalls     int
	lastCtx        Context
	lastParams     Params
}

func (s *stubStage) Configure(ctx Context, params Params) error {
	s.configureCalls++
	s.lastCtx = ctx
	s.lastParams = params

	if params.GetNum("fail", 0) != 0 {
		return errStub
	}
	return s.configureErr
}

func (s *stubStage) ProcessMono(dst, src []float32) {
	s.processCalls++
	copy(dst, src)
}

func (s *stubStage) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	s.processCalls++
	copy(dstL, srcL)
	copy(dstR, srcR)
}

func (s *stubStage) Reset() { s.resetCalls++ }

// addStage adds a constant to every sample so ordering is observable.
type addStage struct {
	value float32
}

func (a *addStage) Configure(_ Context, params Params) error {
	a.value = float32(params.GetNum("value", 0))
	return nil
}

func (a *addStage) ProcessMono(dst, src []float32) {
	for i := range src {
		dst[i] = src[i] + a.value
	}
}

func (a *addStage) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	a.ProcessMono(dstL, srcL)
	a.ProcessMono(dstR, srcR)
}

func (a *addStage) Reset() {}

// testRegistry creates a registry with simple test stages.
func testRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister("stub", func(_ Context) (Stage, error) {
		return &stubStage{}, nil
	})
	r.MustRegister("add", func(_ Context) (Stage, error) {
		return &addStage{}, nil
	})
	r.MustRegister("broken", func(_ Context) (Stage, error) {
		return nil, errStub
	})
	r.MustRegister(TypeGain, func(_ Context) (Stage, error) {
		return &gainStage{gain: 1}, nil
	})

	return r
}
