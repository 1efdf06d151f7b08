package effectchain

import (
	"errors"
	"math"
	"testing"
)

func TestChainNew(t *testing.T) {
	t.Parallel()

	c := New(testCtx(), testRegistry())
	if c.Len() != 0 || !c.Enabled() {
		t.Fatalf("new chain: len=%d enabled=%v", c.Len(), c.Enabled())
	}
	if c.Context().SampleRate != testSampleRate {
		t.Fatalf("sample rate = %v", c.Context().SampleRate)
	}
}

func TestChainProcessesInOrder(t *testing.T) {
	t.Parallel()

	c := New(testCtx(), testRegistry())
	err := c.Load([]Params{
		{ID: "a", Type: "add", Num: map[string]float64{"value": 1}},
		{ID: "g", Type: TypeGain, Num: map[string]float64{"gainDB": 20 * math.Log10(2)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	src := []float32{0, 1, 2}
	dst := make([]float32, 3)
	c.ProcessMono(dst, src)

	want := []float32{2, 4, 6}
	for i := range want {
		if math.Abs(float64(dst[i]-want[i])) > 1e-5 {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
	if src[1] != 1 {
		t.Fatal("source buffer modified")
	}
}

func TestChainBypassAndDisable(t *testing.T) {
	t.Parallel()

	c := New(testCtx(), testRegistry())
	_ = c.Load([]Params{
		{ID: "a", Type: "add", Num: map[string]float64{"value": 1}},
		{ID: "b", Type: "add", Bypassed: true, Num: map[string]float64{"value": 10}},
	})

	buf := []float32{0, 0}
	c.ProcessStereo(buf, buf, buf, buf)
	if buf[0] != 1 {
		t.Fatalf("bypassed node ran: %v", buf[0])
	}

	c.SetEnabled(false)
	l := []float32{5}
	r := []float32{6}
	outL := make([]float32, 1)
	outR := make([]float32, 1)
	c.ProcessStereo(outL, outR, l, r)
	if outL[0] != 5 || outR[0] != 6 {
		t.Fatalf("disabled chain altered audio: %v %v", outL, outR)
	}
}

func TestChainLoadReusesStages(t *testing.T) {
	t.Parallel()

	c := New(testCtx(), testRegistry())
	_ = c.Load([]Params{{ID: "s", Type: "stub"}})
	first := c.Stage("s").(*stubStage)

	if err := c.Load([]Params{{ID: "s", Type: "stub", Num: map[string]float64{"x": 1}}}); err != nil {
		t.Fatal(err)
	}
	if c.Stage("s") != first {
		t.Fatal("stage was recreated for an unchanged id/type")
	}
	if first.configureCalls != 2 || first.lastParams.GetNum("x", 0) != 1 {
		t.Fatalf("stage not reconfigured: %+v", first)
	}

	_ = c.Load([]Params{{ID: "s", Type: "add"}})
	if _, ok := c.Stage("s").(*addStage); !ok {
		t.Fatal("type change did not replace the stage")
	}
}

func TestChainRetune(t *testing.T) {
	t.Parallel()

	c := New(testCtx(), testRegistry())
	layout := []Params{{ID: "s", Type: "stub"}, {ID: "g", Type: TypeGain}}
	if err := c.Load(layout); err != nil {
		t.Fatal(err)
	}
	stub := c.Stage("s").(*stubStage)

	next := []Params{
		{ID: "s", Type: "stub", Num: map[string]float64{"x": 3}},
		{ID: "g", Type: TypeGain, Num: map[string]float64{"gainDB": -6}},
	}
	if !c.Matches(next) {
		t.Fatal("same ids and types should match")
	}
	if err := c.Retune(next); err != nil {
		t.Fatal(err)
	}
	if c.Stage("s") != stub || stub.lastParams.GetNum("x", 0) != 3 {
		t.Fatalf("retune did not reconfigure in place: %+v", stub)
	}
	if got := c.Nodes()[1].GetNum("gainDB", 0); got != -6 {
		t.Fatalf("gain params = %v", got)
	}

	for _, bad := range [][]Params{
		layout[:1],
		{{ID: "s", Type: "add"}, {ID: "g", Type: TypeGain}},
		{{ID: "g", Type: TypeGain}, {ID: "s", Type: "stub"}},
	} {
		if c.Matches(bad) {
			t.Fatalf("%v should not match", bad)
		}
		if err := c.Retune(bad); !errors.Is(err, ErrLayoutChanged) {
			t.Fatalf("err = %v, want ErrLayoutChanged", err)
		}
	}
}

func TestChainRetuneDoesNotAllocate(t *testing.T) {
	c := New(testCtx(), DefaultRegistry())
	cfg := DefaultFXConfig()
	if err := c.ApplyFX(cfg); err != nil {
		t.Fatal(err)
	}
	list := cfg.Params()

	mix := 0.0
	allocs := testing.AllocsPerRun(100, func() {
		mix += 0.001
		list[1].Num["mix"] = mix
		if err := c.Retune(list); err != nil {
			t.Fatal(err)
		}
	})
	if allocs != 0 {
		t.Fatalf("Retune allocated %.1f times per call", allocs)
	}
}

func TestChainLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		list []Params
		is   error
	}{
		{"unknown type", []Params{{ID: "x", Type: "nope"}}, ErrUnknownEffect},
		{"factory failure", []Params{{ID: "x", Type: "broken"}}, errStub},
		{"configure failure", []Params{{ID: "x", Type: "stub", Num: map[string]float64{"fail": 1}}}, errStub},
		{"missing id", []Params{{Type: "stub"}}, nil},
		{"duplicate id", []Params{{ID: "x", Type: "stub"}, {ID: "x", Type: "add"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New(testCtx(), testRegistry())
			_ = c.Load([]Params{{ID: "keep", Type: "add"}})

			err := c.Load(tt.list)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("error %v does not wrap %v", err, tt.is)
			}
			if c.Len() != 1 || c.Nodes()[0].ID != "keep" {
				t.Fatalf("node list changed on error: %+v", c.Nodes())
			}
		})
	}
}

func TestChainLoadJSON(t *testing.T) {
	t.Parallel()

	c := New(testCtx(), testRegistry())
	err := c.LoadJSON([]byte(`[{"id":"a","type":"add","num":{"value":0.5}},{"id":"s","type":"stub","bypassed":true}]`))
	if err != nil {
		t.Fatal(err)
	}

	nodes := c.Nodes()
	if len(nodes) != 2 || nodes[0].Type != "add" || !nodes[1].Bypassed {
		t.Fatalf("nodes = %+v", nodes)
	}

	if err := c.LoadJSON([]byte(`{`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestChainSetContextReconfigures(t *testing.T) {
	t.Parallel()

	c := New(testCtx(), testRegistry())
	_ = c.Load([]Params{{ID: "s", Type: "stub"}})

	if err := c.SetContext(Context{SampleRate: 96000}); err != nil {
		t.Fatal(err)
	}
	st := c.Stage("s").(*stubStage)
	if st.lastCtx.SampleRate != 96000 {
		t.Fatalf("stage saw sample rate %v", st.lastCtx.SampleRate)
	}
}

func TestChainReset(t *testing.T) {
	t.Parallel()

	c := New(testCtx(), testRegistry())
	_ = c.Load([]Params{{ID: "s", Type: "stub"}})
	c.Reset()
	if c.Stage("s").(*stubStage).resetCalls != 1 {
		t.Fatal("Reset not forwarded")
	}
}
