package eq

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/cwbudde/algo-eqchain/dsp/filter/design"
)

const sampleRate = 48000.0

func newTestEQ(t *testing.T) *Equalizer {
	t.Helper()

	e, err := NewDefault(sampleRate)
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	return e
}

func sine(freq float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.25 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	return out
}

func peak(buf []float32) float64 {
	var p float64
	for _, v := range buf {
		p = math.Max(p, math.Abs(float64(v)))
	}
	return p
}

func TestNewRejectsInvalidArguments(t *testing.T) {
	if _, err := New(0, sampleRate); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("New(0): err = %v, want ErrInvalidParameter", err)
	}
	if _, err := New(10, 0); err == nil {
		t.Fatal("New with zero sample rate: expected error")
	}
	if _, err := New(4, sampleRate, WithBands(DefaultBands(3))); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("New with mismatched bands: err = %v", err)
	}
}

func TestDefaultLayout(t *testing.T) {
	e := newTestEQ(t)
	if e.NumBands() != 10 {
		t.Fatalf("NumBands = %d, want 10", e.NumBands())
	}

	bands := e.Bands()
	if bands[0].Type != design.LowShelf || bands[9].Type != design.HighShelf {
		t.Fatalf("edge types = %v/%v", bands[0].Type, bands[9].Type)
	}
	for i, b := range bands {
		if b.Frequency != DefaultFrequencies[i] || !b.Enabled || b.GainDB != 0 {
			t.Fatalf("band %d = %+v", i, b)
		}
	}
}

func TestDefaultBandsLogSpaced(t *testing.T) {
	bands := DefaultBands(5)
	if !almost(bands[0].Frequency, 31.25, 1e-9) || !almost(bands[4].Frequency, 16000, 1e-6) {
		t.Fatalf("edges = %v/%v", bands[0].Frequency, bands[4].Frequency)
	}
	for i := 1; i < len(bands); i++ {
		ratio := bands[i].Frequency / bands[i-1].Frequency
		if !almost(ratio, math.Pow(16000/31.25, 0.25), 1e-9) {
			t.Fatalf("ratio %d = %v", i, ratio)
		}
		if bands[i].Type != design.Peaking {
			t.Fatalf("band %d type = %v", i, bands[i].Type)
		}
	}
}

func TestBypassIsIdentity(t *testing.T) {
	e := newTestEQ(t)
	for i := range e.NumBands() {
		if err := e.SetBandGain(i, 9); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.SetMasterGain(-6); err != nil {
		t.Fatal(err)
	}
	e.SetBypass(true)

	in := sine(440, 256)
	out := make([]float32, len(in))
	e.Process(out, in)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mono sample %d: got %v, want %v", i, out[i], in[i])
		}
	}

	inR := sine(1000, 256)
	outL := make([]float32, len(in))
	outR := make([]float32, len(in))
	e.ProcessStereo(outL, outR, in, inR)
	for i := range in {
		if outL[i] != in[i] || outR[i] != inR[i] {
			t.Fatalf("stereo sample %d differs", i)
		}
	}
}

func TestTransactionRecomputesOncePerBand(t *testing.T) {
	e := newTestEQ(t)
	before := make([]uint64, e.NumBands())
	for i := range before {
		before[i] = e.RecomputeCount(i)
	}

	e.BeginParameterUpdate()
	for k := range 5 {
		for i := range 3 {
			if err := e.SetBandGain(i, float64(k)); err != nil {
				t.Fatal(err)
			}
		}
	}
	e.BeginParameterUpdate()
	if err := e.SetBandQ(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := e.EndParameterUpdate(); err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		if got := e.RecomputeCount(i) - before[i]; got != 0 {
			t.Fatalf("band %d recomputed %d times inside transaction", i, got)
		}
	}
	if err := e.EndParameterUpdate(); err != nil {
		t.Fatal(err)
	}

	for i := range e.NumBands() {
		want := uint64(0)
		if i < 3 {
			want = 1
		}
		if got := e.RecomputeCount(i) - before[i]; got != want {
			t.Fatalf("band %d: recomputed %d times, want %d", i, got, want)
		}
	}
}

func TestSetterOutsideTransactionRecomputesImmediately(t *testing.T) {
	e := newTestEQ(t)
	before := e.RecomputeCount(4)

	if err := e.SetBandGain(4, 3); err != nil {
		t.Fatal(err)
	}
	if err := e.SetBandGain(4, 4); err != nil {
		t.Fatal(err)
	}
	if got := e.RecomputeCount(4) - before; got != 2 {
		t.Fatalf("recomputes = %d, want 2", got)
	}
}

func TestEndWithoutBegin(t *testing.T) {
	e := newTestEQ(t)
	if err := e.EndParameterUpdate(); !errors.Is(err, ErrNoTransaction) {
		t.Fatalf("err = %v, want ErrNoTransaction", err)
	}
}

func TestUpdateClosesTransactionOnError(t *testing.T) {
	e := newTestEQ(t)
	err := e.Update(func() error { return e.SetBandGain(99, 1) })
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("err = %v", err)
	}
	if e.InTransaction() {
		t.Fatal("transaction left open")
	}
}

func TestResetThenSilenceIsSilent(t *testing.T) {
	e := newTestEQ(t)
	if err := e.LoadPreset(builtinPresets[1]); err != nil {
		t.Fatal(err)
	}

	noise := sine(100, 512)
	out := make([]float32, len(noise))
	e.Process(out, noise)

	e.Reset()
	silence := make([]float32, 512)
	e.Process(out, silence)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %v after reset", i, v)
		}
	}
}

func TestRequestResetAppliesOnNextBlock(t *testing.T) {
	e := newTestEQ(t)
	if err := e.SetBandGain(0, 12); err != nil {
		t.Fatal(err)
	}

	buf := sine(50, 256)
	out := make([]float32, len(buf))
	e.Process(out, buf)

	e.RequestReset()
	silence := make([]float32, 64)
	e.Process(out[:64], silence)
	for i, v := range out[:64] {
		if v != 0 {
			t.Fatalf("sample %d = %v after requested reset", i, v)
		}
	}
}

func TestMasterGain(t *testing.T) {
	e := newTestEQ(t)
	in := sine(1000, 4096)
	out := make([]float32, len(in))

	e.Process(out, in)
	if r := peak(out[2048:]) / peak(in[2048:]); !almost(r, 1, 1e-4) {
		t.Fatalf("0 dB ratio = %v", r)
	}

	if err := e.SetMasterGain(6); err != nil {
		t.Fatal(err)
	}
	e.Process(out, in)
	if r := peak(out[2048:]) / peak(in[2048:]); !almost(r, 2, 0.01) {
		t.Fatalf("+6 dB ratio = %v, want ~2", r)
	}
	if e.MasterGain() != 6 {
		t.Fatalf("MasterGain = %v", e.MasterGain())
	}
}

func TestPeakingBandGainAtCenter(t *testing.T) {
	e := newTestEQ(t)
	if err := e.SetBandGain(5, 6); err != nil {
		t.Fatal(err)
	}

	in := sine(1000, 8192)
	out := make([]float32, len(in))
	e.Process(out, in)

	gotDB := 20 * math.Log10(peak(out[4096:])/peak(in[4096:]))
	if math.Abs(gotDB-e.MagnitudeDB(1000)) > 0.1 {
		t.Fatalf("measured %v dB, response %v dB", gotDB, e.MagnitudeDB(1000))
	}
	if math.Abs(e.MagnitudeDB(1000)-6) > 0.5 {
		t.Fatalf("response at 1 kHz = %v dB", e.MagnitudeDB(1000))
	}
}

func TestDisabledBandPassesThrough(t *testing.T) {
	e := newTestEQ(t)
	e.BeginParameterUpdate()
	for i := range e.NumBands() {
		_ = e.SetBandGain(i, 12)
		_ = e.SetBandEnabled(i, false)
	}
	if err := e.EndParameterUpdate(); err != nil {
		t.Fatal(err)
	}

	in := sine(300, 128)
	out := make([]float32, len(in))
	e.Process(out, in)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestInPlaceProcessing(t *testing.T) {
	a := newTestEQ(t)
	b := newTestEQ(t)
	for _, e := range []*Equalizer{a, b} {
		if err := e.LoadPreset(builtinPresets[5]); err != nil {
			t.Fatal(err)
		}
	}

	in := sine(700, 300)
	out := make([]float32, len(in))
	a.Process(out, in)

	buf := append([]float32(nil), in...)
	b.Process(buf, buf)
	for i := range out {
		if out[i] != buf[i] {
			t.Fatalf("sample %d: in-place %v, out-of-place %v", i, buf[i], out[i])
		}
	}
}

func TestBandIndexBounds(t *testing.T) {
	e := newTestEQ(t)
	n := e.NumBands()

	checks := map[string]error{
		"gain":    e.SetBandGain(n, 1),
		"freq":    e.SetBandFrequency(n, 1000),
		"q":       e.SetBandQ(n, 1),
		"type":    e.SetBandType(n, design.Notch),
		"enabled": e.SetBandEnabled(n, false),
		"neg":     e.SetBandGain(-1, 1),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("%s: err = %v, want ErrInvalidParameter", name, err)
		}
	}
	if _, err := e.Band(n); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Band(n): err = %v", err)
	}
}

func TestNonFiniteParametersRejected(t *testing.T) {
	e := newTestEQ(t)
	if err := e.SetBandGain(0, math.NaN()); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("NaN gain: err = %v", err)
	}
	if err := e.SetBandFrequency(0, math.Inf(1)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Inf freq: err = %v", err)
	}
	if err := e.SetMasterGain(math.NaN()); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("NaN master: err = %v", err)
	}
}

func TestParametersClamped(t *testing.T) {
	e := newTestEQ(t)
	_ = e.SetBandGain(2, 100)
	_ = e.SetBandQ(2, 0)
	_ = e.SetBandFrequency(9, sampleRate)

	b2, _ := e.Band(2)
	if b2.GainDB != MaxGainDB || b2.Q != MinQ {
		t.Fatalf("band 2 = %+v", b2)
	}

	b9, _ := e.Band(9)
	if b9.Frequency != MaxFrequency(sampleRate) {
		t.Fatalf("freq = %v, want %v", b9.Frequency, MaxFrequency(sampleRate))
	}
	for i, c := range e.current.Load().coeffs {
		if !c.IsFinite() {
			t.Fatalf("band %d coefficients not finite: %+v", i, c)
		}
	}

	_ = e.SetBandFrequency(0, 1)
	if b, _ := e.Band(0); b.Frequency != MinFrequency {
		t.Fatalf("low clamp = %v", b.Frequency)
	}
}

func TestSetBandTypeOutOfRangeIsPeaking(t *testing.T) {
	e := newTestEQ(t)
	if err := e.SetBandType(3, design.Type(42)); err != nil {
		t.Fatal(err)
	}
	if b, _ := e.Band(3); b.Type != design.Peaking {
		t.Fatalf("type = %v", b.Type)
	}
}

func TestSetSampleRateRecomputesAll(t *testing.T) {
	e := newTestEQ(t)
	before := e.TotalRecomputes()

	if err := e.SetSampleRate(22050); err != nil {
		t.Fatal(err)
	}
	if got := e.TotalRecomputes() - before; got != uint64(e.NumBands()) {
		t.Fatalf("recomputes = %d, want %d", got, e.NumBands())
	}
	if b, _ := e.Band(9); b.Frequency > MaxFrequency(22050) {
		t.Fatalf("band 9 = %v Hz exceeds new limit", b.Frequency)
	}
	if err := e.SetSampleRate(math.NaN()); err == nil {
		t.Fatal("expected error for NaN sample rate")
	}
}

func TestPresetRoundTrip(t *testing.T) {
	for _, p := range BuiltinPresets() {
		t.Run(p.Name, func(t *testing.T) {
			e := newTestEQ(t)
			if err := e.LoadPreset(p); err != nil {
				t.Fatal(err)
			}
			got := e.SavePreset("")
			if got.Name != p.Name {
				t.Fatalf("name = %q, want %q", got.Name, p.Name)
			}
			for i := range p.Gains {
				if got.Gains[i] != p.Gains[i] {
					t.Fatalf("gain %d = %v, want %v", i, got.Gains[i], p.Gains[i])
				}
			}
		})
	}
}

func TestSetBandGainClearsPresetName(t *testing.T) {
	e := newTestEQ(t)
	if err := e.LoadPreset(builtinPresets[1]); err != nil {
		t.Fatal(err)
	}
	if got := e.CurrentPreset(); got != builtinPresets[1].Name {
		t.Fatalf("preset = %q, want %q", got, builtinPresets[1].Name)
	}

	_ = e.SetBandQ(2, 2)
	if e.CurrentPreset() == "" {
		t.Fatal("changing Q must keep the preset name")
	}

	_ = e.SetBandGain(0, 1)
	if got := e.CurrentPreset(); got != "" {
		t.Fatalf("preset = %q after a manual gain change", got)
	}
}

func TestLoadPresetIsOneTransaction(t *testing.T) {
	e := newTestEQ(t)
	before := e.TotalRecomputes()
	if err := e.LoadPreset(builtinPresets[3]); err != nil {
		t.Fatal(err)
	}
	if got := e.TotalRecomputes() - before; got != uint64(e.NumBands()) {
		t.Fatalf("recomputes = %d, want %d", got, e.NumBands())
	}
}

func TestLoadPresetKeepsShape(t *testing.T) {
	e := newTestEQ(t)
	_ = e.SetBandQ(4, 3)
	_ = e.SetBandType(4, design.Notch)

	if err := e.LoadPreset(builtinPresets[1]); err != nil {
		t.Fatal(err)
	}
	b, _ := e.Band(4)
	if b.Q != 3 || b.Type != design.Notch {
		t.Fatalf("band 4 = %+v", b)
	}
}

func TestLoadPresetRejectsMalformed(t *testing.T) {
	e := newTestEQ(t)
	cases := []Preset{
		{Name: "", Gains: make([]float64, 10)},
		{Name: "short", Gains: make([]float64, 3)},
		{Name: "nan", Gains: []float64{0, 0, 0, math.NaN(), 0, 0, 0, 0, 0, 0}},
	}
	for _, p := range cases {
		if err := e.LoadPreset(p); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("%q: err = %v", p.Name, err)
		}
	}
}

func TestCopyBandGains(t *testing.T) {
	e := newTestEQ(t)
	if err := e.LoadPreset(builtinPresets[1]); err != nil {
		t.Fatal(err)
	}

	dst := make([]float64, 4)
	if n := e.CopyBandGains(dst); n != 4 {
		t.Fatalf("n = %d", n)
	}
	if dst[0] != 5 || dst[3] != -1 {
		t.Fatalf("dst = %v", dst)
	}

	big := make([]float64, 16)
	if n := e.CopyBandGains(big); n != 10 {
		t.Fatalf("n = %d", n)
	}
}

func TestProcessStereoChecked(t *testing.T) {
	e := newTestEQ(t)
	a := make([]float32, 16)
	b := make([]float32, 15)
	if err := e.ProcessStereoChecked(a, a, a, b); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("err = %v", err)
	}
	if err := e.ProcessChecked(a, b); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("err = %v", err)
	}

	// The lenient form processes the common length.
	out := make([]float32, 16)
	for i := range out {
		out[i] = 9
	}
	e.ProcessStereo(out, make([]float32, 16), make([]float32, 10), make([]float32, 16))
	if out[9] != 0 || out[10] != 9 {
		t.Fatalf("out = %v", out)
	}
}

func TestStereoChannelsIndependent(t *testing.T) {
	e := newTestEQ(t)
	if err := e.LoadPreset(builtinPresets[6]); err != nil {
		t.Fatal(err)
	}
	mono := newTestEQ(t)
	if err := mono.LoadPreset(builtinPresets[6]); err != nil {
		t.Fatal(err)
	}

	l := sine(200, 512)
	r := make([]float32, 512)
	outL := make([]float32, 512)
	outR := make([]float32, 512)
	e.ProcessStereo(outL, outR, l, r)

	want := make([]float32, 512)
	mono.Process(want, l)
	for i := range want {
		if math.Abs(float64(outL[i]-want[i])) > 1e-6 {
			t.Fatalf("left sample %d: %v vs mono %v", i, outL[i], want[i])
		}
		if outR[i] != 0 {
			t.Fatalf("right sample %d leaked: %v", i, outR[i])
		}
	}
}

func TestConcurrentControlAndAudio(t *testing.T) {
	e := newTestEQ(t)
	presets := BuiltinPresets()

	const iterations = 2000
	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for k := range iterations {
			switch k % 5 {
			case 0:
				_ = e.LoadPreset(presets[k%len(presets)])
			case 1:
				_ = e.Update(func() error {
					for i := range e.NumBands() {
						if err := e.SetBandQ(i, 0.5+float64(k%7)); err != nil {
							return err
						}
					}
					return nil
				})
			case 2:
				_ = e.SetBandFrequency(k%10, float64(40+k%15000))
			case 3:
				e.SetBypass(k%2 == 0)
			case 4:
				_ = e.SetMasterGain(float64(k%12) - 6)
			}
		}
	}()

	l := sine(440, 256)
	r := sine(660, 256)
	outL := make([]float32, 256)
	outR := make([]float32, 256)

	func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			e.ProcessStereo(outL, outR, l, r)
			for i := range outL {
				if !isFinite32(outL[i]) || !isFinite32(outR[i]) {
					t.Errorf("non-finite output at %d", i)
					return
				}
			}
		}
	}()
	wg.Wait()
}

func TestProcessDoesNotAllocate(t *testing.T) {
	e := newTestEQ(t)
	if err := e.LoadPreset(builtinPresets[1]); err != nil {
		t.Fatal(err)
	}

	l := sine(440, 256)
	r := sine(660, 256)
	outL := make([]float32, 256)
	outR := make([]float32, 256)

	tests := []struct {
		name string
		fn   func()
	}{
		{"Process", func() { e.Process(outL, l) }},
		{"ProcessStereo", func() { e.ProcessStereo(outL, outR, l, r) }},
		{"ProcessStereo after reset request", func() {
			e.RequestReset()
			e.ProcessStereo(outL, outR, l, r)
		}},
	}
	for _, tt := range tests {
		if allocs := testing.AllocsPerRun(100, tt.fn); allocs != 0 {
			t.Fatalf("%s: %.1f allocations per call", tt.name, allocs)
		}
	}

	// Coefficient snapshots are built by the setter, not by the next block.
	for i := range e.NumBands() {
		if err := e.SetBandGain(i, float64(i)-5); err != nil {
			t.Fatal(err)
		}
		if allocs := testing.AllocsPerRun(10, func() { e.ProcessStereo(outL, outR, l, r) }); allocs != 0 {
			t.Fatalf("after band %d change: %.1f allocations per call", i, allocs)
		}
	}
}

func BenchmarkProcessStereo512(b *testing.B) {
	e, err := NewDefault(sampleRate)
	if err != nil {
		b.Fatal(err)
	}
	_ = e.LoadPreset(builtinPresets[1])

	l := sine(440, 512)
	r := sine(660, 512)
	outL := make([]float32, 512)
	outR := make([]float32, 512)

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		e.ProcessStereo(outL, outR, l, r)
	}
}

func almost(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func isFinite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
