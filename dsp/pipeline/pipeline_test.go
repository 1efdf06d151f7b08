package pipeline

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cwbudde/algo-eqchain/dsp/eq"
	"github.com/cwbudde/algo-eqchain/dsp/spectrum"
)

const testSampleRate = 48000.0

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()

	e, err := eq.NewDefault(testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	p, err := New(e, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// quietSettings disables feedback detection so that steady test tones are
// not attenuated.
func quietSettings() Settings {
	s := DefaultSettings()
	s.Safety.FeedbackDetectEnabled = false
	return s
}

func sine(n int, freq, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
	}
	return out
}

func noise(n int, seed uint64, amp float64) []float32 {
	rng := rand.New(rand.NewPCG(seed, 1))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * (rng.Float64()*2 - 1))
	}
	return out
}

func maxAbs(buf []float32) float64 {
	m := 0.0
	for _, v := range buf {
		m = math.Max(m, math.Abs(float64(v)))
	}
	return m
}

func TestNewRequiresEqualizer(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil equalizer")
	}
}

func TestNewDefaults(t *testing.T) {
	p := newTestPipeline(t)

	if p.SampleRate() != testSampleRate {
		t.Fatalf("sample rate = %v", p.SampleRate())
	}
	if p.BlockSize() != 512 || p.Channels() != 2 {
		t.Fatalf("block=%d channels=%d", p.BlockSize(), p.Channels())
	}
	if got := p.Settings(); got != DefaultSettings() {
		t.Fatalf("settings = %+v", got)
	}
	if applied, failed := p.AppliedSettings(); applied != 1 || failed != 0 {
		t.Fatalf("applied=%d failed=%d", applied, failed)
	}
}

func TestFlatChainIsTransparent(t *testing.T) {
	p := newTestPipeline(t, WithSettings(quietSettings()))

	in := sine(4096, 1000, 0.25)
	out := make([]float32, len(in))
	p.ProcessMono(out, in)

	for i := range in {
		if d := math.Abs(float64(out[i] - in[i])); d > 1e-4 {
			t.Fatalf("sample %d: got %v want %v", i, out[i], in[i])
		}
	}
}

func TestOutputIsClamped(t *testing.T) {
	p := newTestPipeline(t, WithSettings(quietSettings()))
	if err := p.Equalizer().SetMasterGain(12); err != nil {
		t.Fatal(err)
	}

	in := sine(2048, 440, 0.5)
	out := make([]float32, len(in))
	p.ProcessMono(out, in)

	if m := maxAbs(out); m > 1 {
		t.Fatalf("output peak %v exceeds 1", m)
	}
	if m := maxAbs(out[1024:]); m < 0.99 {
		t.Fatalf("boosted output peak %v, expected clipping at 1", m)
	}
}

func TestClampOutputSilencesNaN(t *testing.T) {
	buf := []float32{float32(math.NaN()), 2, -3, 0.5}
	clampOutput(buf)

	want := []float32{0, 1, -1, 0.5}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf[%d]=%v, want %v", i, buf[i], want[i])
		}
	}
}

func TestMonoAndStereoAgree(t *testing.T) {
	mono := newTestPipeline(t, WithBlockSize(64))
	stereo := newTestPipeline(t, WithBlockSize(64))
	for _, p := range []*Pipeline{mono, stereo} {
		if err := p.Equalizer().SetBandGain(3, 6); err != nil {
			t.Fatal(err)
		}
	}

	in := noise(1000, 11, 0.3)
	outM := make([]float32, len(in))
	outL := make([]float32, len(in))
	outR := make([]float32, len(in))

	mono.ProcessMono(outM, in)
	stereo.ProcessStereo(outL, outR, in, in)

	for i := range in {
		if math.Abs(float64(outM[i]-outL[i])) > 1e-6 || outL[i] != outR[i] {
			t.Fatalf("sample %d: mono=%v left=%v right=%v", i, outM[i], outL[i], outR[i])
		}
	}
}

func TestChunkingMatchesSingleBlock(t *testing.T) {
	// DC tracking and feedback detection decide per block.
	s := DefaultSettings()
	s.Safety.DCRemovalEnabled = false
	s.Safety.FeedbackDetectEnabled = false
	small := newTestPipeline(t, WithBlockSize(37), WithSettings(s))
	large := newTestPipeline(t, WithBlockSize(4096), WithSettings(s))

	in := noise(3000, 5, 0.2)
	a := make([]float32, len(in))
	b := make([]float32, len(in))
	small.ProcessMono(a, in)
	large.ProcessMono(b, in)

	for i := range in {
		if math.Abs(float64(a[i]-b[i])) > 1e-6 {
			t.Fatalf("sample %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestInterleavedMatchesStereo(t *testing.T) {
	planar := newTestPipeline(t)
	inter := newTestPipeline(t)

	l := noise(700, 1, 0.3)
	r := noise(700, 2, 0.3)
	outL := make([]float32, len(l))
	outR := make([]float32, len(r))
	planar.ProcessStereo(outL, outR, l, r)

	buf := make([]float32, 2*len(l))
	for i := range l {
		buf[2*i] = l[i]
		buf[2*i+1] = r[i]
	}
	inter.Process(buf)

	for i := range l {
		if buf[2*i] != outL[i] || buf[2*i+1] != outR[i] {
			t.Fatalf("frame %d: interleaved (%v,%v) planar (%v,%v)", i, buf[2*i], buf[2*i+1], outL[i], outR[i])
		}
	}
}

func TestConfigureAppliesAtNextBlock(t *testing.T) {
	p := newTestPipeline(t)

	s := DefaultSettings()
	s.FX.Enabled = true
	s.FX.Delay.DelayMs = 1
	s.FX.Delay.Mix = 1
	s.FX.Delay.Feedback = 0
	s.FX.Compressor.Ratio = 1
	s.Safety.Enabled = false
	if err := p.Configure(s); err != nil {
		t.Fatal(err)
	}

	if got := p.Settings(); got != s {
		t.Fatalf("Settings() = %+v", got)
	}
	if applied, _ := p.AppliedSettings(); applied != 1 {
		t.Fatalf("settings applied before a block ran: %d", applied)
	}

	impulse := make([]float32, 128)
	impulse[0] = 0.5
	out := make([]float32, len(impulse))
	p.ProcessMono(out, impulse)

	if applied, _ := p.AppliedSettings(); applied != 2 {
		t.Fatalf("applied = %d, want 2", applied)
	}
	// Fully wet 1 ms delay at 48 kHz moves the impulse by 48 samples.
	if out[0] != 0 || math.Abs(float64(out[48])-0.5) > 1e-3 {
		t.Fatalf("out[0]=%v out[48]=%v", out[0], out[48])
	}
}

func TestConfigureRejectsNonFinite(t *testing.T) {
	p := newTestPipeline(t)

	s := DefaultSettings()
	s.FX.Delay.Mix = math.NaN()
	if err := p.Configure(s); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	if p.Settings() != DefaultSettings() {
		t.Fatal("rejected settings were stored")
	}
}

func TestRequestResetClearsTails(t *testing.T) {
	s := DefaultSettings()
	s.FX.Enabled = true
	s.FX.Delay.Feedback = 0.8
	s.FX.Delay.Mix = 0.5
	p := newTestPipeline(t, WithSettings(s))

	in := noise(2048, 9, 0.3)
	out := make([]float32, len(in))
	p.ProcessMono(out, in)

	p.RequestReset()
	silence := make([]float32, 4096)
	tail := make([]float32, len(silence))
	p.ProcessMono(tail, silence)

	for i, v := range tail {
		if v != 0 {
			t.Fatalf("tail[%d]=%v after reset", i, v)
		}
	}
}

func TestAnalyzerIsFed(t *testing.T) {
	a, err := spectrum.New(spectrum.WithSize(256), spectrum.WithBars(8))
	if err != nil {
		t.Fatal(err)
	}
	a.Start()

	p := newTestPipeline(t, WithAnalyzer(a))
	if p.Analyzer() != a {
		t.Fatal("analyzer not attached")
	}

	in := noise(512, 4, 0.3)
	p.ProcessStereo(make([]float32, 512), make([]float32, 512), in, in)

	if a.Frames() == 0 {
		t.Fatal("analyzer received no full frame")
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	p := newTestPipeline(t, WithMetrics(m), WithBlockSize(128))

	in := noise(1000, 3, 0.5)
	p.ProcessMono(make([]float32, len(in)), in)
	p.ProcessMono(make([]float32, 10), in[:10])

	if got := testutil.ToFloat64(m.frames); got != 1010 {
		t.Fatalf("frames = %v, want 1010", got)
	}
	if got := testutil.ToFloat64(m.blocks); got != 2 {
		t.Fatalf("blocks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.settingsApplied); got != 1 {
		t.Fatalf("settings applied = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.outputPeak); got <= 0 || got > 1 {
		t.Fatalf("peak gauge = %v", got)
	}

	count, err := testutil.GatherAndCount(reg, "eqchain_block_duration_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("histogram series = %d", count)
	}
}

func TestConcurrentControlAndAudio(t *testing.T) {
	p := newTestPipeline(t, WithBlockSize(256))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		e := p.Equalizer()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}

			s := DefaultSettings()
			s.FX.Enabled = i%2 == 0
			s.NoiseReducer.Enabled = i%3 == 0
			_ = p.Configure(s)
			_ = e.Update(func() error {
				return e.SetBandGain(i%e.NumBands(), float64(i%25-12))
			})
			_ = p.SafetyReport()
		}
	}()

	l := noise(256, 8, 0.4)
	r := noise(256, 9, 0.4)
	outL := make([]float32, 256)
	outR := make([]float32, 256)
	for range 500 {
		p.ProcessStereo(outL, outR, l, r)
		if m := maxAbs(outL); m > 1 || math.IsNaN(m) {
			t.Fatalf("bad output peak %v", m)
		}
	}

	close(stop)
	wg.Wait()
}

func BenchmarkProcessStereo512(b *testing.B) {
	e, _ := eq.NewDefault(testSampleRate)
	p, _ := New(e)

	l := noise(512, 1, 0.3)
	r := noise(512, 2, 0.3)
	outL := make([]float32, 512)
	outR := make([]float32, 512)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.ProcessStereo(outL, outR, l, r)
	}
}
