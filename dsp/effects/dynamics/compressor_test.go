package dynamics

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func dbToLin(db float64) float64 {
	return math.Pow(10, db/20)
}

func linToDB(v float64) float64 {
	return 20 * math.Log10(v)
}

func TestNewCompressor(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		wantErr    bool
	}{
		{"valid 44100", 44100, false},
		{"valid 48000", 48000, false},
		{"invalid zero", 0, true},
		{"invalid negative", -1, true},
		{"invalid NaN", math.NaN(), true},
		{"invalid +Inf", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompressor(tt.sampleRate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCompressor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c == nil {
				t.Fatal("NewCompressor() returned nil without error")
			}
		})
	}
}

func TestCompressorDefaults(t *testing.T) {
	c, err := NewCompressor(48000)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"Threshold", c.Threshold(), -12},
		{"Ratio", c.Ratio(), 3},
		{"Knee", c.Knee(), 6},
		{"Attack", c.Attack(), 10},
		{"Release", c.Release(), 120},
		{"Makeup", c.MakeupGain(), 0},
		{"SampleRate", c.SampleRate(), 48000},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %f, want %f", tt.name, tt.got, tt.want)
		}
	}
	if c.AutoMakeup() {
		t.Error("auto makeup should be off by default")
	}
}

func TestCompressorSettersClamp(t *testing.T) {
	c, _ := NewCompressor(48000)

	tests := []struct {
		name string
		set  func(float64) error
		in   float64
		get  func() float64
		want float64
	}{
		{"ratio low", c.SetRatio, 0.5, c.Ratio, 1},
		{"ratio high", c.SetRatio, 1000, c.Ratio, 100},
		{"knee high", c.SetKnee, 50, c.Knee, 24},
		{"attack low", c.SetAttack, 0, c.Attack, 0.1},
		{"release high", c.SetRelease, 1e6, c.Release, 5000},
		{"threshold high", c.SetThreshold, 6, c.Threshold, 0},
		{"makeup high", c.SetMakeupGain, 40, c.MakeupGain, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.set(tt.in); err != nil {
				t.Fatal(err)
			}
			if got := tt.get(); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompressorRejectsNonFinite(t *testing.T) {
	c, _ := NewCompressor(48000)
	for name, set := range map[string]func(float64) error{
		"threshold": c.SetThreshold,
		"ratio":     c.SetRatio,
		"knee":      c.SetKnee,
		"attack":    c.SetAttack,
		"release":   c.SetRelease,
		"makeup":    c.SetMakeupGain,
	} {
		if err := set(math.NaN()); err == nil {
			t.Errorf("%s: expected error for NaN", name)
		}
	}
	if err := c.SetSampleRate(0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestCompressorStaticCurve(t *testing.T) {
	c, _ := NewCompressor(48000)
	_ = c.SetKnee(0)
	_ = c.SetThreshold(-20)
	_ = c.SetRatio(4)

	tests := []struct {
		inDB, wantDB float64
	}{
		{-40, -40},
		{-20, -20},
		{-10, -17.5},
		{0, -15},
	}
	for _, tt := range tests {
		got := linToDB(c.CalculateOutputLevel(dbToLin(tt.inDB)))
		if !almostEqual(got, tt.wantDB, 1e-6) {
			t.Errorf("in %v dB: out %v dB, want %v", tt.inDB, got, tt.wantDB)
		}
	}
}

func TestCompressorSoftKneeIsContinuous(t *testing.T) {
	c, _ := NewCompressor(48000)
	_ = c.SetThreshold(-20)
	_ = c.SetKnee(12)

	prev := linToDB(c.CalculateOutputLevel(dbToLin(-40)))
	for db := -39.9; db <= 0; db += 0.1 {
		out := linToDB(c.CalculateOutputLevel(dbToLin(db)))
		if out < prev {
			t.Fatalf("curve not monotonic at %v dB", db)
		}
		if out-prev > 0.11 {
			t.Fatalf("curve jumps at %v dB: %v -> %v", db, prev, out)
		}
		prev = out
	}

	// Inside the knee the reduction starts before the threshold.
	if out := linToDB(c.CalculateOutputLevel(dbToLin(-22))); out >= -22 {
		t.Fatalf("no reduction inside knee: %v", out)
	}
}

func TestCompressorAutoMakeup(t *testing.T) {
	c, _ := NewCompressor(48000)
	_ = c.SetThreshold(-20)
	_ = c.SetRatio(4)
	c.SetAutoMakeup(true)

	if !almostEqual(c.MakeupGain(), 15, 1e-9) {
		t.Fatalf("makeup = %v, want 15", c.MakeupGain())
	}

	_ = c.SetMakeupGain(3)
	if c.AutoMakeup() {
		t.Fatal("manual makeup should disable auto makeup")
	}
}

func TestCompressorReducesLoudSignal(t *testing.T) {
	c, _ := NewCompressor(48000)

	buf := make([]float32, 9600)
	for i := range buf {
		buf[i] = float32(0.9 * math.Sin(2*math.Pi*220*float64(i)/48000))
	}
	out := make([]float32, len(buf))
	c.ProcessMono(out, buf)

	var peak float64
	for _, v := range out[4800:] {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak >= 0.85 {
		t.Fatalf("peak after compression = %v", peak)
	}
	if c.Metrics().GainReduction >= 1 {
		t.Fatal("metrics did not record gain reduction")
	}
}

func TestCompressorStereoLinked(t *testing.T) {
	c, _ := NewCompressor(48000)
	_ = c.SetAttack(0.1)

	n := 2048
	l := make([]float32, n)
	r := make([]float32, n)
	for i := range l {
		l[i] = 0.9
		r[i] = 0.1
	}
	outL := make([]float32, n)
	outR := make([]float32, n)
	c.ProcessStereo(outL, outR, l, r)

	gl := float64(outL[n-1]) / 0.9
	gr := float64(outR[n-1]) / 0.1
	if !almostEqual(gl, gr, 1e-5) {
		t.Fatalf("channel gains differ: %v vs %v", gl, gr)
	}
	if gl >= 1 {
		t.Fatalf("gain = %v, want reduction", gl)
	}
}

func TestCompressorMonoInPlace(t *testing.T) {
	a, _ := NewCompressor(48000)
	b, _ := NewCompressor(48000)

	src := make([]float32, 512)
	for i := range src {
		src[i] = float32(0.8 * math.Sin(float64(i)*0.05))
	}
	want := make([]float32, len(src))
	for i, x := range src {
		want[i] = a.ProcessSample(x)
	}

	b.ProcessMono(src, src)
	for i := range src {
		if src[i] != want[i] {
			t.Fatalf("sample %d: %v vs %v", i, src[i], want[i])
		}
	}
}

func TestCompressorResetClearsEnvelope(t *testing.T) {
	c, _ := NewCompressor(48000)
	for range 1000 {
		c.ProcessSample(1)
	}
	c.Reset()
	if c.envelope != 0 {
		t.Fatalf("envelope = %v", c.envelope)
	}
	if got := c.ProcessSample(0); got != 0 {
		t.Fatalf("silence after reset = %v", got)
	}
	if c.Metrics().GainReduction != 1 {
		t.Fatal("metrics not reset")
	}
}

func BenchmarkCompressorStereo512(b *testing.B) {
	c, _ := NewCompressor(48000)
	l := make([]float32, 512)
	r := make([]float32, 512)
	for i := range l {
		l[i] = float32(math.Sin(float64(i) * 0.01))
		r[i] = l[i] * 0.5
	}
	b.ReportAllocs()
	for range b.N {
		c.ProcessStereo(l, r, l, r)
	}
}
