package loudness

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-eqchain/internal/testutil"
)

const fs = 48000.0

// Full-scale 1 kHz sine: mean square 0.5 plus roughly 0.67 dB of K-weighting.
const sineLUFS = -3.03

func interleave(mono []float32, channels int) []float32 {
	out := make([]float32, len(mono)*channels)
	for i, v := range mono {
		for c := range channels {
			out[i*channels+c] = v
		}
	}
	return out
}

func feed(m *Meter, buf []float32, block int) {
	for off := 0; off < len(buf); off += block {
		m.Process(buf[off:min(off+block, len(buf))])
	}
}

func TestMeterMonoSine(t *testing.T) {
	m := NewMeter(WithSampleRate(fs), WithChannels(1))
	feed(m, testutil.Sine(1000, fs, 1, int(fs*4)), 512)

	for name, got := range map[string]float64{
		"momentary":  m.Momentary(),
		"short-term": m.ShortTerm(),
		"integrated": m.Integrated(),
	} {
		if math.Abs(got-sineLUFS) > 0.3 {
			t.Errorf("%s = %.3f LUFS, want %.3f", name, got, sineLUFS)
		}
	}
	if p := m.Peak(); math.Abs(p-1) > 1e-3 {
		t.Errorf("peak = %v, want 1", p)
	}
}

func TestMeterStereoAddsPower(t *testing.T) {
	mono := NewMeter(WithSampleRate(fs), WithChannels(1))
	stereo := NewMeter(WithSampleRate(fs), WithChannels(2))
	sig := testutil.Sine(1000, fs, 0.5, int(fs*4))

	feed(mono, sig, 480)
	feed(stereo, interleave(sig, 2), 960)

	diff := stereo.Integrated() - mono.Integrated()
	if math.Abs(diff-10*math.Log10(2)) > 0.05 {
		t.Fatalf("stereo - mono = %.3f LU, want 3.01", diff)
	}
}

func TestMeterScalesWithGain(t *testing.T) {
	loud := NewMeter(WithSampleRate(fs), WithChannels(1))
	quiet := NewMeter(WithSampleRate(fs), WithChannels(1))
	feed(loud, testutil.Sine(1000, fs, 1, int(fs*3)), 256)
	feed(quiet, testutil.Sine(1000, fs, 0.1, int(fs*3)), 256)

	if d := loud.Integrated() - quiet.Integrated(); math.Abs(d-20) > 0.05 {
		t.Fatalf("20 dB level change measured as %.3f LU", d)
	}
}

func TestMeterSilence(t *testing.T) {
	m := NewMeter(WithSampleRate(fs))
	feed(m, make([]float32, int(fs)*2), 1024)

	if got := m.Integrated(); !math.IsInf(got, -1) {
		t.Fatalf("integrated = %v, want -Inf", got)
	}
	if got := m.Momentary(); got != FloorLUFS {
		t.Fatalf("momentary = %v, want floor", got)
	}
}

func TestMeterAbsoluteGateIgnoresQuietTail(t *testing.T) {
	m := NewMeter(WithSampleRate(fs), WithChannels(1))
	feed(m, testutil.Sine(1000, fs, 1, int(fs*3)), 512)
	before := m.Integrated()
	feed(m, make([]float32, int(fs*3)), 512)

	if d := math.Abs(m.Integrated() - before); d > 0.5 {
		t.Fatalf("silent tail moved integrated loudness by %.3f LU", d)
	}
}

func TestMeterStopIntegration(t *testing.T) {
	m := NewMeter(WithSampleRate(fs), WithChannels(1))
	feed(m, testutil.Sine(1000, fs, 0.1, int(fs*2)), 512)
	before := m.Integrated()

	m.StopIntegration()
	feed(m, testutil.Sine(1000, fs, 1, int(fs*2)), 512)
	if got := m.Integrated(); got != before {
		t.Fatalf("integrated changed while stopped: %v -> %v", before, got)
	}
	if m.Momentary() < before+15 {
		t.Fatalf("momentary should follow the louder signal, got %v", m.Momentary())
	}
}

func TestMeterReset(t *testing.T) {
	m := NewMeter(WithSampleRate(fs))
	feed(m, interleave(testutil.Sine(440, fs, 0.8, int(fs)), 2), 1024)
	m.Reset()

	if m.Peak() != 0 || m.Momentary() != FloorLUFS || !math.IsInf(m.Integrated(), -1) {
		t.Fatal("reset did not clear meter state")
	}
}

func TestMeterOptions(t *testing.T) {
	m := NewMeter(WithSampleRate(-1), WithChannels(5), nil)
	if m.SampleRate() != 48000 || m.Channels() != 2 {
		t.Fatalf("invalid options applied: %v Hz, %d ch", m.SampleRate(), m.Channels())
	}
	m = NewMeter(WithSampleRate(44100), WithChannels(1))
	if m.SampleRate() != 44100 || m.Channels() != 1 {
		t.Fatalf("options ignored: %v Hz, %d ch", m.SampleRate(), m.Channels())
	}
}

func TestMeterIgnoresPartialFrame(t *testing.T) {
	m := NewMeter(WithSampleRate(fs))
	m.Process([]float32{0.5})
	if m.Peak() != 0 {
		t.Fatal("partial frame was metered")
	}
}
