package main

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-eqchain/bridge"
	"github.com/cwbudde/algo-eqchain/internal/audiofile"
	"github.com/cwbudde/algo-eqchain/measure/loudness"
)

func newProcessCmd(a *app) *cobra.Command {
	var pcm16 bool

	cmd := &cobra.Command{
		Use:   "process IN OUT",
		Short: "Run an audio file through the chain and write 16-bit PCM",
		Long: `Decodes IN (wav, aiff, mp3 or ogg), runs it block by block through
noise reduction, the effect chain, the safety engine and the equalizer, and
writes OUT as 16-bit WAV or AIFF.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.process(cmd, args[0], args[1], pcm16)
		},
	}

	f := cmd.Flags()
	f.Int("block-size", 0, "processing block size in frames")
	f.Bool("disable-eq", false, "bypass the equalizer")
	f.Bool("nr", false, "enable noise reduction")
	f.Bool("fx", false, "enable the compressor and delay")
	f.Bool("no-safety", false, "disable the safety engine")
	f.BoolVar(&pcm16, "pcm16", false, "process through the 16-bit interleaved entry point")
	return cmd
}

func (a *app) process(cmd *cobra.Command, inPath, outPath string, pcm16 bool) error {
	clip, err := audiofile.Open(inPath)
	if err != nil {
		if errors.Is(err, audiofile.ErrUnsupportedFormat) {
			return fmt.Errorf("%w: %w", bridge.ErrPlatformUnavailable, err)
		}
		return err
	}
	if clip.Channels > 2 {
		return fmt.Errorf("%s: %d channels, only mono and stereo are supported", inPath, clip.Channels)
	}

	catalog, err := a.catalog()
	if err != nil {
		return err
	}

	cfg := *a.cfg
	cfg.Audio.SampleRate = float64(clip.SampleRate)
	cfg.Audio.Channels = clip.Channels
	in, err := bridge.NewInstance(cfg.Instance(catalog, nil, a.logger))
	if err != nil {
		return err
	}
	if err := a.applyGains(in); err != nil {
		return err
	}

	log := a.logger.With().Str("in", inPath).Logger()
	log.Info().
		Int("sampleRate", clip.SampleRate).
		Int("channels", clip.Channels).
		Float64("seconds", clip.Duration()).
		Str("preset", in.Bridge().CurrentPreset()).
		Msg("processing")

	inLUFS := integratedLoudness(clip)
	start := time.Now()
	run := runFloat
	if pcm16 {
		run = runInt16
	}
	if err := run(in, clip); err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := audiofile.Create(outPath, clip); err != nil {
		return err
	}

	outLUFS := integratedLoudness(clip)
	report := in.Pipeline().SafetyReport()
	log.Info().
		Str("out", outPath).
		Dur("took", elapsed).
		Float64("realtime", clip.Duration()/elapsed.Seconds()).
		Float64("peak", report.Peak).
		Int("clipped", report.ClippedSamples).
		Bool("overload", report.Overload).
		Float64("inputLUFS", inLUFS).
		Float64("outputLUFS", outLUFS).
		Msg("done")

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames, peak %.3f, rms %.3f, feedback %.2f, loudness %.1f -> %.1f LUFS\n",
		outPath, clip.Frames(), report.Peak, report.RMS, report.FeedbackScore, inLUFS, outLUFS)
	return nil
}

// runFloat processes clip in place one block at a time.
func runFloat(in *bridge.Instance, clip *audiofile.Clip) error {
	p := in.Pipeline()
	step := p.BlockSize() * clip.Channels
	for off := 0; off < len(clip.Samples); off += step {
		if _, err := in.Sync(); err != nil {
			return err
		}
		p.ProcessInterleaved(clip.Samples[off:min(off+step, len(clip.Samples))], clip.Channels)
	}
	return nil
}

// runInt16 converts clip to 16 bits, processes it and converts back.
func runInt16(in *bridge.Instance, clip *audiofile.Clip) error {
	pcm := make([]int16, len(clip.Samples))
	for i, v := range clip.Samples {
		pcm[i] = audiofile.ToInt16(v)
	}

	p := in.Pipeline()
	rate := float64(clip.SampleRate)
	step := p.BlockSize() * clip.Channels
	for off := 0; off < len(pcm); off += step {
		if _, err := in.Sync(); err != nil {
			return err
		}
		if err := p.ProcessInt16(pcm[off:min(off+step, len(pcm))], clip.Channels, rate); err != nil {
			return err
		}
	}

	for i, v := range pcm {
		clip.Samples[i] = float32(v) / 32768
	}
	return nil
}

// integratedLoudness returns the gated loudness of clip in LUFS, or the meter
// floor for clips with nothing above the absolute gate.
func integratedLoudness(clip *audiofile.Clip) float64 {
	m := loudness.NewMeter(
		loudness.WithSampleRate(float64(clip.SampleRate)),
		loudness.WithChannels(clip.Channels),
	)
	m.Process(clip.Samples)
	if l := m.Integrated(); !math.IsInf(l, -1) {
		return l
	}
	return loudness.FloorLUFS
}
