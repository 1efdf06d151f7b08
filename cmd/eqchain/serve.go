package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-eqchain/bridge"
	"github.com/cwbudde/algo-eqchain/dsp/pipeline"
	"github.com/cwbudde/algo-eqchain/internal/audiofile"
	"github.com/cwbudde/algo-eqchain/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP control API, event stream and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, input)
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "listen address")
	f.Float64("sample-rate", 0, "sample rate of created instances")
	f.Int("block-size", 0, "processing block size in frames")
	f.Bool("nr", false, "enable noise reduction")
	f.Bool("fx", false, "enable the compressor and delay")
	f.Bool("spectrum", false, "start the spectrum analyzer")
	f.StringVar(&input, "input", "", "audio file looped through the first instance in real time")
	return cmd
}

func (a *app) serve(ctx context.Context, input string) error {
	prom := prometheus.NewRegistry()
	prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pipeline.NewMetrics(prom)

	catalog, err := a.catalog()
	if err != nil {
		return err
	}

	var clip *audiofile.Clip
	cfg := *a.cfg
	if input != "" {
		if clip, err = audiofile.Open(input); err != nil {
			return err
		}
		cfg.Audio.SampleRate = float64(clip.SampleRate)
		cfg.Audio.Channels = min(clip.Channels, 2)
	}
	instanceCfg := cfg.Instance(catalog, metrics, a.logger)

	registry := bridge.NewRegistry(a.logger)
	in, err := registry.Create(instanceCfg)
	if err != nil {
		return err
	}
	if err := a.applyGains(in); err != nil {
		return err
	}
	if cfg.Spectrum.Enabled {
		in.Bridge().StartSpectrum()
	}

	srv := server.New(registry,
		server.WithLogger(a.logger),
		server.WithPrometheus(prom),
		server.WithIntervals(cfg.Server.SyncInterval, cfg.Server.SpectrumInterval),
		server.WithInstanceConfig(instanceCfg),
	)
	defer srv.Close()

	if clip != nil {
		go a.play(ctx, in, clip)
	}

	a.logger.Info().Str("handle", in.Handle().String()).Msg("instance ready")
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// play loops clip through the pipeline at real-time pace and discards the
// output, so that metrics, the safety report and the spectrum stay live.
func (a *app) play(ctx context.Context, in *bridge.Instance, clip *audiofile.Clip) {
	p := in.Pipeline()
	channels := p.Channels()
	frames := p.BlockSize()
	block := make([]float32, frames*channels)

	ticker := time.NewTicker(time.Duration(float64(frames) / float64(clip.SampleRate) * float64(time.Second)))
	defer ticker.Stop()

	pos := 0
	total := clip.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for i := range frames {
			frame := (pos + i) % total
			for ch := range channels {
				block[i*channels+ch] = clip.Samples[frame*clip.Channels+min(ch, clip.Channels-1)]
			}
		}
		pos = (pos + frames) % total
		p.ProcessInterleaved(block, channels)
	}
}
