package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-eqchain/bridge"
	"github.com/cwbudde/algo-eqchain/dsp/eq"
)

func newBandsCmd(a *app) *cobra.Command {
	var points int

	cmd := &cobra.Command{
		Use:   "bands",
		Short: "Print the band layout and magnitude response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := a.catalog()
			if err != nil {
				return err
			}
			cfg := *a.cfg
			cfg.Equalizer.Enabled = true
			in, err := bridge.NewInstance(cfg.Instance(catalog, nil, a.logger))
			if err != nil {
				return err
			}
			if err := a.applyGains(in); err != nil {
				return err
			}

			e := in.Pipeline().Equalizer()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "BAND\tTYPE\tFREQ (Hz)\tQ\tGAIN (dB)\tRESPONSE (dB)\t")
			for i, b := range e.Bands() {
				fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.2f\t%+.1f\t%+.2f\t\n",
					i, b.Type, b.Frequency, b.Q, b.GainDB, e.MagnitudeDB(b.Frequency))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if points <= 1 {
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout())
			tw = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "FREQ (Hz)\tRESPONSE (dB)\t")
			for _, f := range logFrequencies(points, eq.MinFrequency, eq.MaxFrequency(e.SampleRate())) {
				fmt.Fprintf(tw, "%.1f\t%+.2f\t\n", f, e.MagnitudeDB(f))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&points, "points", 0, "also print the response at this many log-spaced frequencies")
	return cmd
}

func logFrequencies(n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo * math.Pow(hi/lo, float64(i)/float64(n-1))
	}
	return out
}
