package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-eqchain/bridge"
	"github.com/cwbudde/algo-eqchain/internal/config"
)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":   "log_level",
	"sample-rate": "audio.sample_rate",
	"block-size":  "audio.block_size",
	"bands":       "equalizer.bands",
	"preset":      "equalizer.preset",
	"master-gain": "equalizer.master_gain_db",
	"disable-eq":  "equalizer.disabled",
	"nr":          "noise_reduction.enabled",
	"fx":          "fx.enabled",
	"no-safety":   "safety.disabled",
	"spectrum":    "spectrum.enabled",
	"addr":        "server.addr",
}

// app carries what every command needs after configuration is loaded.
type app struct {
	v       *viper.Viper
	cfgFile string
	logJSON bool
	cfg     *config.Config
	logger  zerolog.Logger
	out     io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New(), out: os.Stdout}

	root := &cobra.Command{
		Use:           "eqchain",
		Short:         "Real-time equalizer and effect chain",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(a.out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML config file")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&a.logJSON, "log-json", false, "log JSON instead of console output")
	pf.String("preset", "", "preset to apply")
	pf.Float64Slice("gains", nil, "comma separated band gains in dB (overrides --preset)")
	pf.Float64("master-gain", 0, "master gain in dB")
	pf.Int("bands", 0, "number of equalizer bands")

	root.AddCommand(
		newProcessCmd(a),
		newServeCmd(a),
		newPresetsCmd(a),
		newBandsCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if err := bindFlags(cmd, a.v); err != nil {
		return err
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	if a.v.GetBool("equalizer.disabled") {
		cfg.Equalizer.Enabled = false
	}
	if a.v.GetBool("safety.disabled") {
		cfg.Safety.Enabled = false
	}
	if gains, _ := cmd.Flags().GetFloat64Slice("gains"); len(gains) > 0 {
		cfg.Equalizer.Gains = gains
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	a.logger, err = newLogger(cfg.LogLevel, cmd.ErrOrStderr(), a.logJSON)
	return err
}

// bindFlags binds the flags of the running command to their configuration
// keys. Binding per run keeps same-named flags of different commands apart.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("bind --%s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

func newLogger(level string, w io.Writer, jsonOut bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	zerolog.SetGlobalLevel(lvl)

	if !jsonOut {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// catalog builds the preset catalog including the configured user preset
// files.
func (a *app) catalog() (*bridge.Catalog, error) {
	c := bridge.NewCatalog()
	n, err := config.LoadPresets(c, a.cfg.Equalizer.PresetFiles...)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		a.logger.Info().Int("count", n).Msg("user presets loaded")
	}
	return c, nil
}

// applyGains overrides the band gains of in with the configured gains.
func (a *app) applyGains(in *bridge.Instance) error {
	if len(a.cfg.Equalizer.Gains) == 0 {
		return nil
	}
	if err := in.Bridge().SetBandGains(a.cfg.Equalizer.Gains); err != nil {
		return err
	}
	_, err := in.Sync()
	return err
}
