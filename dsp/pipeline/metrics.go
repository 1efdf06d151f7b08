package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments updated by a Pipeline. All
// instruments are lock-free to update and safe on the audio goroutine.
type Metrics struct {
	blocks          prometheus.Counter
	frames          prometheus.Counter
	clipped         prometheus.Counter
	feedbackBlocks  prometheus.Counter
	settingsApplied prometheus.Counter
	settingsFailed  prometheus.Counter
	outputPeak      prometheus.Gauge
	outputRMS       prometheus.Gauge
	blockSeconds    prometheus.Histogram
}

// NewMetrics registers the pipeline instruments with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		blocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "eqchain_blocks_processed_total",
			Help: "Total number of audio blocks processed",
		}),
		frames: factory.NewCounter(prometheus.CounterOpts{
			Name: "eqchain_frames_processed_total",
			Help: "Total number of audio frames processed",
		}),
		clipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "eqchain_clipped_samples_total",
			Help: "Total number of samples hard-clipped by the safety stage",
		}),
		feedbackBlocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "eqchain_feedback_blocks_total",
			Help: "Total number of blocks attenuated by feedback detection",
		}),
		settingsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "eqchain_settings_applied_total",
			Help: "Total number of stage settings updates applied",
		}),
		settingsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "eqchain_settings_failed_total",
			Help: "Total number of stage settings updates that failed to apply",
		}),
		outputPeak: factory.NewGauge(prometheus.GaugeOpts{
			Name: "eqchain_safety_peak",
			Help: "Peak absolute sample value of the last block after the safety stage",
		}),
		outputRMS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "eqchain_safety_rms",
			Help: "RMS level of the last block after the safety stage",
		}),
		blockSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "eqchain_block_duration_seconds",
			Help:    "Wall time spent processing one block",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}
