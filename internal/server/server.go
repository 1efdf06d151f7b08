// Package server exposes equalizer instances over HTTP: a JSON control API,
// a websocket event stream and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-eqchain/bridge"
)

const (
	defaultSyncInterval     = 10 * time.Millisecond
	defaultSpectrumInterval = 50 * time.Millisecond
	shutdownTimeout         = 5 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l.With().Str("component", "server").Logger()
	}
}

// WithPrometheus serves reg on /metrics and registers the server metrics
// with it.
func WithPrometheus(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.prom = reg
	}
}

// WithIntervals sets how often instances are synced and how often spectrum
// frames are pushed.
func WithIntervals(sync, spectrum time.Duration) Option {
	return func(s *Server) {
		if sync > 0 {
			s.syncInterval = sync
		}
		if spectrum > 0 {
			s.spectrumInterval = spectrum
		}
	}
}

// WithInstanceConfig sets the template for instances created over HTTP.
func WithInstanceConfig(cfg bridge.InstanceConfig) Option {
	return func(s *Server) {
		s.instanceCfg = cfg
	}
}

// Server serves the instances of a registry.
type Server struct {
	registry    *bridge.Registry
	instanceCfg bridge.InstanceConfig
	engine      *gin.Engine
	hub         *hub
	logger      zerolog.Logger
	prom        *prometheus.Registry

	syncInterval     time.Duration
	spectrumInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	stops  map[uuid.UUID]context.CancelFunc
	wg     sync.WaitGroup

	eventsDropped prometheus.Counter
}

// New creates a server for registry and starts the background workers of
// every registered instance. Close stops them.
func New(registry *bridge.Registry, opts ...Option) *Server {
	s := &Server{
		registry:         registry,
		instanceCfg:      bridge.DefaultInstanceConfig(),
		logger:           zerolog.Nop(),
		syncInterval:     defaultSyncInterval,
		spectrumInterval: defaultSpectrumInterval,
		stops:            make(map[uuid.UUID]context.CancelFunc),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	var reg prometheus.Registerer = prometheus.NewRegistry()
	if s.prom != nil {
		reg = s.prom
	}
	factory := promauto.With(reg)
	s.hub = newHub(s.logger, factory.NewGauge(prometheus.GaugeOpts{
		Name: "eqchain_ws_subscribers",
		Help: "Number of connected websocket event subscribers.",
	}))
	s.eventsDropped = factory.NewCounter(prometheus.CounterOpts{
		Name: "eqchain_events_dropped_total",
		Help: "Events dropped because an instance queue was full.",
	})

	s.engine = s.routes()
	for _, h := range registry.Handles() {
		if in, err := registry.Get(h); err == nil {
			s.attach(in)
		}
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("shutdown")
		return err
	}
	return nil
}

// Close stops all background workers.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

// attach starts the sync loop, event fan-out and spectrum pump of in.
func (s *Server) attach(in *bridge.Instance) {
	ctx, cancel := context.WithCancel(s.ctx)

	s.mu.Lock()
	s.stops[in.Handle()] = cancel
	s.mu.Unlock()

	handle := in.Handle()
	events := in.Bridge().Events()
	lastDropped := events.Dropped()

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		in.SyncLoop(ctx, s.syncInterval)
	}()
	go func() {
		defer s.wg.Done()
		events.Dispatch(ctx, func(ev bridge.Event) {
			s.hub.broadcast(handle, ev)
		})
	}()
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.spectrumInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				in.Bridge().PublishSpectrum()
				if d := events.Dropped(); d > lastDropped {
					s.eventsDropped.Add(float64(d - lastDropped))
					lastDropped = d
				}
			}
		}
	}()
}

func (s *Server) detach(h uuid.UUID) {
	s.mu.Lock()
	cancel, ok := s.stops[h]
	delete(s.stops, h)
	s.mu.Unlock()

	if ok {
		cancel()
	}
}
