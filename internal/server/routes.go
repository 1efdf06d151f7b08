package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/algo-eqchain/bridge"
	"github.com/cwbudde/algo-eqchain/dsp/eq"
	"github.com/cwbudde/algo-eqchain/dsp/effects"
	"github.com/cwbudde/algo-eqchain/dsp/pipeline"
)

const instanceKey = "instance"

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.prom != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.prom, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.GET("/instances", s.listInstances)
	api.POST("/instances", s.createInstance)

	in := api.Group("/instances/:handle", s.resolveInstance)
	in.GET("", s.getState)
	in.DELETE("", s.releaseInstance)
	in.PUT("/enabled", s.putEnabled)
	in.PUT("/master", s.putMaster)
	in.GET("/bands", s.getBands)
	in.PUT("/bands", s.putBands)
	in.PUT("/bands/:band", s.putBand)
	in.GET("/presets", s.getPresets)
	in.POST("/presets", s.savePreset)
	in.POST("/presets/apply", s.applyPreset)
	in.GET("/noise-reduction", s.getNoiseReduction)
	in.PUT("/noise-reduction", s.putNoiseReduction)
	in.GET("/safety", s.getSafety)
	in.PUT("/safety", s.putSafety)
	in.GET("/safety/report", s.getSafetyReport)
	in.GET("/fx", s.getFX)
	in.PUT("/fx", s.putFX)
	in.GET("/spectrum", s.getSpectrum)
	in.POST("/spectrum/start", s.startSpectrum)
	in.POST("/spectrum/stop", s.stopSpectrum)
	in.GET("/events", s.streamEvents)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

// resolveInstance looks up the :handle parameter.
func (s *Server) resolveInstance(c *gin.Context) {
	in, err := s.registry.Lookup(c.Param("handle"))
	if err != nil {
		abort(c, err)
		return
	}
	c.Set(instanceKey, in)
	c.Next()
}

func instanceOf(c *gin.Context) *bridge.Instance {
	return c.MustGet(instanceKey).(*bridge.Instance)
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, bridge.ErrInvalidHandle), errors.Is(err, bridge.ErrUnknownPreset):
		return http.StatusNotFound
	case errors.Is(err, bridge.ErrBuiltinPreset):
		return http.StatusConflict
	case errors.Is(err, eq.ErrInvalidParameter), errors.Is(err, pipeline.ErrInvalidSettings):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusOf(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// State is the JSON view of an instance.
type State struct {
	Handle          string               `json:"handle"`
	Enabled         bool                 `json:"enabled"`
	MasterGainDB    float64              `json:"masterGainDb"`
	Preset          string               `json:"preset"`
	Gains           []float64            `json:"gains"`
	Settings        pipeline.Settings    `json:"settings"`
	SpectrumRunning bool                 `json:"spectrumRunning"`
	Pending         bool                 `json:"pending"`
	Safety          effects.SafetyReport `json:"safetyReport"`
}

func stateOf(in *bridge.Instance) State {
	b := in.Bridge()
	return State{
		Handle:          in.Handle().String(),
		Enabled:         b.IsEnabled(),
		MasterGainDB:    b.MasterGainDB(),
		Preset:          b.CurrentPreset(),
		Gains:           b.BandGains(),
		Settings:        b.Settings(),
		SpectrumRunning: b.SpectrumRunning(),
		Pending:         b.HasPendingUpdate(),
		Safety:          in.Pipeline().SafetyReport(),
	}
}

func (s *Server) listInstances(c *gin.Context) {
	handles := s.registry.Handles()
	out := make([]string, len(handles))
	for i, h := range handles {
		out[i] = h.String()
	}
	c.JSON(http.StatusOK, gin.H{"instances": out})
}

func (s *Server) createInstance(c *gin.Context) {
	in, err := s.registry.Create(s.instanceCfg)
	if err != nil {
		abort(c, err)
		return
	}
	s.attach(in)
	c.JSON(http.StatusCreated, stateOf(in))
}

func (s *Server) releaseInstance(c *gin.Context) {
	in := instanceOf(c)
	if err := s.registry.Release(in.Handle()); err != nil {
		abort(c, err)
		return
	}
	s.detach(in.Handle())
	c.Status(http.StatusNoContent)
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, stateOf(instanceOf(c)))
}

func (s *Server) putEnabled(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in := instanceOf(c)
	in.Bridge().SetEnabled(*req.Enabled)
	c.JSON(http.StatusOK, stateOf(in))
}

func (s *Server) putMaster(c *gin.Context) {
	var req struct {
		GainDB *float64 `json:"gainDb" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in := instanceOf(c)
	if err := in.Bridge().SetMasterGainDB(*req.GainDB); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, stateOf(in))
}

func (s *Server) getBands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bands": instanceOf(c).Pipeline().Equalizer().Bands()})
}

func (s *Server) putBands(c *gin.Context) {
	var req struct {
		Gains []float64 `json:"gains" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in := instanceOf(c)
	if err := in.Bridge().SetBandGains(req.Gains); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, stateOf(in))
}

func (s *Server) putBand(c *gin.Context) {
	band, err := strconv.Atoi(c.Param("band"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var req struct {
		GainDB *float64 `json:"gainDb" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in := instanceOf(c)
	if err := in.Bridge().SetBandGain(band, *req.GainDB); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, stateOf(in))
}

func (s *Server) getPresets(c *gin.Context) {
	b := instanceOf(c).Bridge()
	c.JSON(http.StatusOK, gin.H{
		"current": b.CurrentPreset(),
		"presets": b.Catalog().Presets(),
	})
}

type presetRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) applyPreset(c *gin.Context) {
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in := instanceOf(c)
	if err := in.Bridge().ApplyPreset(req.Name); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, stateOf(in))
}

func (s *Server) savePreset(c *gin.Context) {
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := instanceOf(c).Bridge().SavePreset(req.Name)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) getNoiseReduction(c *gin.Context) {
	c.JSON(http.StatusOK, instanceOf(c).Bridge().NoiseReduction())
}

func (s *Server) putNoiseReduction(c *gin.Context) {
	b := instanceOf(c).Bridge()
	cfg := b.NoiseReduction()
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err)
		return
	}
	if err := b.SetNoiseReduction(cfg); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) getSafety(c *gin.Context) {
	c.JSON(http.StatusOK, instanceOf(c).Bridge().Safety())
}

func (s *Server) putSafety(c *gin.Context) {
	b := instanceOf(c).Bridge()
	cfg := b.Safety()
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err)
		return
	}
	if err := b.SetSafety(cfg); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) getSafetyReport(c *gin.Context) {
	c.JSON(http.StatusOK, instanceOf(c).Pipeline().SafetyReport())
}

func (s *Server) getFX(c *gin.Context) {
	c.JSON(http.StatusOK, instanceOf(c).Bridge().FX())
}

func (s *Server) putFX(c *gin.Context) {
	b := instanceOf(c).Bridge()
	cfg := b.FX()
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err)
		return
	}
	if err := b.SetFX(cfg); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) getSpectrum(c *gin.Context) {
	b := instanceOf(c).Bridge()
	bars := make([]float32, b.SpectrumBars())
	n := b.CopyMagnitudes(bars)
	c.JSON(http.StatusOK, gin.H{
		"running": b.SpectrumRunning(),
		"bars":    bars[:n],
	})
}

func (s *Server) startSpectrum(c *gin.Context) {
	instanceOf(c).Bridge().StartSpectrum()
	c.Status(http.StatusNoContent)
}

func (s *Server) stopSpectrum(c *gin.Context) {
	instanceOf(c).Bridge().StopSpectrum()
	c.Status(http.StatusNoContent)
}

// streamEvents upgrades to a websocket and pushes the instance's events
// until the client goes away. The first message is the full state.
func (s *Server) streamEvents(c *gin.Context) {
	in := instanceOf(c)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(c.Request.Context())
	id, sub := s.hub.subscribe(in.Handle(), conn, ctx)
	defer s.hub.unsubscribe(id)

	s.hub.send(sub, bridge.Event{Type: EventState, Data: stateOf(in), Time: time.Now()})
	<-ctx.Done()
	conn.Close(websocket.StatusNormalClosure, "")
}

// EventState carries a full State snapshot to new subscribers.
const EventState bridge.EventType = "state"
