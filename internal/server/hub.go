package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-eqchain/bridge"
)

const writeTimeout = 2 * time.Second

type subscriber struct {
	handle uuid.UUID
	conn   *websocket.Conn
	ctx    context.Context
}

// hub fans instance events out to websocket subscribers.
type hub struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	gauge  prometheus.Gauge
	logger zerolog.Logger
}

func newHub(logger zerolog.Logger, gauge prometheus.Gauge) *hub {
	return &hub{
		subs:   make(map[string]*subscriber),
		gauge:  gauge,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

func (h *hub) subscribe(handle uuid.UUID, conn *websocket.Conn, ctx context.Context) (string, *subscriber) {
	id := uuid.NewString()
	sub := &subscriber{handle: handle, conn: conn, ctx: ctx}

	h.mu.Lock()
	h.subs[id] = sub
	n := len(h.subs)
	h.mu.Unlock()

	h.gauge.Set(float64(n))
	h.logger.Debug().Str("subscriber", id).Str("handle", handle.String()).Msg("subscribed")
	return id, sub
}

func (h *hub) unsubscribe(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	n := len(h.subs)
	h.mu.Unlock()

	h.gauge.Set(float64(n))
	h.logger.Debug().Str("subscriber", id).Msg("unsubscribed")
}

func (h *hub) broadcast(handle uuid.UUID, ev bridge.Event) {
	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.handle == handle {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		h.send(sub, ev)
	}
}

func (h *hub) send(sub *subscriber, ev bridge.Event) bool {
	if sub.ctx.Err() != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(sub.ctx, writeTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, sub.conn, ev); err != nil {
		if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
			h.logger.Debug().Err(err).Msg("subscriber closed during send")
		} else {
			h.logger.Warn().Err(err).Msg("send event")
		}
		return false
	}
	return true
}
