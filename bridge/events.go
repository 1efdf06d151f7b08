package bridge

import (
	"context"
	"sync/atomic"
	"time"
)

// EventType names a kind of state change.
type EventType string

const (
	EventEnabled        EventType = "enabled"
	EventPreset         EventType = "preset"
	EventBandGain       EventType = "band-gain"
	EventMasterGain     EventType = "master-gain"
	EventNoiseReduction EventType = "noise-reduction"
	EventSafety         EventType = "safety"
	EventFX             EventType = "fx"
	EventSpectrum       EventType = "spectrum"
	EventSynced         EventType = "synced"
)

// DefaultEventCapacity is the queue length used when none is given.
const DefaultEventCapacity = 64

// Event is one state change notification.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
	Time time.Time `json:"time"`
}

// BandGainData is the payload of EventBandGain.
type BandGainData struct {
	Band   int     `json:"band"`
	GainDB float64 `json:"gainDb"`
}

// Events is a bounded, non-blocking event queue. Publishing never blocks:
// when the queue is full the event is dropped and counted.
type Events struct {
	ch      chan Event
	dropped atomic.Uint64
	sent    atomic.Uint64
}

// NewEvents creates a queue holding up to capacity events. A non-positive
// capacity uses DefaultEventCapacity.
func NewEvents(capacity int) *Events {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &Events{ch: make(chan Event, capacity)}
}

// Publish enqueues ev and reports whether it was accepted.
func (e *Events) Publish(ev Event) bool {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	select {
	case e.ch <- ev:
		e.sent.Add(1)
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

// C returns the receive side of the queue.
func (e *Events) C() <-chan Event { return e.ch }

// Dropped returns the number of events discarded because the queue was full.
func (e *Events) Dropped() uint64 { return e.dropped.Load() }

// Sent returns the number of events accepted.
func (e *Events) Sent() uint64 { return e.sent.Load() }

// Dispatch calls fn for every event until ctx is done. It is meant to run
// on its own goroutine.
func (e *Events) Dispatch(ctx context.Context, fn func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.ch:
			fn(ev)
		}
	}
}
