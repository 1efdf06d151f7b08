package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsDropWhenFull(t *testing.T) {
	e := NewEvents(2)

	assert.True(t, e.Publish(Event{Type: EventEnabled}))
	assert.True(t, e.Publish(Event{Type: EventPreset}))
	assert.False(t, e.Publish(Event{Type: EventFX}))

	assert.EqualValues(t, 2, e.Sent())
	assert.EqualValues(t, 1, e.Dropped())

	ev := <-e.C()
	assert.Equal(t, EventEnabled, ev.Type)
	assert.False(t, ev.Time.IsZero(), "publish stamps the time")
}

func TestEventsDefaultCapacity(t *testing.T) {
	e := NewEvents(0)
	assert.Equal(t, DefaultEventCapacity, cap(e.ch))
}

func TestEventsDispatch(t *testing.T) {
	e := NewEvents(8)
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan EventType, 8)
	done := make(chan struct{})
	go func() {
		e.Dispatch(ctx, func(ev Event) { got <- ev.Type })
		close(done)
	}()

	e.Publish(Event{Type: EventSafety})
	e.Publish(Event{Type: EventSynced})

	for _, want := range []EventType{EventSafety, EventSynced} {
		select {
		case typ := <-got:
			assert.Equal(t, want, typ)
		case <-time.After(time.Second):
			require.FailNow(t, "event not dispatched")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "dispatch did not stop")
	}
}
