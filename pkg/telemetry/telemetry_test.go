package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAppendsToBacklog(t *testing.T) {
	b := New()
	b.Publish(KindIterationStarted, map[string]any{"n": 1})
	backlog := b.Backlog()
	require.Len(t, backlog, 1)
	assert.Equal(t, KindIterationStarted, backlog[0].Kind)
}

func TestPublishFansOutToSubscriber(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Publish(KindToolInvoked, nil)
	evt := <-ch
	assert.Equal(t, KindToolInvoked, evt.Kind)
}

func TestPublishNeverBlocksWhenOverCapacity(t *testing.T) {
	b := New()
	for i := 0; i < Capacity+10; i++ {
		b.Publish(KindToolInvoked, nil)
	}
	assert.LessOrEqual(t, len(b.Backlog()), Capacity)
}

func TestTerminalEventsSurviveEviction(t *testing.T) {
	b := New()
	b.Publish(KindTaskCompleted, nil)
	for i := 0; i < Capacity+10; i++ {
		b.Publish(KindToolInvoked, nil)
	}
	backlog := b.Backlog()
	found := false
	for _, evt := range backlog {
		if evt.Kind == KindTaskCompleted {
			found = true
		}
	}
	assert.True(t, found, "terminal event should not be evicted while non-terminal events remain")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	unsubscribe()
	b.Publish(KindIterationStarted, nil)
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should not deliver after unsubscribe, only close on bus Close")
	default:
	}
}

func TestCloseIsIdempotentAndStopsPublish(t *testing.T) {
	b := New()
	b.Close()
	assert.NotPanics(t, func() { b.Close() })
	b.Publish(KindIterationStarted, nil)
	assert.Empty(t, b.Backlog())
}

func TestSubscriberChannelClosedOnBusClose(t *testing.T) {
	b := New()
	ch, _ := b.Subscribe()
	b.Close()
	_, ok := <-ch
	assert.False(t, ok)
}
