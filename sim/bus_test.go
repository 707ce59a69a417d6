package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_RejectsMissingFields(t *testing.T) {
	cases := []struct {
		name                    string
		sender, recipient, kind string
		data                    Payload
	}{
		{"empty sender", "", "b", "PING", Payload{}},
		{"empty recipient", "a", "", "PING", Payload{}},
		{"empty kind", "a", "b", "", Payload{}},
		{"nil data", "a", "b", "PING", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEnvelope(tc.sender, tc.recipient, tc.kind, tc.data, 0)
			assert.Error(t, err)
		})
	}
}

func TestPayload_TypedAccessors(t *testing.T) {
	p := Payload{"s": "hello", "i": 7, "f": 2.5, "fi": float64(12)}

	s, ok := p.String("s")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	i, ok := p.Int("i")
	assert.True(t, ok)
	assert.Equal(t, 7, i)

	// ints that round-tripped through float64 still read back as ints
	fi, ok := p.Int("fi")
	assert.True(t, ok)
	assert.Equal(t, 12, fi)

	f, ok := p.Float("f")
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	_, ok = p.String("missing")
	assert.False(t, ok)
	_, ok = p.Int("s")
	assert.False(t, ok)
}

func TestBus_DeliversFIFOPerRecipient(t *testing.T) {
	bus := NewMessageBus(0, nil)
	bus.Subscribe("r", func(*Envelope) error { return nil })

	for i := 0; i < 5; i++ {
		bus.Publish(mustEnvelope("s", "r", fmt.Sprintf("K%d", i), Payload{}))
	}
	batch := bus.Drain("r")
	require.Len(t, batch, 5)
	for i, env := range batch {
		assert.Equal(t, fmt.Sprintf("K%d", i), env.Kind)
	}
}

func TestBus_DrainIsNotIdempotent(t *testing.T) {
	bus := NewMessageBus(0, nil)
	bus.Publish(mustEnvelope("s", "r", "PING", Payload{}))

	assert.Len(t, bus.Drain("r"), 1)
	assert.Empty(t, bus.Drain("r"))
}

func TestBus_OverflowDropsOldest(t *testing.T) {
	// 101 publishes against a bound of 100: the drain returns exactly 100
	// envelopes, the 2nd through the 101st published.
	bus := NewMessageBus(100, nil)
	for i := 1; i <= 101; i++ {
		bus.Publish(mustEnvelope("s", "r", fmt.Sprintf("K%d", i), Payload{}))
		assert.LessOrEqual(t, bus.QueueLen("r"), 100)
	}
	batch := bus.Drain("r")
	require.Len(t, batch, 100)
	assert.Equal(t, "K2", batch[0].Kind)
	assert.Equal(t, "K101", batch[99].Kind)
}

func TestBus_PublishToUnsubscribedStillEnqueues(t *testing.T) {
	bus := NewMessageBus(0, nil)
	bus.Publish(mustEnvelope("s", "late", "PING", Payload{}))
	assert.Equal(t, 1, bus.QueueLen("late"))

	// a late subscriber still receives what was queued before it registered
	bus.Subscribe("late", func(*Envelope) error { return nil })
	assert.Len(t, bus.Drain("late"), 1)
}

func TestBus_UnsubscribeDiscardsMailbox(t *testing.T) {
	bus := NewMessageBus(0, nil)
	bus.Subscribe("r", func(*Envelope) error { return nil })
	bus.Publish(mustEnvelope("s", "r", "PING", Payload{}))

	bus.Unsubscribe("r")
	assert.Empty(t, bus.Drain("r"))
	_, ok := bus.HandlerFor("r")
	assert.False(t, ok)
}

func TestBus_StatsSnapshot(t *testing.T) {
	bus := NewMessageBus(50, nil)
	bus.Subscribe("a", func(*Envelope) error { return nil })
	bus.Subscribe("b", func(*Envelope) error { return nil })
	bus.Publish(mustEnvelope("a", "b", "PING", Payload{}))
	bus.Publish(mustEnvelope("a", "b", "PING", Payload{}))

	stats := bus.Stats()
	assert.Equal(t, 2, stats.Subscribers)
	assert.Equal(t, 2, stats.TotalQueued)
	assert.Equal(t, 2, stats.QueueSizes["b"])
	assert.Equal(t, 50, stats.MaxQueueSize)
}

func TestBus_ClearAll(t *testing.T) {
	bus := NewMessageBus(0, nil)
	bus.Publish(mustEnvelope("a", "b", "PING", Payload{}))
	bus.ClearAll()
	assert.Zero(t, bus.QueueLen("b"))
}
