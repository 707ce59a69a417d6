package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_TickRequiresRunning(t *testing.T) {
	bus := NewMessageBus(0, nil)
	s := NewScheduler(bus, 1.0, nil)
	s.Register(newStubActor("a", bus))

	assert.False(t, s.Tick(), "tick before start must fail")

	s.Start()
	assert.True(t, s.Tick())

	s.Pause()
	assert.False(t, s.Tick(), "tick while paused must fail")

	s.Resume()
	assert.True(t, s.Tick())
}

func TestScheduler_StartResetsCounters(t *testing.T) {
	bus := NewMessageBus(0, nil)
	s := NewScheduler(bus, 0.5, nil)
	s.Register(newStubActor("a", bus))

	s.Start()
	s.Tick()
	s.Tick()
	s.Stop()

	s.Start()
	state := s.State()
	assert.Zero(t, state.Tick)
	assert.Zero(t, state.SimTime)
	assert.True(t, state.Running)
}

func TestScheduler_MessagesVisibleNextTick(t *testing.T) {
	// A message published during tick N is delivered in tick N+1's delivery
	// phase, never in tick N.
	bus := NewMessageBus(0, nil)
	s := NewScheduler(bus, 1.0, nil)

	sender := newStubActor("sender", bus)
	receiver := newStubActor("receiver", bus)
	sender.onAdvance = func(tick int64) error {
		if tick == 0 {
			bus.Publish(mustEnvelope("sender", "receiver", "PING", Payload{}))
		}
		return nil
	}
	s.Register(sender)
	s.Register(receiver)

	s.Start()
	require.True(t, s.Tick())
	assert.Empty(t, receiver.received, "same-tick delivery is forbidden")
	require.True(t, s.Tick())
	assert.Len(t, receiver.received, 1)
}

func TestScheduler_HandlerFaultDoesNotBlockMailbox(t *testing.T) {
	bus := NewMessageBus(0, nil)
	s := NewScheduler(bus, 1.0, nil)

	a := newStubActor("a", bus)
	a.onMessage = func(env *Envelope) error {
		if env.Kind == "BAD" {
			return fmt.Errorf("malformed")
		}
		return nil
	}
	s.Register(a)

	bus.Publish(mustEnvelope("x", "a", "BAD", Payload{}))
	bus.Publish(mustEnvelope("x", "a", "GOOD", Payload{}))

	s.Start()
	require.True(t, s.Tick())

	// both envelopes reached the handler despite the first one faulting
	require.Len(t, a.received, 2)
	assert.True(t, a.Active())
}

func TestScheduler_AdvanceFaultDeactivatesOnlyThatActor(t *testing.T) {
	bus := NewMessageBus(0, nil)
	s := NewScheduler(bus, 1.0, nil)

	faulty := newStubActor("faulty", bus)
	faulty.onAdvance = func(int64) error { return fmt.Errorf("boom") }
	healthy := newStubActor("healthy", bus)
	s.Register(faulty)
	s.Register(healthy)

	s.Start()
	require.True(t, s.Tick())

	assert.False(t, faulty.Active())
	assert.True(t, healthy.Active())
	assert.Equal(t, 1, healthy.advances)

	// the faulty actor is skipped on later ticks
	require.True(t, s.Tick())
	assert.Equal(t, 1, faulty.advances)
	assert.Equal(t, 2, healthy.advances)
}

func TestScheduler_AutoStopsWhenNoActorsRemain(t *testing.T) {
	bus := NewMessageBus(0, nil)
	s := NewScheduler(bus, 1.0, nil)

	a := newStubActor("a", bus)
	a.onAdvance = func(int64) error { return fmt.Errorf("boom") }
	s.Register(a)

	s.Start()
	assert.False(t, s.Tick(), "tick that empties the roster reports failure")

	state := s.State()
	assert.False(t, state.Running)
	assert.Zero(t, state.ActiveCount)
}

func TestScheduler_StopDeactivatesAllAndClearsMailboxes(t *testing.T) {
	bus := NewMessageBus(0, nil)
	s := NewScheduler(bus, 1.0, nil)
	a := newStubActor("a", bus)
	b := newStubActor("b", bus)
	s.Register(a)
	s.Register(b)
	bus.Publish(mustEnvelope("a", "b", "PING", Payload{}))

	s.Start()
	s.Stop()

	assert.False(t, a.Active())
	assert.False(t, b.Active())
	assert.Zero(t, bus.QueueLen("b"))
}

func TestScheduler_UnregisterRemovesFromRoster(t *testing.T) {
	bus := NewMessageBus(0, nil)
	s := NewScheduler(bus, 1.0, nil)
	a := newStubActor("a", bus)
	b := newStubActor("b", bus)
	s.Register(a)
	s.Register(b)

	require.NoError(t, s.Unregister("a"))
	assert.False(t, a.Active())
	assert.Error(t, s.Unregister("a"))

	s.Start()
	require.True(t, s.Tick())
	assert.Zero(t, a.advances)
	assert.Equal(t, 1, b.advances)
}

func TestScheduler_RegisterIgnoresDuplicates(t *testing.T) {
	bus := NewMessageBus(0, nil)
	s := NewScheduler(bus, 1.0, nil)
	a := newStubActor("a", bus)
	s.Register(a)
	s.Register(a)
	assert.Equal(t, 1, s.State().TotalActors)
}

func TestScheduler_RunForTicks(t *testing.T) {
	bus := NewMessageBus(0, nil)
	s := NewScheduler(bus, 1.0, nil)
	a := newStubActor("a", bus)
	s.Register(a)

	s.RunForTicks(10)
	assert.Equal(t, 10, a.advances)
	assert.Equal(t, int64(10), s.State().Tick)
	assert.InDelta(t, 10.0, s.State().SimTime, 1e-9)
}

func TestScheduler_ActorSnapshots(t *testing.T) {
	bus := NewMessageBus(0, nil)
	s := NewScheduler(bus, 1.0, nil)
	s.Register(newStubActor("a", bus))

	snaps := s.ActorSnapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, "a", snaps[0]["actor_id"])
	assert.Equal(t, true, snaps[0]["active"])
}
