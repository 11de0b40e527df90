package simhost

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_DeliversOnlyOnFlush(t *testing.T) {
	bus := NewEventBus()
	var got []Event
	bus.Subscribe("ping", func(e Event) { got = append(got, e) })

	bus.Emit(Event{Type: "ping", Tick: 1})
	bus.Emit(Event{Type: "ping", Tick: 2})
	assert.Empty(t, got, "handlers must not run before a flush")
	assert.Equal(t, 2, bus.BufferedCount())

	bus.DeliverBuffered()
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Tick)
	assert.Equal(t, 2, got[1].Tick)
	assert.Zero(t, bus.BufferedCount())
}

func TestEventBus_HandlersRunInSubscriptionOrder(t *testing.T) {
	bus := NewEventBus()
	var calls []string
	bus.Subscribe("x", func(Event) { calls = append(calls, "first") })
	bus.Subscribe("x", func(Event) { calls = append(calls, "second") })
	bus.Subscribe("x", nil)

	bus.Emit(Event{Type: "x"})
	bus.DeliverBuffered()

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestEventBus_EventsWithoutSubscribersAreDropped(t *testing.T) {
	bus := NewEventBus()
	bus.Emit(Event{Type: "nobody"})
	bus.DeliverBuffered()
	assert.Zero(t, bus.BufferedCount())

	var got int
	bus.Subscribe("nobody", func(Event) { got++ })
	bus.DeliverBuffered()
	assert.Zero(t, got, "dropped events are not replayed")
}

func TestEventBus_EmitDuringDeliveryWaitsForNextFlush(t *testing.T) {
	bus := NewEventBus()
	var seen []int
	bus.Subscribe("chain", func(e Event) {
		seen = append(seen, e.Tick)
		if e.Tick < 3 {
			bus.Emit(Event{Type: "chain", Tick: e.Tick + 1})
		}
	})

	bus.Emit(Event{Type: "chain", Tick: 1})
	bus.DeliverBuffered()
	assert.Equal(t, []int{1}, seen)
	assert.Equal(t, 1, bus.BufferedCount())

	bus.DeliverBuffered()
	bus.DeliverBuffered()
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Zero(t, bus.BufferedCount())
}

func TestEventBus_EmitCopiesPayload(t *testing.T) {
	bus := NewEventBus()
	var got Event
	bus.Subscribe("copy", func(e Event) { got = e })

	payload := map[string]string{"k": "before"}
	bus.Emit(Event{Type: "copy", Payload: payload})
	payload["k"] = "after"
	bus.DeliverBuffered()

	assert.Equal(t, "before", got.Payload["k"])
}

func TestEventBus_Clear(t *testing.T) {
	bus := NewEventBus()
	var got int
	bus.Subscribe("x", func(Event) { got++ })
	bus.Emit(Event{Type: "x"})
	bus.Clear()
	bus.DeliverBuffered()
	assert.Zero(t, got)

	bus.Emit(Event{Type: "x"})
	bus.DeliverBuffered()
	assert.Equal(t, 1, got, "Clear keeps subscriptions")
}

func TestEventBus_ResetDropsSubscriptions(t *testing.T) {
	bus := NewEventBus()
	var got int
	bus.Subscribe("x", func(Event) { got++ })
	bus.Emit(Event{Type: "x"})
	bus.Reset()
	assert.Zero(t, bus.BufferedCount())

	bus.Emit(Event{Type: "x"})
	bus.DeliverBuffered()
	assert.Zero(t, got)

	bus.Subscribe("x", func(Event) { got++ })
	bus.Emit(Event{Type: "x"})
	bus.DeliverBuffered()
	assert.Equal(t, 1, got, "the bus stays usable after a reset")
}

func TestEventBus_DeliversEachTypeToItsSubscribers(t *testing.T) {
	bus := NewEventBus()
	var calls []string
	bus.Subscribe("a", func(e Event) {
		assert.Equal(t, "a", e.Type)
		calls = append(calls, "a")
	})
	bus.Subscribe("b", func(e Event) {
		assert.Equal(t, "b", e.Type)
		calls = append(calls, "b")
	})

	bus.Emit(Event{Type: "b", Tick: 1})
	bus.Emit(Event{Type: "a", Tick: 1})
	assert.Empty(t, calls)

	bus.DeliverBuffered()
	assert.Equal(t, []string{"b", "a"}, calls, "one flush delivers mixed types in emission order")
	assert.Zero(t, bus.BufferedCount())
}

func TestEvent_CloudEvent(t *testing.T) {
	e := Event{Type: "world.tick", Tick: 7, Payload: map[string]string{"seed": "42"}}
	ce, err := e.CloudEvent("test")
	require.NoError(t, err)

	assert.Equal(t, "world.tick", ce.Type())
	assert.Equal(t, "test", ce.Source())
	assert.NotEmpty(t, ce.ID())
	assert.Contains(t, ce.Extensions(), "tick")

	var data map[string]string
	require.NoError(t, json.Unmarshal(ce.Data(), &data))
	assert.Equal(t, "42", data["seed"])
}
