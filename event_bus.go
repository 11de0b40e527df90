package simhost

import (
	"fmt"
	"maps"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Event is a simulation event. It is a value type: Emit copies it into the
// buffer and it is never mutated afterwards.
type Event struct {
	Type    string
	Tick    int
	Payload map[string]string
}

// clone returns a copy that shares no map with the receiver.
func (e Event) clone() Event {
	e.Payload = maps.Clone(e.Payload)
	return e
}

// CloudEvent converts the event into a CloudEvents v1 envelope. The payload
// becomes the JSON data and the tick is carried in the "tick" extension.
func (e Event) CloudEvent(source string) (cloudevents.Event, error) {
	ce := cloudevents.NewEvent()
	ce.SetID(newEventID())
	ce.SetSource(source)
	ce.SetType(e.Type)
	ce.SetTime(time.Now())
	ce.SetSpecVersion(cloudevents.VersionV1)
	ce.SetExtension("tick", e.Tick)
	payload := e.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	if err := ce.SetData(cloudevents.ApplicationJSON, payload); err != nil {
		return ce, fmt.Errorf("failed to encode event payload: %w", err)
	}
	if err := ce.Validate(); err != nil {
		return ce, fmt.Errorf("CloudEvent validation failed: %w", err)
	}
	return ce, nil
}

// newEventID generates a time-ordered identifier using UUIDv7.
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// Handler receives delivered events.
type Handler func(Event)

// EventBus is a buffered publish/subscribe channel. Emission only buffers;
// subscribers see events when the owner calls DeliverBuffered.
//
// EventBus is not safe for concurrent use. It relies on single-threaded
// phase execution; the swap-before-delivery rule makes re-entrant emission
// safe in ordering only.
type EventBus struct {
	subscribers map[string][]Handler
	buffer      []Event
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for an event type. Handlers of the same type
// run in registration order.
func (b *EventBus) Subscribe(eventType string, handler Handler) {
	if handler == nil {
		return
	}
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Emit appends a copy of the event to the buffer. It never delivers.
func (b *EventBus) Emit(event Event) {
	b.buffer = append(b.buffer, event.clone())
}

// DeliverBuffered swaps out the current buffer and delivers every event in
// emission order to the handlers of its type. Events emitted by handlers land
// in the next buffer. Events without subscribers are dropped.
func (b *EventBus) DeliverBuffered() {
	pending := b.buffer
	b.buffer = nil
	for _, event := range pending {
		for _, handler := range b.subscribers[event.Type] {
			handler(event)
		}
	}
}

// BufferedCount returns the number of events waiting for delivery.
func (b *EventBus) BufferedCount() int {
	return len(b.buffer)
}

// Clear discards buffered events without delivering them.
func (b *EventBus) Clear() {
	b.buffer = nil
}

// Reset discards buffered events and every subscription. The orchestrator
// calls it when the instances that subscribed are torn down.
func (b *EventBus) Reset() {
	b.buffer = nil
	clear(b.subscribers)
}
