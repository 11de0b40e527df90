// Observer pattern interfaces for lifecycle events. Events are CloudEvents so
// they can be forwarded to external systems unchanged.

package simhost

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer is notified of application lifecycle events.
type Observer interface {
	// OnEvent is called synchronously on the orchestrator's goroutine.
	// Returned errors are logged and never abort the lifecycle.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// Lifecycle event types emitted by the Application.
const (
	EventTypeModuleStarted = "com.simhost.module.started"
	EventTypeModuleStopped = "com.simhost.module.stopped"
	EventTypeRunStarted    = "com.simhost.run.started"
	EventTypeRunStopped    = "com.simhost.run.stopped"
)

// eventSource is the CloudEvents source of lifecycle events.
const eventSource = "simhost"

// FunctionalObserver provides a simple way to create observers using functions.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates a new observer that uses the provided function
// to handle events.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent implements the Observer interface by calling the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements the Observer interface by returning the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

// observerRegistration holds information about a registered observer
type observerRegistration struct {
	observer   Observer
	eventTypes map[string]bool // empty means all events
}

// NewCloudEvent creates a CloudEvent with a UUIDv7 id and JSON data. It
// fails when data cannot be encoded or the result is not a valid CloudEvent.
func NewCloudEvent(eventType, source string, data interface{}, metadata map[string]interface{}) (cloudevents.Event, error) {
	event := cloudevents.NewEvent()
	event.SetID(newEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	if data != nil {
		if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
			return event, fmt.Errorf("failed to encode event data: %w", err)
		}
	}
	for key, value := range metadata {
		event.SetExtension(key, value)
	}
	if err := event.Validate(); err != nil {
		return event, fmt.Errorf("CloudEvent validation failed: %w", err)
	}
	return event, nil
}

// RegisterObserver adds an observer. When eventTypes is empty the observer
// receives every lifecycle event. Registering an ID twice replaces the first.
func (a *Application) RegisterObserver(observer Observer, eventTypes ...string) {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	for i, reg := range a.observers {
		if reg.observer.ObserverID() == observer.ObserverID() {
			a.observers[i] = observerRegistration{observer: observer, eventTypes: types}
			return
		}
	}
	a.observers = append(a.observers, observerRegistration{observer: observer, eventTypes: types})
	a.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
}

// UnregisterObserver removes an observer. Unknown observers are ignored.
func (a *Application) UnregisterObserver(observer Observer) {
	for i, reg := range a.observers {
		if reg.observer.ObserverID() == observer.ObserverID() {
			a.observers = append(a.observers[:i], a.observers[i+1:]...)
			return
		}
	}
}

// notify delivers a lifecycle event to interested observers in registration order.
func (a *Application) notify(ctx context.Context, eventType string, data map[string]any) {
	if len(a.observers) == 0 {
		return
	}
	event, err := NewCloudEvent(eventType, eventSource, data, nil)
	if err != nil {
		a.logger.Error("Failed to create lifecycle event", "eventType", eventType, "error", err)
		return
	}
	for _, reg := range a.observers {
		if len(reg.eventTypes) > 0 && !reg.eventTypes[eventType] {
			continue
		}
		if err := a.callObserver(ctx, reg.observer, event); err != nil {
			a.logger.Error("Observer error", "observerID", reg.observer.ObserverID(), "event", eventType, "error", err)
		}
	}
}

func (a *Application) callObserver(ctx context.Context, observer Observer, event cloudevents.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return observer.OnEvent(ctx, event)
}
