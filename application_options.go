package simhost

import (
	"context"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Option represents a functional option for configuring applications
type Option func(*Application) error

type namedFactory struct {
	typeID  string
	factory Factory
}

// WithLogger sets the logger for the application. Required.
func WithLogger(logger Logger) Option {
	return func(a *Application) error {
		a.logger = logger
		return nil
	}
}

// WithConfig sets the application configuration.
func WithConfig(cfg AppConfig) Option {
	return func(a *Application) error {
		a.cfg = cfg
		return nil
	}
}

// WithFactory registers a statically linked factory. Static factories are
// installed after descriptors are loaded, so they win over factories of the
// same type registered by external components.
func WithFactory(typeID string, factory Factory) Option {
	return func(a *Application) error {
		a.factories = append(a.factories, namedFactory{typeID: typeID, factory: factory})
		return nil
	}
}

// WithFactories registers several factories at once, e.g. from a module package.
func WithFactories(register func(r *Registry)) Option {
	return func(a *Application) error {
		a.registrars = append(a.registrars, register)
		return nil
	}
}

// WithComponentLoader replaces the loader used for descriptor libraries.
func WithComponentLoader(loader ComponentLoader) Option {
	return func(a *Application) error {
		a.loader = loader
		a.loaderSet = true
		return nil
	}
}

// WithStopCondition designates the collaborator consulted after each tick.
// Without it the first live module implementing StopCondition is used.
func WithStopCondition(cond StopCondition) Option {
	return func(a *Application) error {
		a.stopCond = cond
		return nil
	}
}

// WithObserver registers a functional observer for the given event types.
func WithObserver(id string, fn func(ctx context.Context, event cloudevents.Event) error, eventTypes ...string) Option {
	return func(a *Application) error {
		a.pendingObservers = append(a.pendingObservers, observerRegistrationRequest{
			observer:   NewFunctionalObserver(id, fn),
			eventTypes: eventTypes,
		})
		return nil
	}
}

type observerRegistrationRequest struct {
	observer   Observer
	eventTypes []string
}
