package simhost

import (
	"context"
	"fmt"
)

// ApplicationState is the lifecycle state of an Application.
type ApplicationState string

const (
	StateNotInitialized ApplicationState = "not-initialized"
	StateInitialized    ApplicationState = "initialized"
	StateRunning        ApplicationState = "running"
	StateStopped        ApplicationState = "stopped"
)

// Application owns the event bus, the registry and the manager, and runs the
// fixed-phase tick loop. It is not safe for concurrent use; every call,
// including the module hooks it drives, happens on the caller's goroutine.
type Application struct {
	cfg      AppConfig
	logger   Logger
	bus      *EventBus
	registry *Registry
	manager  *Manager
	mctx     *ModuleContext

	factories  []namedFactory
	registrars []func(*Registry)
	loader     ComponentLoader
	loaderSet  bool
	stopCond   StopCondition

	observers        []observerRegistration
	pendingObservers []observerRegistrationRequest

	state    ApplicationState
	started  bool
	shutdown bool
	ticks    int
}

// NewApplication creates an application with the provided options.
func NewApplication(opts ...Option) (*Application, error) {
	a := &Application{
		cfg:   DefaultAppConfig(),
		state: StateNotInitialized,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.logger == nil {
		return nil, ErrLoggerNotSet
	}
	a.logger = WithChannel(a.logger, ChannelSystem)

	regOpts := []RegistryOption{WithRegistryLogger(a.logger)}
	if a.loaderSet {
		regOpts = append(regOpts, WithLoader(a.loader))
	}
	a.bus = NewEventBus()
	a.registry = NewRegistry(regOpts...)
	a.manager = NewManager(a.registry, nil, a.logger)
	a.mctx = NewModuleContext(a.logger, a.bus, &a.cfg, a.manager)
	a.manager.mctx = a.mctx

	for _, req := range a.pendingObservers {
		a.RegisterObserver(req.observer, req.eventTypes...)
	}
	a.pendingObservers = nil
	return a, nil
}

// Initialize loads descriptors, installs static factories and builds the
// configured instances. Instances from a previous build are released first:
// started ones that were not shut down are stopped and their bus
// subscriptions dropped. On failure the application is NotInitialized.
func (a *Application) Initialize() error {
	if a.state == StateRunning {
		return ErrAlreadyRunning
	}
	a.releaseInstances()

	a.logger.Info("Loading descriptors", "dir", a.cfg.ModulesDir)
	if err := a.registry.LoadDescriptors(a.cfg.ModulesDir); err != nil {
		a.state = StateNotInitialized
		return err
	}
	for _, register := range a.registrars {
		register(a.registry)
	}
	for _, f := range a.factories {
		a.registry.RegisterFactory(f.typeID, f.factory)
	}

	policy := a.cfg.Policy()
	if err := a.manager.BuildModules(a.cfg.Instances, policy); err != nil {
		a.logger.Error("Failed to build modules", "policy", policy.String(), "error", err)
		a.state = StateNotInitialized
		return fmt.Errorf("failed to build modules: %w", err)
	}
	a.started = false
	a.shutdown = false
	a.state = StateInitialized
	a.logger.Info("Modules built", "count", len(a.manager.Modules()))
	return nil
}

// StartModules starts the built instances in dependency order.
func (a *Application) StartModules() error {
	if a.state != StateInitialized {
		return ErrNotInitialized
	}
	if err := a.manager.StartModules(a.cfg.Policy()); err != nil {
		a.logger.Error("Failed to start modules", "error", err)
		return fmt.Errorf("failed to start modules: %w", err)
	}
	a.started = true

	ctx := context.Background()
	for _, typeID := range a.manager.StartOrder() {
		for _, m := range a.manager.Modules() {
			if m.TypeID() == typeID {
				a.notify(ctx, EventTypeModuleStarted, map[string]any{"type": m.TypeID(), "instance": m.InstanceID()})
			}
		}
	}
	a.logger.Info("Modules started", "order", a.manager.StartOrder())
	return nil
}

// Run drives the tick loop until the stop condition reports true or the tick
// budget is exhausted, both checked after each tick. Cancelling ctx ends the
// loop between ticks and returns ctx.Err().
//
// Every tick runs five phases over the live instances in build order:
// pre-tick, tick, post-tick, bus flush and post-delivery.
func (a *Application) Run(ctx context.Context) error {
	switch {
	case a.state == StateRunning:
		return ErrAlreadyRunning
	case a.state == StateNotInitialized, !a.started, a.shutdown:
		return ErrNotInitialized
	}

	a.state = StateRunning
	defer func() { a.state = StateStopped }()

	modules := a.manager.Modules()
	stop := a.resolveStopCondition(modules)
	if stop == nil {
		a.logger.Debug("No stop condition, running until tick budget", "budget", a.cfg.TickBudget())
	}
	budget := a.cfg.TickBudget()
	a.notify(ctx, EventTypeRunStarted, map[string]any{"budget": budget})

	ran := 0
	for {
		if err := ctx.Err(); err != nil {
			a.logger.Info("Run cancelled", "ticks", ran)
			a.notify(ctx, EventTypeRunStopped, map[string]any{"ticks": ran, "reason": "cancelled"})
			return err
		}
		a.tick(modules)
		ran++
		a.ticks++

		if stop != nil && stop.ShouldStop() {
			a.logger.Info("Stop condition reached", "ticks", ran)
			a.notify(ctx, EventTypeRunStopped, map[string]any{"ticks": ran, "reason": "stop-condition"})
			return nil
		}
		if ran >= budget {
			a.logger.Info("Reached max ticks", "ticks", ran)
			a.notify(ctx, EventTypeRunStopped, map[string]any{"ticks": ran, "reason": "tick-budget"})
			return nil
		}
	}
}

// tick runs one tick's five phases.
func (a *Application) tick(modules []Module) {
	for _, m := range modules {
		if h, ok := m.(PreTicker); ok {
			h.OnPreTick()
		}
	}
	for _, m := range modules {
		if h, ok := m.(Ticker); ok {
			h.OnTick()
		}
	}
	for _, m := range modules {
		if h, ok := m.(PostTicker); ok {
			h.OnPostTick()
		}
	}
	a.bus.DeliverBuffered()
	for _, m := range modules {
		if h, ok := m.(DeliveryHandler); ok {
			h.OnDeliverBufferedEvents()
		}
	}
}

func (a *Application) resolveStopCondition(modules []Module) StopCondition {
	if a.stopCond != nil {
		return a.stopCond
	}
	for _, m := range modules {
		if cond, ok := m.(StopCondition); ok {
			a.logger.Debug("Using module as stop condition", "module", moduleKey(m))
			return cond
		}
	}
	return nil
}

// Shutdown stops every live instance in reverse build order, drops pending
// events and bus subscriptions, and releases external components. It is safe
// to call more than once.
func (a *Application) Shutdown() {
	if a.shutdown || a.state == StateRunning {
		return
	}
	a.stopInstances()
	a.bus.Reset()
	if err := a.registry.Close(); err != nil {
		a.logger.Warn("Failed to release components", "error", err)
	}
	a.shutdown = true
	a.state = StateStopped
	a.logger.Info("Application stopped")
}

// stopInstances stops the live instances in reverse build order and notifies
// observers.
func (a *Application) stopInstances() {
	modules := a.manager.Modules()
	a.manager.StopModules()
	ctx := context.Background()
	for i := len(modules) - 1; i >= 0; i-- {
		a.notify(ctx, EventTypeModuleStopped, map[string]any{"type": modules[i].TypeID(), "instance": modules[i].InstanceID()})
	}
}

// releaseInstances tears down the instances of a previous build before a
// rebuild. Nothing happens before the first build, so subscriptions made on
// the bus ahead of Initialize survive.
func (a *Application) releaseInstances() {
	if len(a.manager.Modules()) == 0 && !a.started {
		return
	}
	if a.started && !a.shutdown {
		a.logger.Info("Stopping previous instances before rebuild")
		a.stopInstances()
	}
	a.started = false
	a.bus.Reset()
}

// State returns the lifecycle state.
func (a *Application) State() ApplicationState { return a.state }

// Ticks returns the number of ticks executed over the application's lifetime.
func (a *Application) Ticks() int { return a.ticks }

// Config returns the application configuration.
func (a *Application) Config() AppConfig { return a.cfg }

// Logger returns the application logger.
func (a *Application) Logger() Logger { return a.logger }

// EventBus returns the shared event bus.
func (a *Application) EventBus() *EventBus { return a.bus }

// Registry returns the module registry.
func (a *Application) Registry() *Registry { return a.registry }

// Manager returns the module manager.
func (a *Application) Manager() *Manager { return a.manager }

// Context returns the context handed to module factories.
func (a *Application) Context() *ModuleContext { return a.mctx }
