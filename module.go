// Package simhost is a small pluggable-module host. It discovers module
// descriptors, instantiates enabled module instances, starts them in
// dependency order, drives them through a fixed-phase tick loop and stops
// them in reverse build order.
//
// A module implements the Module interface and opts into lifecycle and tick
// phases by implementing any of the optional hook interfaces (Initializer,
// Starter, Stopper, PreTicker, Ticker, PostTicker, DeliveryHandler).
//
// Basic usage:
//
//	app, err := simhost.NewApplication(
//		simhost.WithLogger(logger),
//		simhost.WithConfig(cfg),
//		simhost.WithFactory("counter", newCounter),
//	)
//	if err != nil {
//		return err
//	}
//	if err := app.Initialize(); err != nil {
//		return err
//	}
//	if err := app.StartModules(); err != nil {
//		return err
//	}
//	defer app.Shutdown()
//	return app.Run(ctx)
package simhost

// DefaultInstanceID is the instance identifier used when a configuration
// entry does not name one.
const DefaultInstanceID = "default"

// Module represents a live module instance owned by the Manager.
// Every instance is bound to exactly one (type, instance) pair.
type Module interface {
	// TypeID returns the module type identifier. Dependencies, descriptors and
	// factories are all keyed by this value.
	TypeID() string

	// InstanceID returns the instance identifier, unique within a type.
	InstanceID() string
}

// Initializer is implemented by modules that prepare internal state before start.
// OnInit is called in dependency order, immediately before OnStart.
type Initializer interface {
	OnInit()
}

// Starter is implemented by modules that need a start transition.
// Dependencies start before dependents.
type Starter interface {
	OnStart()
}

// Stopper is implemented by modules that release resources on shutdown.
// OnStop is called in reverse build order and must not fail.
type Stopper interface {
	OnStop()
}

// PreTicker is called first in every tick. Modules drain pending commands
// and apply buffered external input here.
type PreTicker interface {
	OnPreTick()
}

// Ticker is called in the main tick phase. Modules advance their own state
// and may emit events on the bus.
type Ticker interface {
	OnTick()
}

// PostTicker is called after every module ticked, for end-of-tick bookkeeping.
type PostTicker interface {
	OnPostTick()
}

// DeliveryHandler is called after the event bus flushed, so modules can react
// to the events just delivered.
type DeliveryHandler interface {
	OnDeliverBufferedEvents()
}

// StopCondition is implemented by the collaborator that decides when a run is
// over. The orchestrator checks it after each tick.
type StopCondition interface {
	ShouldStop() bool
}

// StopConditionFunc adapts a function to StopCondition.
type StopConditionFunc func() bool

// ShouldStop implements StopCondition.
func (f StopConditionFunc) ShouldStop() bool { return f() }

// BaseModule carries the identifiers of an instance. Embed it to satisfy the
// Module interface and implement only the hooks that matter.
type BaseModule struct {
	typeID     string
	instanceID string
}

// NewBaseModule returns a BaseModule for the given configuration entry.
func NewBaseModule(cfg InstanceConfig) BaseModule {
	id := cfg.InstanceID
	if id == "" {
		id = DefaultInstanceID
	}
	return BaseModule{typeID: cfg.TypeID, instanceID: id}
}

// TypeID implements Module.
func (b BaseModule) TypeID() string { return b.typeID }

// InstanceID implements Module.
func (b BaseModule) InstanceID() string { return b.instanceID }

// moduleKey formats the identity used in log records.
func moduleKey(m Module) string {
	return m.TypeID() + ":" + m.InstanceID()
}
