package simhost

// ModuleFinder looks up live module instances. The Manager implements it.
type ModuleFinder interface {
	FindModule(typeID, instanceID string) (Module, bool)
	Modules() []Module
}

// ModuleContext is handed to every instance at construction. It gives read
// access to the shared logger, the shared event bus and the read-only
// application configuration, plus lookup of sibling instances.
type ModuleContext struct {
	logger Logger
	bus    *EventBus
	config *AppConfig
	finder ModuleFinder
}

// NewModuleContext creates a context. finder may be nil when no instances
// need to look each other up.
func NewModuleContext(logger Logger, bus *EventBus, config *AppConfig, finder ModuleFinder) *ModuleContext {
	if logger == nil {
		logger = NopLogger()
	}
	if config == nil {
		config = &AppConfig{}
	}
	return &ModuleContext{logger: logger, bus: bus, config: config, finder: finder}
}

// Logger returns the shared logger.
func (c *ModuleContext) Logger() Logger { return c.logger }

// EventBus returns the shared event bus.
func (c *ModuleContext) EventBus() *EventBus { return c.bus }

// Config returns a copy of the application configuration.
func (c *ModuleContext) Config() AppConfig { return *c.config }

// FindModule looks up a live instance by exact (type, instance) match.
func (c *ModuleContext) FindModule(typeID, instanceID string) (Module, bool) {
	if c.finder == nil {
		return nil, false
	}
	return c.finder.FindModule(typeID, instanceID)
}

// ModuleTypes returns the type identifiers of all live instances in build order.
func (c *ModuleContext) ModuleTypes() []string {
	if c.finder == nil {
		return nil
	}
	mods := c.finder.Modules()
	types := make([]string, 0, len(mods))
	for _, m := range mods {
		types = append(types, m.TypeID())
	}
	return types
}
