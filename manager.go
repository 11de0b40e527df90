package simhost

import (
	"errors"
	"fmt"
	"slices"
)

// Manager turns instance configurations into live modules, resolves a
// type-level start order from descriptor dependencies and runs lifecycle
// transitions under an ErrorPolicy.
//
// The instance list is mutated only by BuildModules and StartModules; callers
// must not interleave them with an active tick loop.
type Manager struct {
	registry   *Registry
	mctx       *ModuleContext
	logger     Logger
	modules    []Module
	startOrder []string
}

// NewManager creates a manager. Instances are constructed with mctx.
func NewManager(registry *Registry, mctx *ModuleContext, logger Logger) *Manager {
	if logger == nil {
		logger = NopLogger()
	}
	return &Manager{registry: registry, mctx: mctx, logger: logger}
}

// BuildModules discards the current instances and builds one instance per
// enabled entry, in declaration order.
//
// A type without descriptor aborts under FailFast and is skipped under
// AutoDisable. A type with descriptor but no constructible factory aborts when
// Critical, aborts under FailFast when Important and is skipped when Optional.
// An abort leaves no instances.
func (m *Manager) BuildModules(instances []InstanceConfig, policy ErrorPolicy) error {
	m.modules = nil
	m.startOrder = nil

	var built []Module
	for _, cfg := range instances {
		if !cfg.IsEnabled() {
			m.logger.Debug("Module disabled, skipping", "type", cfg.TypeID, "instance", cfg.ID())
			continue
		}
		desc, ok := m.registry.FindDescriptor(cfg.TypeID)
		if !ok {
			m.logger.Error("Missing descriptor for module type", "type", cfg.TypeID, "instance", cfg.ID())
			if policy == FailFast {
				return fmt.Errorf("%w: %s", ErrMissingDescriptor, cfg.TypeID)
			}
			continue
		}
		module, err := m.registry.Create(cfg, m.mctx)
		if err != nil {
			m.logger.Error("Missing factory for module type", "type", cfg.TypeID, "instance", cfg.ID(),
				"criticality", desc.Criticality.String(), "error", err)
			if desc.Criticality.aborts(policy) {
				return err
			}
			continue
		}
		m.logger.Debug("Module built", "module", moduleKey(module))
		built = append(built, module)
	}
	m.modules = built
	return nil
}

// StartModules validates dependencies, computes the start order and runs
// OnInit then OnStart for every instance, type by type.
//
// A type whose declared dependency has no live instance is never started. It
// aborts the whole start, before any module starts, when its criticality and
// the policy say so; otherwise it is disabled and dropped from the live list,
// which can in turn leave its dependents unresolved. Types caught in a cycle
// never enter the order: under FailFast that is an error returned after the
// ordered types started, under AutoDisable they are dropped.
func (m *Manager) StartModules(policy ErrorPolicy) error {
	m.startOrder = nil

	deps := make(map[string][]string)
	crit := make(map[string]Criticality)
	for _, module := range m.modules {
		desc, ok := m.registry.FindDescriptor(module.TypeID())
		if !ok {
			continue
		}
		deps[module.TypeID()] = desc.Dependencies
		crit[module.TypeID()] = desc.Criticality
	}

	disabled, err := m.resolveMissing(deps, crit, policy)
	if err != nil {
		return err
	}

	order := dependencyOrder(deps)
	var unordered error
	if missing := unorderedTypes(deps, order); len(missing) > 0 {
		for _, typeID := range missing {
			m.logger.Error("Unresolved dependencies for module type", "type", typeID)
		}
		if policy == FailFast {
			unordered = fmt.Errorf("%w: %v", ErrUnresolvedOrder, missing)
		} else {
			for _, typeID := range missing {
				disabled[typeID] = true
			}
		}
	}

	if len(disabled) > 0 {
		m.modules = slices.DeleteFunc(m.modules, func(module Module) bool {
			if disabled[module.TypeID()] {
				m.logger.Warn("Module disabled", "module", moduleKey(module))
				return true
			}
			return false
		})
	}

	for _, typeID := range order {
		for _, module := range m.modules {
			if module.TypeID() != typeID {
				continue
			}
			m.logger.Info("Starting module", "module", moduleKey(module))
			if h, ok := module.(Initializer); ok {
				h.OnInit()
			}
			if h, ok := module.(Starter); ok {
				h.OnStart()
			}
		}
		m.startOrder = append(m.startOrder, typeID)
	}
	return unordered
}

// resolveMissing removes from deps every type with a dependency outside deps,
// repeating until no removal uncovers another. It returns the removed types,
// or an error for the first removal that must abort.
func (m *Manager) resolveMissing(deps map[string][]string, crit map[string]Criticality, policy ErrorPolicy) (map[string]bool, error) {
	disabled := make(map[string]bool)
	for {
		var drop []string
		for _, typeID := range sortedKeys(deps) {
			for _, dep := range deps[typeID] {
				if _, ok := deps[dep]; ok {
					continue
				}
				m.logger.Error("Missing dependency for module type", "dependency", dep, "type", typeID,
					"criticality", crit[typeID].String())
				if crit[typeID].aborts(policy) {
					return nil, fmt.Errorf("%w: %s requires %s", ErrUnresolvedDependency, typeID, dep)
				}
				drop = append(drop, typeID)
				break
			}
		}
		if len(drop) == 0 {
			return disabled, nil
		}
		for _, typeID := range drop {
			delete(deps, typeID)
			disabled[typeID] = true
		}
	}
}

// StopModules calls OnStop on every live instance in reverse build order.
func (m *Manager) StopModules() {
	for i := len(m.modules) - 1; i >= 0; i-- {
		module := m.modules[i]
		if h, ok := module.(Stopper); ok {
			m.logger.Info("Stopping module", "module", moduleKey(module))
			h.OnStop()
		}
	}
}

// Modules returns a snapshot of the live instances in build order.
func (m *Manager) Modules() []Module {
	return slices.Clone(m.modules)
}

// FindModule returns the live instance with the exact (type, instance) pair.
// An empty instanceID means DefaultInstanceID.
func (m *Manager) FindModule(typeID, instanceID string) (Module, bool) {
	if instanceID == "" {
		instanceID = DefaultInstanceID
	}
	for _, module := range m.modules {
		if module.TypeID() == typeID && module.InstanceID() == instanceID {
			return module, true
		}
	}
	return nil, false
}

// StartOrder returns the distinct types started by the last StartModules, in
// start order.
func (m *Manager) StartOrder() []string {
	return slices.Clone(m.startOrder)
}

// IsBuildAbort reports whether err is one of the conditions BuildModules and
// StartModules abort with.
func IsBuildAbort(err error) bool {
	return errors.Is(err, ErrMissingDescriptor) || errors.Is(err, ErrMissingFactory) ||
		errors.Is(err, ErrUnresolvedDependency) || errors.Is(err, ErrUnresolvedOrder)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
