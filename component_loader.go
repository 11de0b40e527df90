package simhost

import (
	"fmt"
	"plugin"
)

// RegisterSymbol is the symbol an external component must export. Its type
// must be func(*simhost.Registry).
const RegisterSymbol = "RegisterModules"

// Component is a loaded external code unit.
type Component interface {
	// Path returns the path the component was loaded from.
	Path() string
	// Register lets the component install its factories on the registry.
	Register(r *Registry) error
	// Release gives the component up. It is called once, on registry refresh
	// or teardown, in last-loaded-first order.
	Release() error
}

// ComponentLoader turns a path into a Component.
type ComponentLoader interface {
	Load(path string) (Component, error)
}

// ComponentLoaderFunc adapts a function to ComponentLoader.
type ComponentLoaderFunc func(path string) (Component, error)

// Load implements ComponentLoader.
func (f ComponentLoaderFunc) Load(path string) (Component, error) { return f(path) }

// PluginLoader loads Go plugins built with -buildmode=plugin.
//
// Go cannot unload a plugin, so Release only drops the handle; the code stays
// mapped until the process exits.
type PluginLoader struct{}

// Load opens the plugin and resolves its registration entry point.
func (PluginLoader) Load(path string) (Component, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open component %s: %w", path, err)
	}
	sym, err := p.Lookup(RegisterSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrComponentEntryPoint, path, err)
	}
	register, ok := sym.(func(*Registry))
	if !ok {
		return nil, fmt.Errorf("%w: %s: %s has type %T", ErrComponentEntryPoint, path, RegisterSymbol, sym)
	}
	return &funcComponent{path: path, register: register}, nil
}

// funcComponent is a component backed by a registration function.
type funcComponent struct {
	path     string
	register func(*Registry)
	release  func() error
}

// NewComponent builds a Component from a registration function. Useful for
// statically linked components and tests.
func NewComponent(path string, register func(*Registry), release func() error) Component {
	return &funcComponent{path: path, register: register, release: release}
}

func (c *funcComponent) Path() string { return c.path }

func (c *funcComponent) Register(r *Registry) error {
	if c.register == nil {
		return fmt.Errorf("%w: %s", ErrComponentEntryPoint, c.path)
	}
	c.register(r)
	return nil
}

func (c *funcComponent) Release() error {
	if c.release == nil {
		return nil
	}
	return c.release()
}
