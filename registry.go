package simhost

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
)

// Factory constructs a module instance for a configuration entry.
type Factory func(cfg InstanceConfig, mctx *ModuleContext) (Module, error)

// Registry maps module type identifiers to descriptors and factories, and owns
// the external components loaded while scanning descriptors.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
	factories   map[string]Factory
	components  []Component
	loader      ComponentLoader
	logger      Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for skipped descriptors and components.
func WithRegistryLogger(logger Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLoader sets the component loader. A nil loader disables external components.
func WithLoader(loader ComponentLoader) RegistryOption {
	return func(r *Registry) {
		r.loader = loader
	}
}

// NewRegistry creates an empty registry using the plugin loader.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		descriptors: make(map[string]Descriptor),
		factories:   make(map[string]Factory),
		loader:      PluginLoader{},
		logger:      NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadDescriptors replaces the descriptor set with the descriptors found in the
// immediate subdirectories of dir. Previously loaded components are released
// first, last-loaded first. Descriptors naming a library have it loaded
// best-effort; a component that fails to load is skipped and its descriptor kept.
//
// A missing directory yields an empty set. An unreadable directory is an error.
func (r *Registry) LoadDescriptors(dir string) error {
	r.releaseComponents()

	next := make(map[string]Descriptor)
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.swapDescriptors(next)
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Debug("Descriptor directory does not exist", "dir", dir)
			return nil
		}
		return fmt.Errorf("failed to scan descriptor directory %s: %w", dir, err)
	}

	var libraries []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		moduleDir := filepath.Join(dir, entry.Name())
		path := filepath.Join(moduleDir, DescriptorFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		desc, err := LoadDescriptor(path)
		if err != nil {
			r.logger.Warn("Skipping unreadable descriptor", "path", path, "error", err)
			continue
		}
		if desc.TypeID == "" {
			r.logger.Warn("Skipping descriptor without id", "path", path)
			continue
		}
		desc.Dir = moduleDir
		next[desc.TypeID] = desc
		if desc.Library != "" {
			lib := desc.Library
			if !filepath.IsAbs(lib) {
				lib = filepath.Join(moduleDir, lib)
			}
			libraries = append(libraries, lib)
		}
		r.logger.Debug("Descriptor loaded", "type", desc.TypeID, "version", desc.Version)
	}
	r.swapDescriptors(next)

	for _, lib := range libraries {
		r.loadComponent(lib)
	}
	return nil
}

func (r *Registry) swapDescriptors(next map[string]Descriptor) {
	r.mu.Lock()
	r.descriptors = next
	r.mu.Unlock()
}

// loadComponent loads one external component and lets it register factories.
// Failures are logged and otherwise ignored.
func (r *Registry) loadComponent(path string) {
	if r.loader == nil {
		r.logger.Debug("No component loader configured, skipping library", "path", path)
		return
	}
	component, err := r.loader.Load(path)
	if err != nil {
		r.logger.Warn("Skipping external component", "path", path, "error", err)
		return
	}
	if err := component.Register(r); err != nil {
		r.logger.Warn("Skipping external component", "path", path, "error", err)
		if releaseErr := component.Release(); releaseErr != nil {
			r.logger.Debug("Failed to release component", "path", path, "error", releaseErr)
		}
		return
	}
	r.mu.Lock()
	r.components = append(r.components, component)
	r.mu.Unlock()
	r.logger.Info("External component loaded", "path", path)
}

// releaseComponents releases loaded components in last-loaded-first order.
func (r *Registry) releaseComponents() {
	r.mu.Lock()
	components := r.components
	r.components = nil
	r.mu.Unlock()

	for i := len(components) - 1; i >= 0; i-- {
		if err := components[i].Release(); err != nil {
			r.logger.Debug("Failed to release component", "path", components[i].Path(), "error", err)
		}
	}
}

// Close releases every loaded component.
func (r *Registry) Close() error {
	r.releaseComponents()
	return nil
}

// RegisterFactory installs or replaces the factory for a type. Last registration wins.
func (r *Registry) RegisterFactory(typeID string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeID] = factory
}

// FindDescriptor returns the descriptor of a type.
func (r *Registry) FindDescriptor(typeID string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.descriptors[typeID]
	if ok {
		desc.Dependencies = slices.Clone(desc.Dependencies)
	}
	return desc, ok
}

// Descriptors returns a snapshot of all descriptors sorted by type identifier.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, desc := range r.descriptors {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeID < out[j].TypeID })
	return out
}

// HasFactory reports whether a factory is registered for the type.
func (r *Registry) HasFactory(typeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[typeID]
	return ok
}

// ComponentPaths returns the paths of the loaded components in load order.
func (r *Registry) ComponentPaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.components))
	for _, c := range r.components {
		paths = append(paths, c.Path())
	}
	return paths
}

// Create constructs an instance with the factory registered for cfg.TypeID.
// The returned error wraps ErrMissingFactory when no factory exists or the
// factory could not construct an instance.
func (r *Registry) Create(cfg InstanceConfig, mctx *ModuleContext) (Module, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.TypeID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingFactory, cfg.TypeID)
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = DefaultInstanceID
	}
	module, err := factory(cfg, mctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingFactory, cfg.TypeID, err)
	}
	if module == nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingFactory, cfg.TypeID, ErrNilFactory)
	}
	return module, nil
}
