package simhost

import (
	"errors"
)

// Host errors
var (
	// Build and start errors. Each one is classified by the criticality of the
	// affected descriptor and gated by the caller's ErrorPolicy.
	ErrMissingDescriptor    = errors.New("missing descriptor for module type")
	ErrMissingFactory       = errors.New("missing factory for module type")
	ErrUnresolvedDependency = errors.New("missing dependency for module type")
	ErrUnresolvedOrder      = errors.New("unresolved dependencies for module type")

	// Component loading errors
	ErrComponentEntryPoint = errors.New("component does not export a registration entry point")
	ErrNilFactory          = errors.New("factory returned no module")

	// Application errors
	ErrNotInitialized  = errors.New("application not initialized")
	ErrAlreadyRunning  = errors.New("tick loop already running")
	ErrLoggerNotSet    = errors.New("logger not set")
	ErrInvalidConfig   = errors.New("invalid application config")
	ErrUnsupportedFile = errors.New("unsupported config file format")
)
