package simhost

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// DescriptorFile is the file name the registry looks for in every module directory.
const DescriptorFile = "manifest.toml"

// Criticality controls whether an unresolved requirement of a module type
// aborts building or starting.
type Criticality int

const (
	// Optional modules are always skipped when they cannot be satisfied.
	Optional Criticality = iota
	// Important modules abort under FailFast and are skipped under AutoDisable.
	Important
	// Critical modules abort regardless of policy.
	Critical
)

// String returns the descriptor spelling of the criticality.
func (c Criticality) String() string {
	switch c {
	case Critical:
		return "Critical"
	case Important:
		return "Important"
	default:
		return "Optional"
	}
}

// ParseCriticality maps the descriptor spelling to a Criticality.
// Anything other than "Critical" or "Important" is Optional.
func ParseCriticality(value string) Criticality {
	switch value {
	case "Critical":
		return Critical
	case "Important":
		return Important
	default:
		return Optional
	}
}

// ErrorPolicy decides what happens to unresolved non-critical requirements.
type ErrorPolicy int

const (
	// FailFast aborts the whole operation on any unresolved requirement.
	FailFast ErrorPolicy = iota
	// AutoDisable logs and skips unresolved non-Critical requirements.
	AutoDisable
)

// String returns the config spelling of the policy.
func (p ErrorPolicy) String() string {
	if p == AutoDisable {
		return "auto-disable"
	}
	return "fail-fast"
}

// ParseErrorPolicy maps "auto-disable" to AutoDisable; anything else is FailFast.
func ParseErrorPolicy(value string) ErrorPolicy {
	if strings.TrimSpace(value) == "auto-disable" {
		return AutoDisable
	}
	return FailFast
}

// aborts reports whether an unresolved requirement of a module with the given
// criticality aborts under the given policy.
func (c Criticality) aborts(policy ErrorPolicy) bool {
	switch c {
	case Critical:
		return true
	case Important:
		return policy == FailFast
	default:
		return false
	}
}

// Descriptor is the static metadata of a module type.
type Descriptor struct {
	TypeID       string
	Version      string
	Dependencies []string
	Criticality  Criticality
	// Library is the external component path as written in the descriptor.
	Library string
	// Dir is the directory the descriptor was loaded from.
	Dir string
}

// descriptorFile mirrors the on-disk layout of manifest.toml.
type descriptorFile struct {
	ID           string   `toml:"id"`
	Version      string   `toml:"version"`
	Dependencies []string `toml:"dependencies"`
	Criticality  string   `toml:"criticality"`
	Library      string   `toml:"library"`
}

// LoadDescriptor parses a descriptor file.
func LoadDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to read descriptor: %w", err)
	}
	var raw descriptorFile
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return Descriptor{}, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
	}
	return Descriptor{
		TypeID:       strings.TrimSpace(raw.ID),
		Version:      raw.Version,
		Dependencies: raw.Dependencies,
		Criticality:  ParseCriticality(raw.Criticality),
		Library:      raw.Library,
	}, nil
}

// InstanceConfig configures one module instance.
type InstanceConfig struct {
	TypeID     string            `toml:"type" yaml:"type" json:"type"`
	InstanceID string            `toml:"id" yaml:"id" json:"id"`
	Enabled    *bool             `toml:"enable" yaml:"enable" json:"enable"`
	Params     map[string]string `toml:"params" yaml:"params" json:"params"`
}

// IsEnabled reports whether the entry is enabled. Entries are enabled unless
// they say otherwise.
func (c InstanceConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ID returns the instance identifier, defaulting to DefaultInstanceID.
func (c InstanceConfig) ID() string {
	if c.InstanceID == "" {
		return DefaultInstanceID
	}
	return c.InstanceID
}

// Param returns the named parameter and whether it was set.
func (c InstanceConfig) Param(key string) (string, bool) {
	v, ok := c.Params[key]
	return v, ok
}

// Enabled is a helper for building InstanceConfig literals.
func Enabled(v bool) *bool { return &v }
