package simhost

import (
	"fmt"
	"path/filepath"

	"github.com/GoCodeAlone/simhost/feeders"
)

// EnvPrefix prefixes every environment override of AppConfig.
const EnvPrefix = "SIMHOST"

// DefaultMaxTicks is the tick budget used when none is configured.
const DefaultMaxTicks = 1000

// AppConfig is the read-only application configuration shared with modules.
type AppConfig struct {
	Mode         string           `toml:"mode" yaml:"mode" json:"mode" env:"MODE"`
	ErrorPolicy  string           `toml:"error_policy" yaml:"error_policy" json:"error_policy" env:"ERROR_POLICY"`
	ModulesDir   string           `toml:"modules_dir" yaml:"modules_dir" json:"modules_dir" env:"MODULES_DIR"`
	ScenarioPath string           `toml:"scenario_path" yaml:"scenario_path" json:"scenario_path" env:"SCENARIO_PATH"`
	OutputDir    string           `toml:"output_dir" yaml:"output_dir" json:"output_dir" env:"OUTPUT_DIR"`
	Dt           float64          `toml:"dt" yaml:"dt" json:"dt" env:"DT"`
	MaxTicks     int              `toml:"max_ticks" yaml:"max_ticks" json:"max_ticks" env:"MAX_TICKS"`
	Instances    []InstanceConfig `toml:"instances" yaml:"instances" json:"instances"`
}

// DefaultAppConfig returns the configuration used for unset fields.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Mode:        "headless",
		ErrorPolicy: FailFast.String(),
		ModulesDir:  "modules",
		OutputDir:   "output",
		Dt:          1.0,
	}
}

// Policy returns the parsed error policy.
func (c AppConfig) Policy() ErrorPolicy {
	return ParseErrorPolicy(c.ErrorPolicy)
}

// TickBudget returns MaxTicks, or DefaultMaxTicks when it is not positive.
func (c AppConfig) TickBudget() int {
	if c.MaxTicks <= 0 {
		return DefaultMaxTicks
	}
	return c.MaxTicks
}

// LoadAppConfig reads the config file at path, applies SIMHOST_* environment
// overrides and any extra feeders, then resolves relative directories
// against the config file's directory. Instances without a type are dropped.
func LoadAppConfig(path string, extra ...feeders.Feeder) (AppConfig, error) {
	cfg := DefaultAppConfig()

	file, err := feeders.ForFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrUnsupportedFile, err)
	}
	chain := append([]feeders.Feeder{file, feeders.NewEnvFeeder(EnvPrefix)}, extra...)
	if err := feeders.FeedAll(&cfg, chain...); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	instances := cfg.Instances[:0]
	for _, inst := range cfg.Instances {
		if inst.TypeID == "" {
			continue
		}
		if inst.InstanceID == "" {
			inst.InstanceID = DefaultInstanceID
		}
		instances = append(instances, inst)
	}
	cfg.Instances = instances

	if dir := filepath.Dir(path); dir != "" {
		cfg.ModulesDir = resolveRelative(dir, cfg.ModulesDir)
		cfg.ScenarioPath = resolveRelative(dir, cfg.ScenarioPath)
		cfg.OutputDir = resolveRelative(dir, cfg.OutputDir)
	}
	return cfg, nil
}

func resolveRelative(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
