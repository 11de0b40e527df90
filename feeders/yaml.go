package feeders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YamlFeeder is a feeder that reads YAML files
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder creates a new YamlFeeder that reads from the specified YAML file
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{Path: filePath}
}

// Feed decodes the file into target.
func (y YamlFeeder) Feed(target interface{}) error {
	data, err := os.ReadFile(y.Path)
	if err != nil {
		return fmt.Errorf("failed to read YAML: %w", err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse YAML %s: %w", y.Path, err)
	}
	return nil
}
