package feeders

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TomlFeeder is a feeder that reads TOML files
type TomlFeeder struct {
	Path string
}

// NewTomlFeeder creates a TomlFeeder for the given file.
func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{Path: filePath}
}

// Feed decodes the file into target.
func (t TomlFeeder) Feed(target interface{}) error {
	if _, err := toml.DecodeFile(t.Path, target); err != nil {
		return fmt.Errorf("failed to read toml %s: %w", t.Path, err)
	}
	return nil
}
