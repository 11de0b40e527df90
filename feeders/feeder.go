// Package feeders provides configuration feeders that populate a config
// struct from TOML, YAML or JSON files and from environment variables.
package feeders

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Feeder populates target, which must be a pointer to a struct.
type Feeder interface {
	Feed(target interface{}) error
}

// ForFile returns the file feeder matching the extension of path.
func ForFile(path string) (Feeder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return NewTomlFeeder(path), nil
	case ".yaml", ".yml":
		return NewYamlFeeder(path), nil
	case ".json":
		return NewJSONFeeder(path), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// FeedAll applies feeders in order; later feeders override earlier ones.
func FeedAll(target interface{}, feeders ...Feeder) error {
	for _, f := range feeders {
		if err := f.Feed(target); err != nil {
			return err
		}
	}
	return nil
}
