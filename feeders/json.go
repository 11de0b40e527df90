package feeders

import (
	"encoding/json"
	"fmt"
	"os"
)

// JSONFeeder is a feeder that reads JSON files
type JSONFeeder struct {
	Path string
}

// NewJSONFeeder creates a JSONFeeder for the given file.
func NewJSONFeeder(filePath string) JSONFeeder {
	return JSONFeeder{Path: filePath}
}

// Feed decodes the file into target.
func (j JSONFeeder) Feed(target interface{}) error {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse JSON %s: %w", j.Path, err)
	}
	return nil
}
