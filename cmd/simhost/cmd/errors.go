package cmd

import "errors"

var (
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrConfigRequired   = errors.New("--config is required")
)
