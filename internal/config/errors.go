package config

import "errors"

// ErrInvalidConfig indicates a configuration file that could not be parsed
// or failed validation. Callers fall back to Default().
var ErrInvalidConfig = errors.New("invalid configuration")
