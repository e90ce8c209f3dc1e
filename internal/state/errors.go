package state

import "errors"

var (
	// ErrCorruptState indicates a state record could not be decoded. The
	// accompanying value is a fresh default.
	ErrCorruptState = errors.New("corrupt state record")

	// ErrEmptyKey indicates an empty cache key or metric name.
	ErrEmptyKey = errors.New("empty key")
)
