//go:build !unix

package state

import "os"

// Platforms without flock rely on atomic rename alone.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
