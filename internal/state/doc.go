// Package state persists hook state between invocations.
//
// Each hook invocation is a separate process, so everything that must
// survive between events lives in three JSON records under the state
// directory:
//
//	session.json  verification, modification and commit history
//	cache.json    verification results keyed by "tool:path", with expiry
//	metrics.json  named numeric series, capped at 100 points each
//
// Every load-mutate-save cycle holds an exclusive lock on <dir>/.lock and
// writes through a temp file, fsync and rename, so concurrent hook
// processes never lose appends or observe torn files.
//
// Loads never fail hard: a missing record yields a fresh default, a corrupt
// one yields a fresh default together with ErrCorruptState. Saves return
// their errors.
package state
