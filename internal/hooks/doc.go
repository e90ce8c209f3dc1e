// Package hooks implements the agent hook protocol.
//
// The agent runs a hook command for PreToolUse, PostToolUse,
// UserPromptSubmit and Stop events, writing one JSON request to stdin and
// reading one JSON decision from stdout. The process always exits 0; a
// failure inside a handler becomes an approve decision.
package hooks
