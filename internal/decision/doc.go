// Package decision evaluates a pending tool call against the policy.
//
// Evaluate applies three ordered checks and stops at the first block:
//
//  1. Verification gate: Write, Edit and MultiEdit payloads that introduce
//     imports, API calls or credentials are held until the agent verifies
//     its assumptions.
//  2. Quality gate: once enough files changed since the last commit, file
//     mutations are held until quality checks run.
//  3. Optimization: Bash commands using legacy tools are rewritten to their
//     modern replacements when those are installed.
//
// The engine holds no state. Counts come in through Context and the same
// inputs always produce the same Result.
package decision
