// Package secrets detects credentials in text using the gitleaks rule set.
//
// The decision engine scans mutation payloads before they reach disk, and
// the prompt hook redacts credentials before a prompt is persisted in the
// session record. Findings carry rule IDs and line numbers only; matched
// values are never retained.
//
// Allowlists follow the gitleaks TOML format: the project's .gitleaks.toml
// is merged with an optional user file.
package secrets
