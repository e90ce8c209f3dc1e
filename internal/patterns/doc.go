// Package patterns classifies text against declarative rule tables.
//
// Rules are data: each entry pairs a compiled regular expression with a
// category (library usage, API integration, nesting, ...). Callers ask a
// RuleSet which categories a payload triggers and never embed matching
// logic of their own. The package also carries the small text heuristics
// shared by the decision engine and the sub-agent invoker: exclude-path
// matching, project manifest detection, shell command tokens and the
// complexity detectors.
//
// Everything here is pure. No I/O, no global mutable state.
package patterns
