package patterns

import (
	"errors"
	"fmt"
	"regexp"
)

// Category groups rules that answer the same question about a payload.
type Category string

const (
	// CategoryLibraryUsage matches import/include/require style statements.
	CategoryLibraryUsage Category = "library_usage"

	// CategoryAPIIntegration matches network and HTTP call sites.
	CategoryAPIIntegration Category = "api_integration"

	// CategoryNesting matches nested control flow.
	CategoryNesting Category = "nesting"
)

// ErrInvalidRule indicates a rule could not be compiled.
var ErrInvalidRule = errors.New("invalid pattern rule")

// Rule is a single declarative classification entry.
type Rule struct {
	Name     string
	Category Category
	Pattern  *regexp.Regexp
}

// Match records which rule fired and the text it matched.
type Match struct {
	Rule     string
	Category Category
	Text     string
}

// Compile builds a Rule from its textual form.
func Compile(name string, category Category, expr string) (Rule, error) {
	if name == "" || category == "" {
		return Rule{}, fmt.Errorf("%w: name and category are required", ErrInvalidRule)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %s: %v", ErrInvalidRule, name, err)
	}
	return Rule{Name: name, Category: category, Pattern: re}, nil
}

func mustRule(name string, category Category, expr string) Rule {
	r, err := Compile(name, category, expr)
	if err != nil {
		panic(err)
	}
	return r
}

var libraryUsageRules = []Rule{
	mustRule("python-java-import", CategoryLibraryUsage, `\bimport\s+[\w\.\*]+`),
	mustRule("go-import", CategoryLibraryUsage, `\bimport\s+(\(|"[\w\./\-]+")`),
	mustRule("python-from-import", CategoryLibraryUsage, `\bfrom\s+[\w\.]+\s+import`),
	mustRule("node-require", CategoryLibraryUsage, `\brequire\(['"][\w\-/]+['"]\)`),
	mustRule("rust-perl-use", CategoryLibraryUsage, `\buse\s+[\w:]+`),
	mustRule("c-include", CategoryLibraryUsage, `#include\s+[<"][\w/\.]+[>"]`),
}

var apiIntegrationRules = []Rule{
	mustRule("fetch-call", CategoryAPIIntegration, `(?i)fetch\(`),
	mustRule("axios", CategoryAPIIntegration, `(?i)axios\.`),
	mustRule("http-client", CategoryAPIIntegration, `(?i)http\.`),
	mustRule("request-call", CategoryAPIIntegration, `(?i)request\(`),
	mustRule("api-object", CategoryAPIIntegration, `(?i)api\.`),
	mustRule("endpoint", CategoryAPIIntegration, `(?i)endpoint`),
}

var nestingRules = []Rule{
	mustRule("nested-if", CategoryNesting, `if.*:\s*if`),
	mustRule("nested-for", CategoryNesting, `for.*:\s*for`),
	mustRule("nested-while", CategoryNesting, `while.*:\s*while`),
	mustRule("triple-braces", CategoryNesting, `\{[^}]*\{[^}]*\{`),
}

// RuleSet is an ordered table of rules.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet returns a RuleSet holding the given rules in order.
func NewRuleSet(rules ...Rule) *RuleSet {
	rs := &RuleSet{rules: make([]Rule, 0, len(rules))}
	rs.rules = append(rs.rules, rules...)
	return rs
}

// DefaultRuleSet returns the built-in verification and nesting rules.
func DefaultRuleSet() *RuleSet {
	rs := NewRuleSet(libraryUsageRules...)
	rs.Add(apiIntegrationRules...)
	rs.Add(nestingRules...)
	return rs
}

// Add appends rules to the table.
func (rs *RuleSet) Add(rules ...Rule) {
	rs.rules = append(rs.rules, rules...)
}

// Rules returns a copy of the rule table.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Match returns every rule in the given categories that matches text.
// With no categories, all rules are considered.
func (rs *RuleSet) Match(text string, categories ...Category) []Match {
	if text == "" {
		return nil
	}
	var matches []Match
	for _, r := range rs.rules {
		if !inCategories(r.Category, categories) {
			continue
		}
		if loc := r.Pattern.FindStringIndex(text); loc != nil {
			matches = append(matches, Match{
				Rule:     r.Name,
				Category: r.Category,
				Text:     text[loc[0]:loc[1]],
			})
		}
	}
	return matches
}

// First returns the first matching rule in table order.
func (rs *RuleSet) First(text string, categories ...Category) (Match, bool) {
	if text == "" {
		return Match{}, false
	}
	for _, r := range rs.rules {
		if !inCategories(r.Category, categories) {
			continue
		}
		if loc := r.Pattern.FindStringIndex(text); loc != nil {
			return Match{Rule: r.Name, Category: r.Category, Text: text[loc[0]:loc[1]]}, true
		}
	}
	return Match{}, false
}

func inCategories(c Category, categories []Category) bool {
	if len(categories) == 0 {
		return true
	}
	for _, want := range categories {
		if c == want {
			return true
		}
	}
	return false
}
