package patterns

import (
	"regexp"
	"strings"
)

const (
	// MaxFunctionLines is the longest function body tolerated before the
	// change is considered complex.
	MaxFunctionLines = 50

	// MaxDecisionPoints is the number of branching keywords tolerated in a
	// single change.
	MaxDecisionPoints = 10
)

var (
	decisionPoint      = regexp.MustCompile(`\b(if|elif|while|for|except|case)\b`)
	functionIntroducer = regexp.MustCompile(`^(def |function |func |fn |const \w+ = \()`)
)

// ComplexityReport summarizes the complexity signals found in a code change.
type ComplexityReport struct {
	Nesting        []Match
	LongestFunc    int
	DecisionPoints int
}

// High reports whether any signal crosses its limit.
func (r ComplexityReport) High() bool {
	return len(r.Nesting) > 0 ||
		r.LongestFunc > MaxFunctionLines ||
		r.DecisionPoints > MaxDecisionPoints
}

// AnalyzeComplexity runs every complexity detector over code.
func AnalyzeComplexity(code string) ComplexityReport {
	return ComplexityReport{
		Nesting:        NewRuleSet(nestingRules...).Match(code, CategoryNesting),
		LongestFunc:    LongestFunction(code),
		DecisionPoints: CountDecisionPoints(code),
	}
}

// CountDecisionPoints counts branching keywords in code.
func CountDecisionPoints(code string) int {
	return len(decisionPoint.FindAllStringIndex(code, -1))
}

// LongestFunction estimates the line count of the longest function in code.
//
// Counting starts at a function-introducer line and stops once a non-blank
// line returns to the introducer's indentation or less. Closing brackets at
// that indentation still belong to the body.
func LongestFunction(code string) int {
	longest, current := 0, 0
	inFunction := false
	indent := 0

	for _, line := range strings.Split(code, "\n") {
		stripped := strings.TrimLeft(line, " \t\r\f\v")

		if functionIntroducer.MatchString(stripped) {
			if inFunction && current > longest {
				longest = current
			}
			inFunction = true
			current = 1
			indent = len(line) - len(stripped)
			continue
		}
		if !inFunction {
			continue
		}

		lineIndent := indent
		if stripped != "" {
			lineIndent = len(line) - len(stripped)
		}
		trimmed := strings.TrimSpace(line)
		closing := strings.HasPrefix(trimmed, ")") || strings.HasPrefix(trimmed, "}")
		if stripped != "" && lineIndent <= indent && !closing {
			if current > longest {
				longest = current
			}
			inFunction = false
			current = 0
			continue
		}
		current++
	}

	if inFunction && current > longest {
		longest = current
	}
	return longest
}
