package secrets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// RedactionString replaces each redacted credential.
const RedactionString = "[REDACTED]"

// Finding is a detected credential. The matched value itself is never kept.
type Finding struct {
	RuleID      string
	Description string
	Line        int
}

// Scanner wraps a gitleaks detector built once per process.
type Scanner struct {
	detector  *detect.Detector
	allowlist *Allowlist
}

// NewScanner builds a scanner with the default gitleaks rules. allowlist may
// be nil.
func NewScanner(allowlist *Allowlist) (*Scanner, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create gitleaks detector: %w", err)
	}
	return &Scanner{detector: detector, allowlist: allowlist}, nil
}

// Scan returns findings in content destined for path. Allowlisted paths
// are not scanned; allowlisted matches are dropped.
func (s *Scanner) Scan(path, content string) []Finding {
	if content == "" || s.allowlist.PathAllowed(path) {
		return nil
	}

	var out []Finding
	for _, f := range s.detector.DetectString(content) {
		if s.allowlist.ContentAllowed(f.Secret) || s.allowlist.ContentAllowed(f.Match) {
			continue
		}
		out = append(out, Finding{
			RuleID:      f.RuleID,
			Description: f.Description,
			Line:        f.StartLine,
		})
	}
	return out
}

// Redact replaces every non-allowlisted credential in content with
// RedactionString and returns the result with the findings.
func (s *Scanner) Redact(content string) (string, []Finding) {
	if content == "" {
		return content, nil
	}

	var (
		out      []Finding
		replaced []string
	)
	for _, f := range s.detector.DetectString(content) {
		if f.Secret == "" || s.allowlist.ContentAllowed(f.Secret) || s.allowlist.ContentAllowed(f.Match) {
			continue
		}
		out = append(out, Finding{RuleID: f.RuleID, Description: f.Description, Line: f.StartLine})
		replaced = append(replaced, f.Secret)
	}

	// Longest first so a secret containing another is replaced whole.
	sort.Slice(replaced, func(i, j int) bool { return len(replaced[i]) > len(replaced[j]) })
	for _, secret := range replaced {
		content = strings.ReplaceAll(content, secret, RedactionString)
	}
	return content, out
}

// RuleIDs returns the distinct rule IDs of findings, sorted.
func RuleIDs(findings []Finding) []string {
	seen := make(map[string]bool, len(findings))
	ids := make([]string, 0, len(findings))
	for _, f := range findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			ids = append(ids, f.RuleID)
		}
	}
	sort.Strings(ids)
	return ids
}
