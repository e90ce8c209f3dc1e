package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// ProjectAllowlistFile is read from the project root when present.
const ProjectAllowlistFile = ".gitleaks.toml"

// Allowlist holds path and content patterns excluded from scanning.
type Allowlist struct {
	Paths   []*regexp.Regexp
	Regexes []*regexp.Regexp
}

type allowlistFile struct {
	Allowlist struct {
		Paths   []string `toml:"paths"`
		Regexes []string `toml:"regexes"`
	} `toml:"allowlist"`
}

// LoadAllowlists merges the project .gitleaks.toml with a user allowlist.
// Missing files are skipped; invalid TOML or patterns are errors.
func LoadAllowlists(projectDir, userPath string) (*Allowlist, error) {
	merged := &Allowlist{}

	var files []string
	if projectDir != "" {
		files = append(files, filepath.Join(projectDir, ProjectAllowlistFile))
	}
	if userPath != "" {
		files = append(files, userPath)
	}

	for _, path := range files {
		al, err := loadTOML(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		merged.Paths = append(merged.Paths, al.Paths...)
		merged.Regexes = append(merged.Regexes, al.Regexes...)
	}

	return merged, nil
}

// loadTOML loads and compiles a single allowlist file.
func loadTOML(path string) (*Allowlist, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var raw allowlistFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	al := &Allowlist{}
	for _, p := range raw.Allowlist.Paths {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid path pattern '%s' in %s: %v", ErrInvalidRegex, p, path, err)
		}
		al.Paths = append(al.Paths, re)
	}
	for _, p := range raw.Allowlist.Regexes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid content pattern '%s' in %s: %v", ErrInvalidRegex, p, path, err)
		}
		al.Regexes = append(al.Regexes, re)
	}
	return al, nil
}

// PathAllowed reports whether path matches an allowlisted path pattern.
func (a *Allowlist) PathAllowed(path string) bool {
	if a == nil {
		return false
	}
	for _, re := range a.Paths {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// ContentAllowed reports whether a matched secret is allowlisted.
func (a *Allowlist) ContentAllowed(match string) bool {
	if a == nil {
		return false
	}
	for _, re := range a.Regexes {
		if re.MatchString(match) {
			return true
		}
	}
	return false
}
