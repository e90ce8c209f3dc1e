// Package ignore reads gitignore-style files listing paths that bypass
// assumption verification.
package ignore

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Parser reads and parses gitignore-style files.
type Parser struct {
	// IgnoreFiles is the list of ignore file names to look for.
	IgnoreFiles []string
}

// NewParser creates a new ignore file parser.
func NewParser(ignoreFiles ...string) *Parser {
	return &Parser{IgnoreFiles: ignoreFiles}
}

// ParseProject reads every ignore file present in the project root and
// returns the combined exclude patterns. Missing files contribute nothing.
func (p *Parser) ParseProject(projectRoot string) ([]string, error) {
	var patterns []string
	for _, ignoreFile := range p.IgnoreFiles {
		if ignoreFile == "" {
			continue
		}
		path := ignoreFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(projectRoot, ignoreFile)
		}
		filePatterns, err := parseFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		patterns = append(patterns, filePatterns...)
	}
	return deduplicate(patterns), nil
}

// parseFile reads a single gitignore-style file and returns patterns.
func parseFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		patterns = append(patterns, parseLine(scanner.Text())...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}

// parseLine converts one gitignore line into exclude patterns. Comments,
// blank lines and negations (unsupported) yield nothing.
func parseLine(line string) []string {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return nil
	}
	line = strings.TrimPrefix(line, "/")

	// "x/**" is a directory
	if strings.HasSuffix(line, "/**") {
		line = strings.TrimSuffix(line, "**")
	}
	line = strings.TrimPrefix(line, "**/")
	if line == "" || line == "/" {
		return nil
	}

	switch {
	case strings.ContainsAny(line, "*?["):
		return []string{line}
	case strings.HasSuffix(line, "/"):
		return []string{line}
	case !strings.Contains(filepath.Base(line), "."):
		// Could name a file or a directory.
		return []string{line, line + "/"}
	default:
		return []string{line}
	}
}

// deduplicate removes duplicate patterns while preserving order.
func deduplicate(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	return result
}
