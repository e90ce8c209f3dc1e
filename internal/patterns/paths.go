package patterns

import (
	"path"
	"path/filepath"
	"strings"
)

// manifestNames are build and configuration manifests whose modification
// signals a structural project change.
var manifestNames = []string{
	"package.json",
	"tsconfig.json",
	"webpack.config.js",
	".eslintrc",
	"Cargo.toml",
	"go.mod",
	"requirements.txt",
	"pom.xml",
	"pyproject.toml",
	"build.gradle",
	"Gemfile",
	"composer.json",
}

// IsManifest reports whether p names a recognized project manifest.
func IsManifest(p string) bool {
	base := path.Base(filepath.ToSlash(p))
	for _, name := range manifestNames {
		if base == name {
			return true
		}
		// .eslintrc.js, .eslintrc.json, ...
		if name == ".eslintrc" && strings.HasPrefix(base, name+".") {
			return true
		}
	}
	return false
}

// MatchExclude reports the first exclude pattern that p matches.
//
// Patterns come in four shapes, checked in this order:
//   - globs (contain *, ? or [) match the whole path or its trailing components
//   - directories (end with /) match a path prefix or any path segment
//   - extensions (start with .) match the path suffix
//   - bare names match the base name or a trailing path
func MatchExclude(p string, patterns []string) (string, bool) {
	if p == "" {
		return "", false
	}
	clean := path.Clean(filepath.ToSlash(p))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if matchExclude(clean, pattern) {
			return pattern, true
		}
	}
	return "", false
}

// ValidExcludePattern reports whether pattern is well formed.
func ValidExcludePattern(pattern string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return true
	}
	_, err := path.Match(strings.TrimPrefix(pattern, "/"), "x")
	return err == nil
}

func matchExclude(clean, pattern string) bool {
	switch {
	case strings.ContainsAny(pattern, "*?["):
		return matchGlob(clean, pattern)
	case strings.HasSuffix(pattern, "/"):
		dir := strings.Trim(pattern, "/")
		if dir == "" {
			return false
		}
		return clean == dir ||
			strings.HasPrefix(clean, dir+"/") ||
			strings.Contains(clean, "/"+dir+"/")
	case strings.HasPrefix(pattern, "."):
		return strings.HasSuffix(clean, pattern)
	default:
		return clean == pattern ||
			path.Base(clean) == pattern ||
			strings.HasSuffix(clean, "/"+strings.TrimPrefix(pattern, "/"))
	}
}

func matchGlob(clean, pattern string) bool {
	pattern = strings.TrimPrefix(pattern, "/")
	for strings.HasPrefix(pattern, "**/") {
		pattern = strings.TrimPrefix(pattern, "**/")
	}
	if ok, _ := path.Match(pattern, clean); ok {
		return true
	}

	want := strings.Count(pattern, "/") + 1
	parts := strings.Split(clean, "/")
	if len(parts) < want {
		return false
	}
	tail := strings.Join(parts[len(parts)-want:], "/")
	ok, _ := path.Match(pattern, tail)
	return ok
}
