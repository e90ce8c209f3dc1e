package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchExclude(t *testing.T) {
	patterns := []string{"*.md", "node_modules/", ".lock", "docs/*.txt", "Makefile"}

	tests := []struct {
		name string
		path string
		want string
		ok   bool
	}{
		{"glob on base name", "/repo/README.md", "*.md", true},
		{"directory prefix", "node_modules/x/index.js", "node_modules/", true},
		{"directory segment in absolute path", "/home/u/repo/node_modules/x.js", "node_modules/", true},
		{"extension suffix", "/repo/yarn.lock", ".lock", true},
		{"multi component glob", "/repo/docs/notes.txt", "docs/*.txt", true},
		{"multi component glob wrong dir", "/repo/src/notes.txt", "", false},
		{"bare name", "/repo/Makefile", "Makefile", true},
		{"no match", "/repo/src/main.go", "", false},
		{"empty path", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchExclude(tt.path, patterns)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchExclude_FirstMatchWins(t *testing.T) {
	got, ok := MatchExclude("/repo/vendor/a.md", []string{"vendor/", "*.md"})
	assert.True(t, ok)
	assert.Equal(t, "vendor/", got)
}

func TestMatchExclude_DoubleStar(t *testing.T) {
	_, ok := MatchExclude("/repo/a/b/c.generated.go", []string{"**/*.generated.go"})
	assert.True(t, ok)
}

func TestValidExcludePattern(t *testing.T) {
	assert.True(t, ValidExcludePattern("*.md"))
	assert.True(t, ValidExcludePattern("vendor/"))
	assert.False(t, ValidExcludePattern("[abc"))
}

func TestIsManifest(t *testing.T) {
	assert.True(t, IsManifest("/repo/go.mod"))
	assert.True(t, IsManifest("web/package.json"))
	assert.True(t, IsManifest(".eslintrc.json"))
	assert.False(t, IsManifest("/repo/go.mod.bak"))
	assert.False(t, IsManifest("/repo/main.go"))
}
