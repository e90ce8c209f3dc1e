package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimizer_Rewrite(t *testing.T) {
	o := NewOptimizer(map[string]string{"grep": "rg", "find": "fd", "cat": "bat"}, lookPathFor("rg", "fd", "bat"))

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"recursive grep", `grep -rn "TODO" .`, `rg -n "TODO" .`},
		{"only recursive flag", `grep -r pattern src/`, `rg pattern src/`},
		{"extended regex dropped", `grep -rE "a|b" .`, `rg "a|b" .`},
		{"no filename flag", `grep -rh foo .`, `rg -I foo .`},
		{"flag with argument kept", `grep -rA3 foo .`, `rg -A3 foo .`},
		{"include becomes glob", `grep -rn "def " --include="*.py" .`, `rg -n "def " -g '*.py' .`},
		{"long recursive flag", `grep --recursive -i foo`, `rg -i foo`},
		{"grep in pipeline", `ps aux | grep -i nginx`, `ps aux | rg -i nginx`},
		{"grep as argument untouched", `echo grep`, `echo grep`},
		{"env assignment prefix", `LC_ALL=C grep -r x .`, `LC_ALL=C rg x .`},
		{"egrep untouched", `egrep foo file`, `egrep foo file`},
		{"quoted separator", `grep -r "a;b" . && echo done`, `rg "a;b" . && echo done`},
		{"flags after pattern", `grep "TODO" -rn .`, `rg "TODO" -n .`},
		{"recursive flag after pattern", `grep foo -r src/`, `rg foo src/`},
		{"unsupported long flag untouched", `grep -rn --exclude-dir=node_modules TODO .`, `grep -rn --exclude-dir=node_modules TODO .`},
		{"unsupported short flag untouched", `grep -rL foo .`, `grep -rL foo .`},
		{"binary skip flag untouched", `grep -rI foo .`, `grep -rI foo .`},
		{"pattern flag before recursive", `grep -e foo -r .`, `rg -e foo .`},
		{"pattern flag value kept", `grep -e -r x .`, `rg -e -r x .`},
		{"long flag with value", `grep --max-count=2 -r foo .`, `rg --max-count=2 foo .`},
		{"double dash ends options", `grep -r -- -r .`, `rg -- -r .`},
		{"no filename long flag", `grep --no-filename -r foo .`, `rg -I foo .`},
		{"find by name", `find . -name "*.go"`, `fd -g "*.go"`},
		{"find by type and name", `find . -type f -name "*.md"`, `fd -t f -g "*.md"`},
		{"find case insensitive", `find . -iname 'readme*'`, `fd -i -g 'readme*'`},
		{"find with exec untouched", `find . -name "*.go" -exec rm {} \;`, `find . -name "*.go" -exec rm {} \;`},
		{"find elsewhere untouched", `find /tmp -name x`, `find /tmp -name x`},
		{"find then more", `find . -name "*.go" | wc -l`, `fd -g "*.go" | wc -l`},
		{"generic token", `cat main.go | head`, `bat main.go | head`},
		{"generic substring untouched", `concatenate main.go`, `concatenate main.go`},
		{"nothing to do", `ls -la`, `ls -la`},
		{"empty", ``, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := o.Rewrite(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, o.Rewrite(got), "rewrite is idempotent")
		})
	}
}

func TestOptimizer_ToolNotInstalled(t *testing.T) {
	o := NewOptimizer(map[string]string{"grep": "rg", "find": "fd"}, lookPathFor("fd"))

	assert.Equal(t, `grep -rn x .`, o.Rewrite(`grep -rn x .`))
	assert.Equal(t, `fd -g "*.go"`, o.Rewrite(`find . -name "*.go"`))
}

func TestSegmentsAndWords(t *testing.T) {
	cmd := `a "x|y" | b 'c;d'; e && f`
	var got []string
	for _, sg := range segments(cmd) {
		got = append(got, cmd[sg[0]:sg[1]])
	}
	assert.Equal(t, []string{`a "x|y" `, ` b 'c;d'`, ` e `, ``, ` f`}, got)

	assert.Equal(t, []string{`grep`, `-n`, `"a b"`, `x\ y`}, words(`grep  -n "a b" x\ y`))
}
