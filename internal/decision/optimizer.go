package decision

import (
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/hookguard/internal/patterns"
)

// LookPathFunc reports where an executable is installed.
type LookPathFunc func(file string) (string, error)

// Optimizer rewrites shell commands from legacy tools to modern ones.
type Optimizer struct {
	replacements map[string]string
	keys         []string
	lookPath     LookPathFunc
}

// NewOptimizer creates an optimizer. A nil lookPath uses exec.LookPath.
func NewOptimizer(replacements map[string]string, lookPath LookPathFunc) *Optimizer {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	keys := make([]string, 0, len(replacements))
	for k := range replacements {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Optimizer{replacements: replacements, keys: keys, lookPath: lookPath}
}

// Rewrite applies every mapping whose legacy tool appears in command and
// whose modern tool is installed. Mappings apply in sorted key order.
// Rewrite(Rewrite(c)) == Rewrite(c).
func (o *Optimizer) Rewrite(command string) string {
	if strings.TrimSpace(command) == "" {
		return command
	}
	out := command
	for _, legacy := range o.keys {
		modern := o.replacements[legacy]
		if !patterns.HasToken(out, legacy) {
			continue
		}
		if _, err := o.lookPath(modern); err != nil {
			continue
		}
		switch {
		case legacy == "grep" && modern == "rg":
			out = rewriteSegments(out, grepToRg)
		case legacy == "find" && modern == "fd":
			out = rewriteSegments(out, findToFd)
		default:
			out = patterns.ReplaceToken(out, legacy, modern)
		}
	}
	return out
}

// rewriteSegments applies fn to the words of every simple command in cmd.
// Untouched segments keep their exact text.
func rewriteSegments(cmd string, fn func(words []string) ([]string, bool)) string {
	var b strings.Builder
	last := 0
	for _, sg := range segments(cmd) {
		text := cmd[sg[0]:sg[1]]
		rewritten, ok := fn(words(text))
		if !ok {
			continue
		}
		trimmed := strings.TrimLeft(text, " \t")
		lead := text[:len(text)-len(trimmed)]
		trail := trimmed[len(strings.TrimRight(trimmed, " \t")):]

		b.WriteString(cmd[last:sg[0]])
		b.WriteString(lead)
		b.WriteString(strings.Join(rewritten, " "))
		b.WriteString(trail)
		last = sg[1]
	}
	b.WriteString(cmd[last:])
	return b.String()
}

// segments splits cmd at unquoted ; & | and newlines, returning the byte
// range of each piece.
func segments(cmd string) [][2]int {
	var out [][2]int
	start := 0
	var quote byte
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		switch {
		case quote != 0:
			if c == '\\' && quote == '"' && i+1 < len(cmd) {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
		case c == '\\' && i+1 < len(cmd):
			i++
		case c == '\'' || c == '"':
			quote = c
		case c == ';' || c == '&' || c == '|' || c == '\n':
			out = append(out, [2]int{start, i})
			start = i + 1
		}
	}
	return append(out, [2]int{start, len(cmd)})
}

// words splits a simple command on unquoted blanks. Quotes stay in the
// words so they can be re-joined verbatim.
func words(s string) []string {
	var (
		out   []string
		b     strings.Builder
		quote byte
	)
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			b.WriteByte(c)
			if c == '\\' && quote == '"' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
				continue
			}
			if c == quote {
				quote = 0
			}
		case c == '\\' && i+1 < len(s):
			b.WriteByte(c)
			i++
			b.WriteByte(s[i])
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == ' ' || c == '\t':
			flush()
		default:
			b.WriteByte(c)
		}
	}
	flush()
	return out
}

var envAssignment = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

// commandIndex returns the index of the command word, skipping leading
// VAR=value assignments.
func commandIndex(ws []string) int {
	for i, w := range ws {
		if !envAssignment.MatchString(w) {
			return i
		}
	}
	return -1
}

var includeFlag = regexp.MustCompile(`^--include=["']?\*\.(\w+)["']?$`)

// grepShortFlags maps grep short options to their rg spelling. An empty
// value drops the option: rg searches recursively and uses extended
// regular expressions by default. Options missing here mean something
// else to rg (-I, -L, -s, -z) or do not exist there, and stop the rewrite.
var grepShortFlags = map[byte]string{
	'r': "", 'R': "", 'E': "",
	'n': "n", 'i': "i", 'v': "v", 'w': "w", 'x': "x", 'c': "c",
	'l': "l", 'o': "o", 'q': "q", 'F': "F", 'H': "H", 'a': "a", 'P': "P",
	'h': "I",
}

// grep short options that take an argument, with the same meaning in rg.
const grepArgFlags = "ABCefm"

// grepLongFlag is the rg form of a grep long option.
type grepLongFlag struct {
	rg  string
	arg bool
}

var grepLongFlags = map[string]grepLongFlag{
	"--recursive":             {},
	"--dereference-recursive": {},
	"--extended-regexp":       {},
	"--no-filename":           {rg: "-I"},
	"--line-number":           {rg: "--line-number"},
	"--ignore-case":           {rg: "--ignore-case"},
	"--invert-match":          {rg: "--invert-match"},
	"--word-regexp":           {rg: "--word-regexp"},
	"--line-regexp":           {rg: "--line-regexp"},
	"--count":                 {rg: "--count"},
	"--files-with-matches":    {rg: "--files-with-matches"},
	"--only-matching":         {rg: "--only-matching"},
	"--quiet":                 {rg: "--quiet"},
	"--fixed-strings":         {rg: "--fixed-strings"},
	"--with-filename":         {rg: "--with-filename"},
	"--text":                  {rg: "--text"},
	"--perl-regexp":           {rg: "--pcre2"},
	"--after-context":         {rg: "--after-context", arg: true},
	"--before-context":        {rg: "--before-context", arg: true},
	"--context":               {rg: "--context", arg: true},
	"--max-count":             {rg: "--max-count", arg: true},
	"--regexp":                {rg: "--regexp", arg: true},
	"--file":                  {rg: "--file", arg: true},
}

// grepToRg rewrites `grep ...` to `rg ...`. grep accepts options anywhere
// before `--`, so every word is checked. Any option without a known rg
// equivalent leaves the command untouched.
func grepToRg(ws []string) ([]string, bool) {
	i := commandIndex(ws)
	if i < 0 || ws[i] != "grep" {
		return nil, false
	}

	out := append([]string{}, ws[:i]...)
	out = append(out, "rg")
	args := ws[i+1:]
	for j := 0; j < len(args); j++ {
		w := args[j]
		switch {
		case w == "--":
			return append(out, args[j:]...), true
		case includeFlag.MatchString(w):
			m := includeFlag.FindStringSubmatch(w)
			out = append(out, "-g", "'*."+m[1]+"'")
		case strings.HasPrefix(w, "--"):
			name, value, hasValue := strings.Cut(w, "=")
			flag, ok := grepLongFlags[name]
			if !ok || (hasValue && !flag.arg) {
				return nil, false
			}
			switch {
			case flag.rg == "":
			case !flag.arg:
				out = append(out, flag.rg)
			case hasValue:
				out = append(out, flag.rg+"="+value)
			case j+1 < len(args):
				j++
				out = append(out, flag.rg, args[j])
			default:
				return nil, false
			}
		case len(w) > 1 && w[0] == '-':
			cluster, needsValue, ok := rewriteGrepCluster(w[1:])
			if !ok {
				return nil, false
			}
			if cluster != "" {
				out = append(out, "-"+cluster)
			}
			if needsValue {
				if j+1 >= len(args) {
					return nil, false
				}
				j++
				out = append(out, args[j])
			}
		default:
			out = append(out, w)
		}
	}
	return out, true
}

// rewriteGrepCluster translates a cluster of short options. needsValue
// reports that the last option takes the next word as its argument.
func rewriteGrepCluster(cluster string) (rewritten string, needsValue, ok bool) {
	var b strings.Builder
	for i := 0; i < len(cluster); i++ {
		c := cluster[i]
		if strings.IndexByte(grepArgFlags, c) >= 0 {
			b.WriteString(cluster[i:])
			return b.String(), i == len(cluster)-1, true
		}
		repl, known := grepShortFlags[c]
		if !known {
			return "", false, false
		}
		b.WriteString(repl)
	}
	return b.String(), false, true
}

// findToFd rewrites `find . [-type f|d] -name|-iname PAT` to fd. Anything
// else in the segment leaves it untouched.
func findToFd(ws []string) ([]string, bool) {
	i := commandIndex(ws)
	if i < 0 || ws[i] != "find" {
		return nil, false
	}
	rest := ws[i+1:]
	if len(rest) < 3 || rest[0] != "." {
		return nil, false
	}
	rest = rest[1:]

	out := append([]string{}, ws[:i]...)
	out = append(out, "fd")
	if len(rest) == 4 && rest[0] == "-type" {
		if rest[1] != "f" && rest[1] != "d" {
			return nil, false
		}
		out = append(out, "-t", rest[1])
		rest = rest[2:]
	}
	if len(rest) != 2 {
		return nil, false
	}
	switch rest[0] {
	case "-name":
	case "-iname":
		out = append(out, "-i")
	default:
		return nil, false
	}
	return append(out, "-g", rest[1]), true
}
