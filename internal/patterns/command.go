package patterns

import "strings"

// HasToken reports whether tool appears as a whole token in a shell command.
func HasToken(command, tool string) bool {
	return len(tokenIndexes(command, tool)) > 0
}

// ReplaceToken replaces every whole-token occurrence of old with repl.
func ReplaceToken(command, old, repl string) string {
	idx := tokenIndexes(command, old)
	if len(idx) == 0 {
		return command
	}
	var b strings.Builder
	b.Grow(len(command) + len(idx)*(len(repl)-len(old)))
	last := 0
	for _, i := range idx {
		b.WriteString(command[last:i])
		b.WriteString(repl)
		last = i + len(old)
	}
	b.WriteString(command[last:])
	return b.String()
}

func tokenIndexes(s, tok string) []int {
	if tok == "" {
		return nil
	}
	var out []int
	for start := 0; start <= len(s)-len(tok); {
		i := strings.Index(s[start:], tok)
		if i < 0 {
			break
		}
		i += start
		end := i + len(tok)
		if (i == 0 || isTokenBoundary(s[i-1])) && (end == len(s) || isTokenBoundary(s[end])) {
			out = append(out, i)
		}
		start = i + 1
	}
	return out
}

func isTokenBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '|', ';', '&', '(', ')', '`', '"', '\'':
		return true
	}
	return false
}
