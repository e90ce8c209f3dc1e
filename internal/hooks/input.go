package hooks

import "strings"

// ToolInput is the tool-specific argument object. Fields are read
// defensively: a missing or mistyped field reads as its zero value.
type ToolInput map[string]any

// String returns the string value at key, or "".
func (t ToolInput) String(key string) string {
	s, _ := t[key].(string)
	return s
}

// FilePath returns file_path, falling back to notebook_path.
func (t ToolInput) FilePath() string {
	if p := t.String("file_path"); p != "" {
		return p
	}
	return t.String("notebook_path")
}

// Command returns the shell command of a Bash call.
func (t ToolInput) Command() string {
	return t.String("command")
}

// EditStrings returns new_string of every entry in edits.
func (t ToolInput) EditStrings() []string {
	edits, ok := t["edits"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(edits))
	for _, e := range edits {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := m["new_string"].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Payload returns the text a mutation writes: content, else new_string,
// else new_source, else every edits[].new_string joined by newlines.
func (t ToolInput) Payload() string {
	for _, key := range []string{"content", "new_string", "new_source"} {
		if s := t.String(key); s != "" {
			return s
		}
	}
	return strings.Join(t.EditStrings(), "\n")
}

// Clone returns a shallow copy.
func (t ToolInput) Clone() ToolInput {
	out := make(ToolInput, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
