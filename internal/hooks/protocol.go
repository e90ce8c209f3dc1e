package hooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Event represents a hook lifecycle event.
type Event string

const (
	// EventPreToolUse runs before a tool executes and may block or rewrite it.
	EventPreToolUse Event = "PreToolUse"

	// EventPostToolUse runs after a tool executes.
	EventPostToolUse Event = "PostToolUse"

	// EventUserPromptSubmit runs when the user submits a prompt.
	EventUserPromptSubmit Event = "UserPromptSubmit"

	// EventStop runs when the agent is about to finish its turn.
	EventStop Event = "Stop"
)

// Events lists every supported event in registration order.
var Events = []Event{EventPreToolUse, EventPostToolUse, EventUserPromptSubmit, EventStop}

var (
	// ErrUnknownEvent indicates an event name outside Events.
	ErrUnknownEvent = errors.New("unknown hook event")

	// ErrMalformedRequest indicates stdin did not hold a JSON request.
	ErrMalformedRequest = errors.New("malformed hook request")
)

// maxRequestSize bounds how much of stdin is read.
const maxRequestSize = 16 * 1024 * 1024

// ParseEvent resolves an event name. Matching ignores case and accepts the
// snake_case spelling (pre_tool_use).
func ParseEvent(name string) (Event, error) {
	norm := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	for _, e := range Events {
		if strings.ToLower(string(e)) == norm {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// Request is the document the agent writes to stdin.
type Request struct {
	SessionID      string          `json:"session_id"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
	Event          Event           `json:"hook_event_name"`
	Cwd            string          `json:"cwd"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolInput      ToolInput       `json:"tool_input,omitempty"`
	ToolResponse   json.RawMessage `json:"tool_response,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	StopHookActive bool            `json:"stop_hook_active,omitempty"`
}

// ReadRequest decodes a request. Empty input yields a zero Request.
func ReadRequest(r io.Reader) (*Request, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxRequestSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	req := &Request{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if req.ToolInput == nil {
		req.ToolInput = ToolInput{}
	}
	return req, nil
}

// ToolOutput returns the tool response as text. String responses are
// returned verbatim; object responses contribute their stdout, output and
// stderr fields; anything else is returned as raw JSON.
func (r *Request) ToolOutput() string {
	if len(r.ToolResponse) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.ToolResponse, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(r.ToolResponse, &obj); err == nil {
		var parts []string
		for _, key := range []string{"stdout", "output", "stderr"} {
			if v, ok := obj[key].(string); ok && v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return string(r.ToolResponse)
}

// Decision is the verdict carried by a Response.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionBlock   Decision = "block"
)

// Response is the document written to stdout.
type Response struct {
	Decision          Decision  `json:"decision"`
	Reason            string    `json:"reason,omitempty"`
	Info              string    `json:"info,omitempty"`
	ModifiedToolInput ToolInput `json:"modifiedToolInput,omitempty"`
}

// Approve returns a plain approve response.
func Approve() Response {
	return Response{Decision: DecisionApprove}
}

// Block returns a block response with the given reason.
func Block(reason string) Response {
	return Response{Decision: DecisionBlock, Reason: reason}
}

// Blocked reports whether the response blocks the action.
func (r Response) Blocked() bool {
	return r.Decision == DecisionBlock
}

// WriteResponse encodes resp as a single JSON line.
func WriteResponse(w io.Writer, resp Response) error {
	if resp.Decision == "" {
		resp.Decision = DecisionApprove
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
