package hooks

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Handler handles one hook event and returns a decision.
type Handler func(ctx context.Context, req *Request) (Response, error)

// Manager dispatches requests to registered handlers.
type Manager struct {
	handlers map[Event][]Handler
	logger   *zap.Logger
}

// NewManager creates a new manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		handlers: make(map[Event][]Handler),
		logger:   logger,
	}
}

// Register registers a handler for an event. Handlers run in registration
// order.
func (m *Manager) Register(event Event, handler Handler) {
	m.handlers[event] = append(m.handlers[event], handler)
}

// Handles reports whether any handler is registered for event.
func (m *Manager) Handles(event Event) bool {
	return len(m.handlers[event]) > 0
}

// Execute runs the handlers for req.Event and combines their decisions.
// The first block wins. Info messages accumulate, and the last rewritten
// tool input is kept.
//
// Execute never fails: unknown events, handler errors and panics all yield
// a plain approve.
func (m *Manager) Execute(ctx context.Context, req *Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("hook handler panicked",
				zap.String("event", string(req.Event)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			resp = Approve()
		}
	}()

	handlers, ok := m.handlers[req.Event]
	if !ok {
		m.logger.Warn("no handler for event", zap.String("event", string(req.Event)))
		return Approve()
	}

	combined := Approve()
	var infos []string
	for _, handler := range handlers {
		r, err := handler(ctx, req)
		if err != nil {
			m.logger.Error("hook handler failed",
				zap.Error(fmt.Errorf("hook %s failed: %w", req.Event, err)))
			return Approve()
		}
		if r.Blocked() {
			return r
		}
		if r.Info != "" {
			infos = append(infos, r.Info)
		}
		if r.ModifiedToolInput != nil {
			combined.ModifiedToolInput = r.ModifiedToolInput
		}
	}
	combined.Info = strings.Join(infos, "\n\n")
	return combined
}
