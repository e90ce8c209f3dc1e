package main

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hookguard/internal/guard"
	"github.com/fyrsmithlabs/hookguard/internal/hooks"
	"github.com/fyrsmithlabs/hookguard/internal/logging"
)

func newHookCmd(opts *globalOptions) *cobra.Command {
	var event string

	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Handle one hook event from stdin",
		Long: `Read a hook request from stdin, decide, and write the decision to stdout.

The event comes from the request's hook_event_name unless --event is given.
The command always exits 0; any internal failure approves the action.

Examples:
  # As registered by 'hookguard install'
  hookguard hook --event PreToolUse

  # Try a request by hand
  echo '{"tool_name":"Bash","tool_input":{"command":"grep -r TODO ."}}' | hookguard hook --event PreToolUse`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runHook(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts, event)
			return nil
		},
	}
	cmd.Flags().StringVar(&event, "event", "", "hook event name (PreToolUse, PostToolUse, UserPromptSubmit, Stop)")
	return cmd
}

// runHook processes one request. It always writes a response.
func runHook(ctx context.Context, in io.Reader, out io.Writer, opts *globalOptions, eventName string) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithRequestID(ctx, uuid.NewString())

	resp := hooks.Approve()
	defer func() {
		if r := recover(); r != nil {
			resp = hooks.Approve()
		}
		if err := hooks.WriteResponse(out, resp); err != nil {
			_, _ = io.WriteString(os.Stderr, err.Error()+"\n")
		}
	}()

	req, readErr := hooks.ReadRequest(in)
	if readErr != nil {
		req = &hooks.Request{ToolInput: hooks.ToolInput{}}
	}

	projectDir, err := opts.resolveProjectDir(req.Cwd)
	if err != nil {
		return
	}
	cfg, cfgErr := opts.loadConfig(projectDir)
	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	if eventName == "" {
		eventName = string(req.Event)
	}
	ctx = logging.WithEvent(ctx, eventName)
	ctx = logging.WithSessionID(ctx, req.SessionID)
	ctx = logging.WithLogger(ctx, logger)

	if readErr != nil {
		logger.Warn(ctx, "approving unreadable request", zap.Error(readErr))
		return
	}
	if cfgErr != nil {
		logger.Warn(ctx, "using disabled configuration", zap.Error(cfgErr))
	}

	event, err := hooks.ParseEvent(eventName)
	if err != nil {
		logger.Warn(ctx, "approving unknown event", zap.Error(err))
		return
	}
	req.Event = event

	g, err := guard.Build(ctx, guard.Setup{
		Config:     cfg,
		ProjectDir: projectDir,
		StateDir:   opts.stateDir,
		Logger:     logger,
	})
	if err != nil {
		logger.Error(ctx, "approving without guard", zap.Error(err))
		return
	}

	m := hooks.NewManager(logger.Underlying())
	g.Register(m)
	resp = m.Execute(ctx, req)
}
