package guard

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hookguard/internal/decision"
	"github.com/fyrsmithlabs/hookguard/internal/hooks"
)

// VerificationCategory is recorded for every verification-gate block.
const VerificationCategory = "assumption_check"

const optimizedInfo = "🚀 Optimized: Using modern tool replacement"

type cachedVerification struct {
	Verified bool `json:"verified"`
}

func cacheKey(tool, path string) string {
	return tool + ":" + path
}

// PreToolUse gates a pending tool call.
func (g *Guard) PreToolUse(ctx context.Context, req *hooks.Request) (hooks.Response, error) {
	if !g.cfg.Verification.Enabled && !g.cfg.ToolOptimization.Enabled {
		return hooks.Approve(), nil
	}

	tool := req.ToolName
	path := req.ToolInput.FilePath()
	if decision.IsMutation(tool) && path != "" && g.verified(ctx, tool, path) {
		g.logger.Debug(ctx, "verification cached", zap.String("tool", tool), zap.String("path", path))
		return hooks.Approve(), nil
	}

	sess := g.session(ctx)
	result := g.engine.Evaluate(tool, req.ToolInput, decision.Context{
		VerificationCount:  sess.VerificationCount(),
		ModifiedFilesCount: sess.ModifiedFilesCount(),
	})

	switch result.Gate {
	case decision.GateVerification:
		g.logger.Info(ctx, "verification required",
			zap.String("tool", tool),
			zap.String("path", path),
			zap.Int("matches", len(result.Matches)))
		g.persist(ctx, "verification", g.state.TrackVerification(VerificationCategory, map[string]string{
			"tool": tool,
			"file": path,
		}))
		if path != "" {
			g.persist(ctx, "cache", g.state.CacheVerification(cacheKey(tool, path),
				cachedVerification{Verified: true}, g.cfg.State.CacheTTL.Duration()))
		}
	case decision.GateSecrets:
		g.logger.Warn(ctx, "possible secret in payload", zap.String("tool", tool), zap.String("path", path))
	case decision.GateQuality:
		g.logger.Info(ctx, "quality check required", zap.String("path", path))
	}

	if result.Blocked() {
		return hooks.Block(result.Reason), nil
	}

	resp := hooks.Approve()
	if result.ModifiedInput != nil {
		g.logger.Info(ctx, "command optimized",
			zap.String("from", req.ToolInput.Command()),
			zap.String("to", result.ModifiedInput.Command()))
		resp.ModifiedToolInput = result.ModifiedInput
		if g.cfg.Notifications.ShowSubAgentTips {
			resp.Info = optimizedInfo
		}
	}
	return resp, nil
}

func (g *Guard) verified(ctx context.Context, tool, path string) bool {
	raw, ok := g.state.GetCachedVerification(cacheKey(tool, path))
	if !ok {
		return false
	}
	var v cachedVerification
	if err := json.Unmarshal(raw, &v); err != nil {
		g.logger.Warn(ctx, "ignoring malformed cache entry", zap.Error(err))
		return false
	}
	return v.Verified
}
