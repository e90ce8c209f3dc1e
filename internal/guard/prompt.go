package guard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hookguard/internal/config"
	"github.com/fyrsmithlabs/hookguard/internal/hooks"
	"github.com/fyrsmithlabs/hookguard/internal/secrets"
)

// UserPromptSubmit stores the prompt so later trigger-phrase checks can see
// it. Credentials are redacted first. Prompts are never blocked.
func (g *Guard) UserPromptSubmit(ctx context.Context, req *hooks.Request) (hooks.Response, error) {
	prompt := req.Prompt
	if g.redactor != nil {
		redacted, findings := g.redactor.Redact(prompt)
		if len(findings) > 0 {
			g.logger.Warn(ctx, "redacted credentials from prompt",
				zap.Strings("rules", secrets.RuleIDs(findings)))
		}
		prompt = redacted
	}
	g.persist(ctx, "prompt", g.state.RecordPrompt(prompt))

	resp := hooks.Approve()
	if g.cfg.Notifications.ShowSubAgentTips {
		for _, agent := range []string{config.AgentQualityGuardian, config.AgentDocsSync} {
			if g.invoker.MatchesTriggerPhrase(prompt, agent) {
				resp.Info = fmt.Sprintf("💡 Tip: the %s sub-agent can review this work", agent)
				break
			}
		}
	}
	return resp, nil
}
