package guard

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hookguard/internal/config"
	"github.com/fyrsmithlabs/hookguard/internal/gitstatus"
	"github.com/fyrsmithlabs/hookguard/internal/hooks"
	"github.com/fyrsmithlabs/hookguard/internal/state"
	"github.com/fyrsmithlabs/hookguard/internal/subagent"
)

// maxListed bounds the file lists in stop reminders.
const maxListed = 10

// Stop reminds about uncommitted work and stale documentation before the
// agent finishes.
func (g *Guard) Stop(ctx context.Context, req *hooks.Request) (hooks.Response, error) {
	if req.StopHookActive {
		return hooks.Approve(), nil
	}

	sess := g.session(ctx)
	modified := sess.ModifiedFilesCount()

	st, err := g.gitStatus(g.dir(req))
	if err == nil {
		st = st.Without(g.state.Dir())
	}
	switch {
	case err == nil && !st.Clean():
		return hooks.Block(commitReminder(st, modified)), nil
	case err != nil && modified >= g.cfg.Thresholds.CommitReminder:
		g.logger.Debug(ctx, "git status unavailable", zap.Error(err))
		return hooks.Block(fmt.Sprintf(`💾 Commit Reminder

You have made %d file modifications in this session.
Consider reviewing and committing your changes if using version control.
`, modified)), nil
	}

	if reason, ok := g.docsReminder(sess); ok {
		return hooks.Block(reason), nil
	}

	now := g.state.Now()
	g.persist(ctx, "metrics", g.state.UpdateMetric(state.MetricSessionFilesModified, float64(modified)))
	g.persist(ctx, "metrics", g.state.UpdateMetric(state.MetricSessionDuration, sess.Duration(now).Seconds()))

	removed, err := g.state.CleanupOldStates(g.cfg.State.RetentionDays)
	if err != nil {
		g.logger.Warn(ctx, "state cleanup failed", zap.Error(err))
	} else if len(removed) > 0 {
		g.logger.Info(ctx, "removed stale state", zap.Strings("files", removed))
	}

	return hooks.Approve(), nil
}

func commitReminder(st *gitstatus.Status, modified int) string {
	lines := st.PorcelainLines(maxListed)
	var b strings.Builder
	fmt.Fprintf(&b, "💾 Commit Reminder\n\nYou have %d uncommitted changes:\n", len(st.Changes))
	for _, l := range lines {
		b.WriteString("  " + l + "\n")
	}
	if len(st.Changes) > maxListed {
		b.WriteString("  ...\n")
	}
	fmt.Fprintf(&b, `
Consider committing your changes:
1. Review changes: git diff
2. Stage files: git add .
3. Commit: git commit -m "Your message"
4. Push if needed: git push

Modified files in this session: %d
`, modified)
	return b.String()
}

// docsReminder evaluates docs-sync over the whole session.
func (g *Guard) docsReminder(sess *state.Session) (string, bool) {
	if !g.cfg.SubAgents.DocsSync.Enabled {
		return "", false
	}
	doc := g.livingDoc()
	files := sess.AllModifiedFiles()
	sctx := subagent.Context{
		ModifiedFilesCount:    len(sess.FilesModified),
		ModifiedFiles:         files,
		CommitsSinceDocUpdate: sess.CommitsSinceDocUpdate(doc),
		LastUserMessage:       sess.LastPrompt,
	}

	recommended := false
	for _, rec := range g.invoker.Recommendations(sctx) {
		if rec.Agent == config.AgentDocsSync {
			recommended = true
		}
	}
	if !recommended {
		return "", false
	}

	docTouched := false
	for _, f := range files {
		if strings.Contains(f, doc) {
			docTouched = true
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📚 Documentation Update Reminder\n\nSession ending with %d modified files.\n", sctx.ModifiedFilesCount)
	if docTouched {
		fmt.Fprintf(&b, "%s files were modified.\n", doc)
	}
	fmt.Fprintf(&b, `
Consider updating documentation:
1. Run: Use Task tool with subagent_type="docs-sync"
2. Update relevant %s files
3. Sync technical documentation
4. Update troubleshooting guides if needed

Modified files:
`, doc)
	for i, f := range files {
		if i == maxListed {
			b.WriteString("...\n")
			break
		}
		b.WriteString("- " + f + "\n")
	}
	return b.String(), true
}
