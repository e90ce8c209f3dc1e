package guard

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hookguard/internal/decision"
	"github.com/fyrsmithlabs/hookguard/internal/hooks"
	"github.com/fyrsmithlabs/hookguard/internal/subagent"
)

var (
	// commitLine matches git's summary line, e.g. "[main abc1234] msg" or
	// "[main (root-commit) abc1234] msg".
	commitLine = regexp.MustCompile(`\[[^\]\s]+(?: \([^)]*\))? ([0-9a-f]{7,40})\]`)

	commitFailure = []string{"nothing to commit", "no changes added to commit", "fatal:", "error:"}
)

// nonCodeExtensions never trigger systematic quality checks.
var nonCodeExtensions = map[string]bool{
	".md": true, ".yml": true, ".yaml": true, ".json": true, ".txt": true,
}

// checkCommands maps an extension to the command that verifies it. {file}
// is replaced by the modified path.
var checkCommands = map[string]string{
	".ts":    "npm run build && npm run lint",
	".tsx":   "npm run build && npm run lint",
	".js":    "npm run build && npm run lint",
	".jsx":   "npm run build && npm run lint",
	".py":    "python -m py_compile {file} && mypy {file}",
	".go":    "go build ./... && go vet ./...",
	".rs":    "cargo build && cargo clippy",
	".swift": "swiftlint {file}",
	".java":  "javac {file}",
}

// PostToolUse records what a completed tool call changed and escalates to
// reviewers when thresholds are crossed.
func (g *Guard) PostToolUse(ctx context.Context, req *hooks.Request) (hooks.Response, error) {
	tool := req.ToolName
	path := req.ToolInput.FilePath()

	switch {
	case decision.IsMutation(tool) && path != "":
		g.persist(ctx, "modification", g.state.TrackModification(path, tool))
	case tool == decision.ToolBash && isGitCommit(req.ToolInput.Command()):
		if hash, ok := parseCommit(req.ToolOutput()); ok {
			g.logger.Info(ctx, "commit recorded", zap.String("hash", hash))
			g.persist(ctx, "commit", g.state.TrackCommit(hash))
		}
	}

	if !g.cfg.QualityChecks.Enabled {
		return hooks.Approve(), nil
	}

	sctx := g.subagentContext(ctx, req)
	recs := g.invoker.Recommendations(sctx)
	for _, rec := range recs {
		if g.invoker.ShouldBlock(rec.Agent, sctx) {
			g.logger.Info(ctx, "sub-agent review required", zap.String("agent", rec.Agent))
			return hooks.Block(g.invoker.Message(rec.Agent, sctx)), nil
		}
	}

	if g.cfg.QualityChecks.SystematicVerification && decision.IsMutation(tool) && path != "" &&
		sctx.ModifiedFilesCount >= g.cfg.Thresholds.QualityCheckFiles {
		ext := strings.ToLower(filepath.Ext(path))
		if !nonCodeExtensions[ext] {
			return hooks.Block(qualityCheckMessage(path, ext)), nil
		}
	}

	resp := hooks.Approve()
	if len(recs) > 0 && g.cfg.Notifications.ShowSubAgentTips {
		resp.Info = recommendationTip(recs)
	}
	return resp, nil
}

func (g *Guard) subagentContext(ctx context.Context, req *hooks.Request) subagent.Context {
	sess := g.session(ctx)
	sctx := subagent.Context{
		ModifiedFilesCount:    sess.ModifiedFilesCount(),
		ModifiedFiles:         sess.ModifiedFiles(),
		CommitsSinceDocUpdate: sess.CommitsSinceDocUpdate(g.livingDoc()),
		LastUserMessage:       sess.LastPrompt,
		RecentCodeChanges:     req.ToolInput.Payload(),
	}

	ds := g.cfg.SubAgents.DocsSync
	if ds.Enabled && ds.BlockOnMajorChanges {
		sctx.NewDirectories = g.newDirectories(ctx, g.dir(req))
	}
	return sctx
}

func (g *Guard) newDirectories(ctx context.Context, dir string) []string {
	if dir == "" {
		return nil
	}
	st, err := g.gitStatus(dir)
	if err != nil {
		g.logger.Debug(ctx, "git status unavailable", zap.Error(err))
		return nil
	}
	dirs, err := st.Without(g.state.Dir()).NewTopLevelDirs()
	if err != nil {
		g.logger.Debug(ctx, "failed to list new directories", zap.Error(err))
		return nil
	}
	return dirs
}

func isGitCommit(command string) bool {
	for _, fields := range commandFields(command) {
		if len(fields) >= 2 && fields[0] == "git" && fields[1] == "commit" {
			return true
		}
	}
	return false
}

// commandFields splits command at && ; and | into whitespace-separated
// fields.
func commandFields(command string) [][]string {
	var out [][]string
	for _, part := range strings.FieldsFunc(command, func(r rune) bool {
		return r == ';' || r == '&' || r == '|' || r == '\n'
	}) {
		if fields := strings.Fields(part); len(fields) > 0 {
			out = append(out, fields)
		}
	}
	return out
}

// parseCommit reports whether output describes a successful commit and
// returns its abbreviated hash when git printed one.
func parseCommit(output string) (string, bool) {
	if m := commitLine.FindStringSubmatch(output); m != nil {
		return m[1], true
	}
	lower := strings.ToLower(output)
	for _, marker := range commitFailure {
		if strings.Contains(lower, marker) {
			return "", false
		}
	}
	return "", true
}

func qualityCheckMessage(path, ext string) string {
	command, ok := checkCommands[ext]
	if !ok {
		command = "appropriate build/lint commands"
	}
	command = strings.ReplaceAll(command, "{file}", path)

	return fmt.Sprintf(`✅ Quality check required after modifying %s

Please run: %s

Verify:
1. No compilation/build errors
2. No linting warnings (treat warnings as errors)
3. Type checking passes (if applicable)
4. Tests still pass (if test suite exists)

After running checks and fixing any issues, type 'continue' to proceed.`, path, command)
}

func recommendationTip(recs []subagent.Recommendation) string {
	var b strings.Builder
	b.WriteString("💡 Consider invoking:")
	for _, r := range recs {
		fmt.Fprintf(&b, "\n- %s (%s): %s", r.Agent, r.Priority, r.Reason)
	}
	return b.String()
}
