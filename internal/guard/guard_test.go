package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/hookguard/internal/config"
	"github.com/fyrsmithlabs/hookguard/internal/decision"
	"github.com/fyrsmithlabs/hookguard/internal/gitstatus"
	"github.com/fyrsmithlabs/hookguard/internal/hooks"
	"github.com/fyrsmithlabs/hookguard/internal/secrets"
	"github.com/fyrsmithlabs/hookguard/internal/state"
)

// steppingClock advances one second per reading so that records written in
// sequence have strictly increasing timestamps.
type steppingClock struct {
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func noGit(string) (*gitstatus.Status, error) {
	return nil, gitstatus.ErrNotRepository
}

func cleanGit(string) (*gitstatus.Status, error) {
	return &gitstatus.Status{Branch: "main"}, nil
}

func installed(string) (string, error) {
	return "/usr/bin/tool", nil
}

type fixture struct {
	guard   *Guard
	state   *state.Manager
	project string
	clock   *steppingClock
}

func newFixture(t *testing.T, cfg *config.Config, opts ...Option) *fixture {
	t.Helper()
	project := t.TempDir()
	clock := &steppingClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}

	g, err := Build(context.Background(), Setup{
		Config:        cfg,
		ProjectDir:    project,
		EngineOptions: []decision.Option{decision.WithLookPath(installed)},
		StateOptions:  []state.Option{state.WithClock(clock.Now)},
		GuardOptions:  append([]Option{WithGitStatus(noGit)}, opts...),
	})
	require.NoError(t, err)
	return &fixture{guard: g, state: g.state, project: project, clock: clock}
}

func writeRequest(path, content string) *hooks.Request {
	return &hooks.Request{
		Event:     hooks.EventPreToolUse,
		ToolName:  decision.ToolWrite,
		ToolInput: hooks.ToolInput{"file_path": path, "content": content},
	}
}

func TestPreToolUse_DisabledApproves(t *testing.T) {
	f := newFixture(t, config.Default())

	resp, err := f.guard.PreToolUse(context.Background(), writeRequest("a.py", "import os"))
	require.NoError(t, err)
	assert.Equal(t, hooks.Approve(), resp)
}

func TestPreToolUse_VerificationBlockThenCached(t *testing.T) {
	cfg := config.Default()
	cfg.Verification.Enabled = true
	cfg.Verification.EnabledCategories = []string{config.CategoryLibraryUsage}
	f := newFixture(t, cfg)
	ctx := context.Background()
	req := writeRequest("src/app.py", "import requests\n")

	resp, err := f.guard.PreToolUse(ctx, req)
	require.NoError(t, err)
	require.True(t, resp.Blocked())
	assert.Contains(t, resp.Reason, "Assumption verification needed for src/app.py")

	sess, err := f.state.LoadSession()
	require.NoError(t, err)
	require.Len(t, sess.Verifications, 1)
	assert.Equal(t, VerificationCategory, sess.Verifications[0].Category)
	assert.JSONEq(t, `{"tool":"Write","file":"src/app.py"}`, string(sess.Verifications[0].Result))

	raw, ok := f.state.GetCachedVerification("Write:src/app.py")
	require.True(t, ok)
	assert.JSONEq(t, `{"verified":true}`, string(raw))

	resp, err = f.guard.PreToolUse(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.Blocked(), "retry within the TTL proceeds")

	other := writeRequest("src/other.py", "import os\n")
	resp, err = f.guard.PreToolUse(ctx, other)
	require.NoError(t, err)
	assert.True(t, resp.Blocked(), "cache is per tool and path")
}

func TestPreToolUse_VerificationCap(t *testing.T) {
	cfg := config.Default()
	cfg.Verification.Enabled = true
	cfg.Verification.EnabledCategories = []string{config.CategoryLibraryUsage}
	cfg.Verification.MaxVerificationsPerSession = 2
	f := newFixture(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := f.guard.PreToolUse(ctx, writeRequest(fmt.Sprintf("m%d.py", i), "import os"))
		require.NoError(t, err)
		assert.True(t, resp.Blocked())
	}
	resp, err := f.guard.PreToolUse(ctx, writeRequest("m9.py", "import os"))
	require.NoError(t, err)
	assert.False(t, resp.Blocked())
}

func TestPreToolUse_HookIgnore(t *testing.T) {
	cfg := config.Default()
	cfg.Verification.Enabled = true
	cfg.Verification.EnabledCategories = []string{config.CategoryLibraryUsage}

	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".hookignore"), []byte("# generated\ngen/\n"), 0600))
	g, err := Build(context.Background(), Setup{Config: cfg, ProjectDir: project, GuardOptions: []Option{WithGitStatus(noGit)}})
	require.NoError(t, err)

	resp, err := g.PreToolUse(context.Background(), writeRequest("gen/client.py", "import os"))
	require.NoError(t, err)
	assert.False(t, resp.Blocked())
}

type stubScanner struct{}

func (stubScanner) Scan(path, content string) []secrets.Finding {
	if strings.Contains(content, "SECRET") {
		return []secrets.Finding{{RuleID: "generic-api-key"}}
	}
	return nil
}

func TestPreToolUse_SecretNotCached(t *testing.T) {
	cfg := config.Default()
	cfg.Verification.Enabled = true
	cfg.Verification.EnabledCategories = []string{config.CategorySecrets}
	project := t.TempDir()
	g, err := Build(context.Background(), Setup{
		Config:        cfg,
		ProjectDir:    project,
		EngineOptions: []decision.Option{decision.WithSecretScanner(stubScanner{})},
		GuardOptions:  []Option{WithGitStatus(noGit)},
	})
	require.NoError(t, err)
	ctx := context.Background()
	req := writeRequest("deploy.sh", "TOKEN=SECRET")

	for i := 0; i < 2; i++ {
		resp, err := g.PreToolUse(ctx, req)
		require.NoError(t, err)
		require.True(t, resp.Blocked())
		assert.Contains(t, resp.Reason, "generic-api-key")
	}
	assert.Zero(t, g.state.VerificationCount())
}

func TestPreToolUse_Optimization(t *testing.T) {
	cfg := config.Default()
	cfg.ToolOptimization.Enabled = true
	cfg.ToolOptimization.Replacements = map[string]string{"grep": "rg"}
	f := newFixture(t, cfg)

	req := &hooks.Request{ToolName: decision.ToolBash, ToolInput: hooks.ToolInput{"command": `grep -rn "TODO" .`, "timeout": float64(1000)}}
	resp, err := f.guard.PreToolUse(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Blocked())
	assert.Equal(t, hooks.ToolInput{"command": `rg -n "TODO" .`, "timeout": float64(1000)}, resp.ModifiedToolInput)
	assert.Equal(t, optimizedInfo, resp.Info)

	cfg.Notifications.ShowSubAgentTips = false
	f = newFixture(t, cfg)
	resp, err = f.guard.PreToolUse(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, resp.ModifiedToolInput)
	assert.Empty(t, resp.Info)
}

func postRequest(tool string, input hooks.ToolInput, output string) *hooks.Request {
	raw, _ := json.Marshal(map[string]string{"stdout": output})
	return &hooks.Request{Event: hooks.EventPostToolUse, ToolName: tool, ToolInput: input, ToolResponse: raw}
}

func TestPostToolUse_TracksModificationsAndCommits(t *testing.T) {
	f := newFixture(t, config.Default())
	ctx := context.Background()

	for _, p := range []string{"a.go", "b.go", "a.go"} {
		resp, err := f.guard.PostToolUse(ctx, postRequest(decision.ToolEdit, hooks.ToolInput{"file_path": p}, ""))
		require.NoError(t, err)
		assert.Equal(t, hooks.Approve(), resp)
	}
	assert.Equal(t, 3, f.state.ModifiedFilesCount())

	commit := postRequest(decision.ToolBash, hooks.ToolInput{"command": `git add . && git commit -m "wip"`},
		"[main 1a2b3c4] wip\n 2 files changed, 3 insertions(+)")
	_, err := f.guard.PostToolUse(ctx, commit)
	require.NoError(t, err)

	sess, err := f.state.LoadSession()
	require.NoError(t, err)
	require.Len(t, sess.Commits, 1)
	require.NotNil(t, sess.Commits[0].Hash)
	assert.Equal(t, "1a2b3c4", *sess.Commits[0].Hash)
	assert.Equal(t, 3, sess.Commits[0].FilesCount)
	assert.Zero(t, f.state.ModifiedFilesCount())

	failed := postRequest(decision.ToolBash, hooks.ToolInput{"command": "git commit -m x"}, "nothing to commit, working tree clean")
	_, err = f.guard.PostToolUse(ctx, failed)
	require.NoError(t, err)
	sess, err = f.state.LoadSession()
	require.NoError(t, err)
	assert.Len(t, sess.Commits, 1)
}

func TestPostToolUse_SystematicVerification(t *testing.T) {
	cfg := config.Default()
	cfg.QualityChecks.Enabled = true
	cfg.QualityChecks.SystematicVerification = true
	cfg.Thresholds.QualityCheckFiles = 2
	f := newFixture(t, cfg)
	ctx := context.Background()

	resp, err := f.guard.PostToolUse(ctx, postRequest(decision.ToolWrite, hooks.ToolInput{"file_path": "main.py"}, ""))
	require.NoError(t, err)
	assert.False(t, resp.Blocked(), "below threshold")

	resp, err = f.guard.PostToolUse(ctx, postRequest(decision.ToolWrite, hooks.ToolInput{"file_path": "README.md"}, ""))
	require.NoError(t, err)
	assert.False(t, resp.Blocked(), "docs are not code")

	resp, err = f.guard.PostToolUse(ctx, postRequest(decision.ToolWrite, hooks.ToolInput{"file_path": "app/main.py"}, ""))
	require.NoError(t, err)
	require.True(t, resp.Blocked())
	assert.Contains(t, resp.Reason, "Quality check required after modifying app/main.py")
	assert.Contains(t, resp.Reason, "python -m py_compile app/main.py && mypy app/main.py")

	resp, err = f.guard.PostToolUse(ctx, postRequest(decision.ToolWrite, hooks.ToolInput{"file_path": "lib.zig"}, ""))
	require.NoError(t, err)
	assert.Contains(t, resp.Reason, "Please run: appropriate build/lint commands")
}

func TestPostToolUse_QualityGuardianBlocks(t *testing.T) {
	cfg := config.Default()
	cfg.QualityChecks.Enabled = true
	cfg.SubAgents.QualityGuardian.Enabled = true
	cfg.SubAgents.QualityGuardian.TriggerThreshold = 1
	cfg.SubAgents.QualityGuardian.BlockOnComplexity = true
	f := newFixture(t, cfg)

	nested := "def f(x):\n    if x: if y: return 1\n"
	resp, err := f.guard.PostToolUse(context.Background(),
		postRequest(decision.ToolEdit, hooks.ToolInput{"file_path": "f.py", "new_string": nested}, ""))
	require.NoError(t, err)
	require.True(t, resp.Blocked())
	assert.True(t, strings.HasPrefix(resp.Reason, "🛡️ Quality Guardian Review Needed"))
	assert.Contains(t, resp.Reason, "Modified files: 1")
}

func TestPostToolUse_RecommendationTip(t *testing.T) {
	cfg := config.Default()
	cfg.QualityChecks.Enabled = true
	cfg.SubAgents.QualityGuardian.Enabled = true
	cfg.SubAgents.QualityGuardian.TriggerThreshold = 1
	f := newFixture(t, cfg)

	resp, err := f.guard.PostToolUse(context.Background(),
		postRequest(decision.ToolEdit, hooks.ToolInput{"file_path": "f.py", "new_string": "x = 1"}, ""))
	require.NoError(t, err)
	assert.False(t, resp.Blocked())
	assert.Contains(t, resp.Info, "quality-guardian (high): Code complexity threshold reached")
}

type stubRedactor struct{}

func (stubRedactor) Redact(content string) (string, []secrets.Finding) {
	if !strings.Contains(content, "hunter2") {
		return content, nil
	}
	return strings.ReplaceAll(content, "hunter2", secrets.RedactionString), []secrets.Finding{{RuleID: "password"}}
}

func TestUserPromptSubmit(t *testing.T) {
	cfg := config.Default()
	cfg.SubAgents.QualityGuardian.AutoInvokePatterns = []string{"refactor"}
	f := newFixture(t, cfg, WithRedactor(stubRedactor{}))
	ctx := context.Background()

	resp, err := f.guard.UserPromptSubmit(ctx, &hooks.Request{Prompt: "Refactor login, password is hunter2"})
	require.NoError(t, err)
	assert.False(t, resp.Blocked())
	assert.Contains(t, resp.Info, "quality-guardian")

	sess, err := f.state.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "Refactor login, password is [REDACTED]", sess.LastPrompt)
}

func TestStop_StopHookActive(t *testing.T) {
	f := newFixture(t, config.Default(), WithGitStatus(func(string) (*gitstatus.Status, error) {
		t.Fatal("git status must not be read")
		return nil, nil
	}))

	resp, err := f.guard.Stop(context.Background(), &hooks.Request{StopHookActive: true})
	require.NoError(t, err)
	assert.Equal(t, hooks.Approve(), resp)
}

func TestStop_UncommittedChanges(t *testing.T) {
	dirty := func(string) (*gitstatus.Status, error) {
		st := &gitstatus.Status{Branch: "main"}
		for i := 0; i < 12; i++ {
			st.Changes = append(st.Changes, gitstatus.Change{
				Path:     fmt.Sprintf("file%02d.go", i),
				Staging:  git.Unmodified,
				Worktree: git.Modified,
			})
		}
		return st, nil
	}
	f := newFixture(t, config.Default(), WithGitStatus(dirty))

	resp, err := f.guard.Stop(context.Background(), &hooks.Request{})
	require.NoError(t, err)
	require.True(t, resp.Blocked())
	assert.True(t, strings.HasPrefix(resp.Reason, "💾 Commit Reminder"))
	assert.Contains(t, resp.Reason, "You have 12 uncommitted changes:")
	assert.Contains(t, resp.Reason, "   M file09.go")
	assert.NotContains(t, resp.Reason, "file10.go")
	assert.Contains(t, resp.Reason, "  ...")
}

func TestStop_NoGitThreshold(t *testing.T) {
	f := newFixture(t, config.Default())
	ctx := context.Background()

	resp, err := f.guard.Stop(ctx, &hooks.Request{})
	require.NoError(t, err)
	assert.False(t, resp.Blocked())

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, f.state.TrackModification(p, decision.ToolWrite))
	}
	resp, err = f.guard.Stop(ctx, &hooks.Request{})
	require.NoError(t, err)
	require.True(t, resp.Blocked())
	assert.Contains(t, resp.Reason, "You have made 3 file modifications in this session.")
}

func TestStop_CleanRecordsMetrics(t *testing.T) {
	f := newFixture(t, config.Default(), WithGitStatus(cleanGit))
	ctx := context.Background()
	require.NoError(t, f.state.TrackModification("a.go", decision.ToolWrite))

	resp, err := f.guard.Stop(ctx, &hooks.Request{})
	require.NoError(t, err)
	assert.False(t, resp.Blocked())

	metrics, err := f.state.LoadMetrics()
	require.NoError(t, err)
	files, ok := metrics.Latest(state.MetricSessionFilesModified)
	require.True(t, ok)
	assert.Equal(t, float64(1), files)
	duration, ok := metrics.Latest(state.MetricSessionDuration)
	require.True(t, ok)
	assert.Greater(t, duration, float64(0))
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# project\n"), 0644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestStop_OwnStateIsNotUncommittedWork(t *testing.T) {
	project := initRepo(t)
	g, err := Build(context.Background(), Setup{
		Config:        config.Default(),
		ProjectDir:    project,
		EngineOptions: []decision.Option{decision.WithLookPath(installed)},
		GuardOptions:  []Option{WithGitStatus(gitstatus.Read)},
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = g.UserPromptSubmit(ctx, &hooks.Request{Prompt: "tidy up"})
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(g.state.Dir(), state.SessionFile))
	require.NoError(t, err)

	resp, err := g.Stop(ctx, &hooks.Request{})
	require.NoError(t, err)
	assert.False(t, resp.Blocked(), resp.Reason)

	require.NoError(t, os.Remove(filepath.Join(g.state.Dir(), state.GitignoreFile)))
	resp, err = g.Stop(ctx, &hooks.Request{})
	require.NoError(t, err)
	assert.False(t, resp.Blocked(), resp.Reason)

	require.NoError(t, os.WriteFile(filepath.Join(project, "main.go"), []byte("package main\n"), 0644))
	resp, err = g.Stop(ctx, &hooks.Request{})
	require.NoError(t, err)
	require.True(t, resp.Blocked())
	assert.Contains(t, resp.Reason, "You have 1 uncommitted changes:")
	assert.Contains(t, resp.Reason, "?? main.go")
	assert.NotContains(t, resp.Reason, ".claude")
}

func TestStop_DocsReminder(t *testing.T) {
	cfg := config.Default()
	cfg.SubAgents.DocsSync.Enabled = true
	f := newFixture(t, cfg, WithGitStatus(cleanGit))
	ctx := context.Background()

	require.NoError(t, f.state.TrackModification("docs/CLAUDE.md", decision.ToolEdit))

	resp, err := f.guard.Stop(ctx, &hooks.Request{})
	require.NoError(t, err)
	require.True(t, resp.Blocked())
	assert.True(t, strings.HasPrefix(resp.Reason, "📚 Documentation Update Reminder"))
	assert.Contains(t, resp.Reason, "CLAUDE.md files were modified.")
	assert.Contains(t, resp.Reason, "- docs/CLAUDE.md")
}

func TestGuard_ThroughManager(t *testing.T) {
	cfg := config.Default()
	cfg.Verification.Enabled = true
	cfg.Verification.EnabledCategories = []string{config.CategoryAPIIntegration}
	f := newFixture(t, cfg)

	m := hooks.NewManager(nil)
	f.guard.Register(m)
	for _, ev := range hooks.Events {
		assert.True(t, m.Handles(ev), ev)
	}

	req := writeRequest("client.js", "await fetch('/api/users')")
	resp := m.Execute(context.Background(), req)
	assert.True(t, resp.Blocked())
}

func TestParseCommit(t *testing.T) {
	tests := []struct {
		output string
		hash   string
		ok     bool
	}{
		{"[main abc1234] fix", "abc1234", true},
		{"[feature/x (root-commit) 0123456789abcdef] init", "0123456789abcdef", true},
		{"", "", true},
		{"On branch main\nnothing to commit, working tree clean", "", false},
		{"fatal: not a git repository", "", false},
	}
	for _, tt := range tests {
		hash, ok := parseCommit(tt.output)
		assert.Equal(t, tt.hash, hash, tt.output)
		assert.Equal(t, tt.ok, ok, tt.output)
	}
}

func TestIsGitCommit(t *testing.T) {
	assert.True(t, isGitCommit(`git commit -m "x"`))
	assert.True(t, isGitCommit(`git add -A && git commit -am x`))
	assert.False(t, isGitCommit(`git status`))
	assert.False(t, isGitCommit(`echo git commit`))
}

func TestBuild_StateDir(t *testing.T) {
	project := t.TempDir()
	g, err := Build(context.Background(), Setup{Config: config.Default(), ProjectDir: project})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, ".claude", "hooks", "state"), g.state.Dir())

	override := t.TempDir()
	g, err = Build(context.Background(), Setup{ProjectDir: project, StateDir: override})
	require.NoError(t, err)
	assert.Equal(t, override, g.state.Dir())
}

func TestNew_RequiresState(t *testing.T) {
	_, err := New(config.Default(), nil, nil, "")
	assert.Error(t, err)
}
