package subagent

import (
	"strings"
	"testing"

	"github.com/fyrsmithlabs/hookguard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enabledConfig() *config.Config {
	cfg := config.Default()
	cfg.SubAgents.QualityGuardian.Enabled = true
	cfg.SubAgents.QualityGuardian.AutoInvokePatterns = []string{"refactor", "Clean Up"}
	cfg.SubAgents.DocsSync.Enabled = true
	return cfg
}

func agents(recs []Recommendation) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.Agent)
	}
	return out
}

func TestRecommendations(t *testing.T) {
	inv := NewInvoker(enabledConfig())

	tests := []struct {
		name string
		ctx  Context
		want []string
	}{
		{"quiet session", Context{ModifiedFilesCount: 1}, nil},
		{"guardian threshold", Context{ModifiedFilesCount: 5}, []string{config.AgentQualityGuardian}},
		{"guardian phrase", Context{LastUserMessage: "please REFACTOR the parser"}, []string{config.AgentQualityGuardian}},
		{"docs commits", Context{CommitsSinceDocUpdate: 3}, []string{config.AgentDocsSync}},
		{"living doc touched", Context{ModifiedFiles: []string{"/repo/docs/CLAUDE.md"}}, []string{config.AgentDocsSync}},
		{"many files", Context{ModifiedFilesCount: 10}, []string{config.AgentQualityGuardian, config.AgentDocsSync}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, agents(inv.Recommendations(tt.ctx)))
		})
	}
}

func TestRecommendations_Details(t *testing.T) {
	inv := NewInvoker(enabledConfig())

	recs := inv.Recommendations(Context{ModifiedFilesCount: 12})
	require.Len(t, recs, 2)
	assert.Equal(t, Recommendation{Agent: config.AgentQualityGuardian, Reason: "Code complexity threshold reached", Priority: PriorityHigh}, recs[0])
	assert.Equal(t, Recommendation{Agent: config.AgentDocsSync, Reason: "Documentation update needed", Priority: PriorityMedium}, recs[1])
}

func TestRecommendations_Disabled(t *testing.T) {
	inv := NewInvoker(config.Default())
	assert.Empty(t, inv.Recommendations(Context{ModifiedFilesCount: 50, CommitsSinceDocUpdate: 9, LastUserMessage: "refactor"}))
}

func TestRecommendations_LivingDocTrackingOff(t *testing.T) {
	cfg := enabledConfig()
	cfg.SubAgents.DocsSync.TrackLivingDoc = false
	inv := NewInvoker(cfg)

	assert.Empty(t, inv.Recommendations(Context{ModifiedFiles: []string{"CLAUDE.md"}, ModifiedFilesCount: 1}))
}

func TestRecommendations_CustomLivingDoc(t *testing.T) {
	cfg := enabledConfig()
	cfg.SubAgents.DocsSync.LivingDoc = "AGENTS.md"
	inv := NewInvoker(cfg)

	assert.Equal(t, []string{config.AgentDocsSync}, agents(inv.Recommendations(Context{ModifiedFiles: []string{"AGENTS.md"}})))
	assert.Empty(t, inv.Recommendations(Context{ModifiedFiles: []string{"CLAUDE.md"}}))
}

func TestMatchesTriggerPhrase(t *testing.T) {
	inv := NewInvoker(enabledConfig())

	assert.True(t, inv.MatchesTriggerPhrase("Let's clean up this module", config.AgentQualityGuardian))
	assert.False(t, inv.MatchesTriggerPhrase("add a feature", config.AgentQualityGuardian))
	assert.False(t, inv.MatchesTriggerPhrase("refactor", config.AgentDocsSync))
	assert.False(t, inv.MatchesTriggerPhrase("refactor", "unknown"))
}

func nestedIfs(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("x = 1 if ok else 0\n")
	}
	return b.String()
}

func TestHighComplexity(t *testing.T) {
	assert.False(t, HighComplexity(""))
	assert.False(t, HighComplexity("x = 1\ny = 2\n"))
	assert.True(t, HighComplexity(nestedIfs(12)), "12 decision points")
	assert.False(t, HighComplexity(nestedIfs(10)))
	assert.True(t, HighComplexity("if a:\n    if b:\n        pass\n"))
	assert.True(t, HighComplexity("func f() { g(func() { h(func() {}) }) }"))
}

func TestShouldBlock(t *testing.T) {
	cfg := enabledConfig()
	cfg.SubAgents.QualityGuardian.BlockOnComplexity = true
	cfg.SubAgents.DocsSync.BlockOnMajorChanges = true
	inv := NewInvoker(cfg)

	assert.True(t, inv.ShouldBlock(config.AgentQualityGuardian, Context{RecentCodeChanges: nestedIfs(12)}))
	assert.False(t, inv.ShouldBlock(config.AgentQualityGuardian, Context{RecentCodeChanges: "x = 1"}))

	assert.True(t, inv.ShouldBlock(config.AgentDocsSync, Context{ModifiedFilesCount: 11}))
	assert.False(t, inv.ShouldBlock(config.AgentDocsSync, Context{ModifiedFilesCount: 10}))
	assert.True(t, inv.ShouldBlock(config.AgentDocsSync, Context{ModifiedFiles: []string{"svc/go.mod"}}))
	assert.False(t, inv.ShouldBlock(config.AgentDocsSync, Context{ModifiedFiles: []string{"svc/go.mod.bak"}}))
	assert.True(t, inv.ShouldBlock(config.AgentDocsSync, Context{NewDirectories: []string{"api"}}))

	assert.False(t, inv.ShouldBlock("unknown", Context{ModifiedFilesCount: 100}))
}

func TestShouldBlock_FlagsOff(t *testing.T) {
	inv := NewInvoker(enabledConfig())

	assert.False(t, inv.ShouldBlock(config.AgentQualityGuardian, Context{RecentCodeChanges: nestedIfs(20)}))
	assert.False(t, inv.ShouldBlock(config.AgentDocsSync, Context{ModifiedFilesCount: 50}))
}

func TestMessage(t *testing.T) {
	inv := NewInvoker(enabledConfig())
	ctx := Context{ModifiedFilesCount: 7, CommitsSinceDocUpdate: 4}

	qg := inv.Message(config.AgentQualityGuardian, ctx)
	assert.True(t, strings.HasPrefix(qg, "🛡️ Quality Guardian Review Needed"))
	assert.Contains(t, qg, "Modified files: 7")
	assert.Contains(t, qg, `subagent_type="quality-guardian"`)

	ds := inv.Message(config.AgentDocsSync, ctx)
	assert.True(t, strings.HasPrefix(ds, "📚 Documentation Sync Needed"))
	assert.Contains(t, ds, "Commits since last doc update: 4")
	assert.Contains(t, ds, "Update CLAUDE.md files")

	assert.Equal(t, "Invoke security sub-agent for review", inv.Message("security", ctx))
	assert.Equal(t, qg, inv.Message(config.AgentQualityGuardian, ctx))
}
