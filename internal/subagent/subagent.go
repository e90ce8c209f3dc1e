// Package subagent decides when a change should be escalated to a
// specialized reviewer agent and renders the escalation messages.
//
// Two agents are built in. The quality guardian reviews complex changes;
// docs-sync keeps the living documentation in step with the code. Both are
// driven entirely by configuration and the counts in Context.
package subagent

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/hookguard/internal/config"
	"github.com/fyrsmithlabs/hookguard/internal/patterns"
)

// MajorChangeFiles is the modified-file count above which a change is major.
const MajorChangeFiles = 10

// Priority ranks a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Recommendation suggests invoking a reviewer agent.
type Recommendation struct {
	Agent    string   `json:"agent"`
	Reason   string   `json:"reason"`
	Priority Priority `json:"priority"`
}

// Context is the session view the invoker reasons over.
type Context struct {
	ModifiedFilesCount    int
	ModifiedFiles         []string
	CommitsSinceDocUpdate int
	LastUserMessage       string
	RecentCodeChanges     string
	NewDirectories        []string
}

// Invoker evaluates reviewer triggers against a configuration snapshot.
type Invoker struct {
	agents     config.SubAgentsConfig
	thresholds config.ThresholdsConfig
}

// NewInvoker creates an invoker. A nil cfg uses config.Default().
func NewInvoker(cfg *config.Config) *Invoker {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Invoker{agents: cfg.SubAgents, thresholds: cfg.Thresholds}
}

// Recommendations lists the agents whose triggers fire, quality guardian
// first.
func (i *Invoker) Recommendations(ctx Context) []Recommendation {
	var recs []Recommendation
	if i.qualityGuardianTriggered(ctx) {
		recs = append(recs, Recommendation{
			Agent:    config.AgentQualityGuardian,
			Reason:   "Code complexity threshold reached",
			Priority: PriorityHigh,
		})
	}
	if i.docsSyncTriggered(ctx) {
		recs = append(recs, Recommendation{
			Agent:    config.AgentDocsSync,
			Reason:   "Documentation update needed",
			Priority: PriorityMedium,
		})
	}
	return recs
}

// ShouldBlock reports whether the action must stop until agent has reviewed
// the change. Unknown and disabled agents never block.
func (i *Invoker) ShouldBlock(agent string, ctx Context) bool {
	switch agent {
	case config.AgentQualityGuardian:
		qg := i.agents.QualityGuardian
		return qg.Enabled && qg.BlockOnComplexity && HighComplexity(ctx.RecentCodeChanges)
	case config.AgentDocsSync:
		ds := i.agents.DocsSync
		return ds.Enabled && ds.BlockOnMajorChanges && MajorChanges(ctx)
	}
	return false
}

// MatchesTriggerPhrase reports whether message contains one of agent's
// auto-invoke phrases, ignoring case.
func (i *Invoker) MatchesTriggerPhrase(message, agent string) bool {
	var phrases []string
	switch agent {
	case config.AgentQualityGuardian:
		phrases = i.agents.QualityGuardian.AutoInvokePatterns
	case config.AgentDocsSync:
		phrases = i.agents.DocsSync.AutoInvokePatterns
	}
	lower := strings.ToLower(message)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Message renders the escalation text for agent.
func (i *Invoker) Message(agent string, ctx Context) string {
	switch agent {
	case config.AgentQualityGuardian:
		return qualityGuardianMessage(ctx)
	case config.AgentDocsSync:
		return docsSyncMessage(i.livingDoc(), ctx)
	}
	return fmt.Sprintf("Invoke %s sub-agent for review", agent)
}

func (i *Invoker) qualityGuardianTriggered(ctx Context) bool {
	qg := i.agents.QualityGuardian
	if !qg.Enabled {
		return false
	}
	if ctx.ModifiedFilesCount >= qg.TriggerThreshold {
		return true
	}
	return i.MatchesTriggerPhrase(ctx.LastUserMessage, config.AgentQualityGuardian)
}

func (i *Invoker) docsSyncTriggered(ctx Context) bool {
	ds := i.agents.DocsSync
	if !ds.Enabled {
		return false
	}
	if ctx.CommitsSinceDocUpdate >= ds.AutoTriggerCommits {
		return true
	}
	if ds.TrackLivingDoc {
		doc := i.livingDoc()
		for _, f := range ctx.ModifiedFiles {
			if strings.Contains(f, doc) {
				return true
			}
		}
	}
	return ctx.ModifiedFilesCount >= i.thresholds.DocUpdateFiles
}

func (i *Invoker) livingDoc() string {
	if i.agents.DocsSync.LivingDoc == "" {
		return config.DefaultLivingDoc
	}
	return i.agents.DocsSync.LivingDoc
}

// HighComplexity reports whether code shows nesting, an overlong function
// or too many decision points.
func HighComplexity(code string) bool {
	if code == "" {
		return false
	}
	return patterns.AnalyzeComplexity(code).High()
}

// MajorChanges reports whether the session's changes are structural: many
// files, a touched manifest, or new top-level directories.
func MajorChanges(ctx Context) bool {
	if ctx.ModifiedFilesCount > MajorChangeFiles {
		return true
	}
	for _, f := range ctx.ModifiedFiles {
		if patterns.IsManifest(f) {
			return true
		}
	}
	return len(ctx.NewDirectories) > 0
}
