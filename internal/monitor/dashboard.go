package monitor

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/hookguard/internal/config"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 1
	progressWidth   = 30
	maxListedFiles  = 5
	maxPromptWidth  = 60
)

// Styles share one palette: cyan accents, green/yellow/red status.
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// Model is the live dashboard. It reloads the snapshot whenever a value
// arrives on changes.
type Model struct {
	src      Source
	cfg      *config.Config
	changes  <-chan struct{}
	snapshot Snapshot
	err      error
	quitting bool
	watching bool

	verificationProgress progress.Model
	modifiedProgress     progress.Model
}

// NewModel creates a dashboard. A nil changes channel disables live
// refresh.
func NewModel(src Source, cfg *config.Config, changes <-chan struct{}) Model {
	if cfg == nil {
		cfg = config.Default()
	}
	return Model{
		src:      src,
		cfg:      cfg,
		changes:  changes,
		watching: changes != nil,
		verificationProgress: progress.New(
			progress.WithGradient("#00ffff", "#ff00ff"),
			progress.WithWidth(progressWidth),
		),
		modifiedProgress: progress.New(
			progress.WithGradient("#00ff00", "#ff0000"),
			progress.WithWidth(progressWidth),
		),
	}
}

// Message types
type (
	snapshotMsg Snapshot
	changedMsg  struct{}
	errMsg      struct {
		snapshot Snapshot
		err      error
	}
)

// Init loads the first snapshot and starts listening for changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(loadSnapshot(m.src, m.cfg), waitForChange(m.changes))
}

func loadSnapshot(src Source, cfg *config.Config) tea.Cmd {
	return func() tea.Msg {
		s, err := Load(src, cfg)
		if err != nil {
			return errMsg{snapshot: s, err: err}
		}
		return snapshotMsg(s)
	}
}

// waitForChange blocks until the next change notification. A nil or
// closed channel yields no further messages.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, loadSnapshot(m.src, m.cfg)
		}

	case changedMsg:
		return m, tea.Batch(loadSnapshot(m.src, m.cfg), waitForChange(m.changes))

	case snapshotMsg:
		m.snapshot = Snapshot(msg)
		m.err = nil
		return m, nil

	case errMsg:
		m.snapshot = msg.snapshot
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return containerStyle.Render(m.render())
}

// Render renders a snapshot once, without the interactive footer.
func Render(s Snapshot, err error) string {
	m := NewModel(nil, nil, nil)
	m.snapshot = s
	m.err = err
	return containerStyle.Render(m.render())
}

func (m Model) render() string {
	s := m.snapshot
	var b strings.Builder

	b.WriteString(headerStyle.Render(" hookguard session "))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s   %s %s   %s %s\n",
		m.statusBadge(),
		dimStyle.Render("Session:"), valueStyle.Render(orDash(s.SessionID)),
		dimStyle.Render("Age:"), valueStyle.Render(FormatDuration(s.Duration)))
	if m.err != nil {
		b.WriteString(errorStyle.Render("⚠ "+m.err.Error()) + "\n")
	}

	b.WriteString(sectionStyle.Render("┃ Changes") + "\n")
	b.WriteString(labelStyle.Render("  Since commit: ") +
		valueStyle.Render(FormatUsage(s.ModifiedSinceCommit, s.QualityThreshold)) + "  " +
		m.modifiedProgress.ViewAs(Ratio(s.ModifiedSinceCommit, s.QualityThreshold)) + "\n")
	b.WriteString(labelStyle.Render("  Session total: ") + valueStyle.Render(fmt.Sprint(s.ModifiedTotal)) +
		labelStyle.Render("  Commits: ") + valueStyle.Render(fmt.Sprint(s.Commits)) + "\n")
	for i, f := range s.RecentFiles {
		if i == maxListedFiles {
			b.WriteString(dimStyle.Render(fmt.Sprintf("    … %d more", len(s.RecentFiles)-maxListedFiles)) + "\n")
			break
		}
		b.WriteString(dimStyle.Render("    "+f) + "\n")
	}

	b.WriteString(sectionStyle.Render("┃ Verification") + "\n")
	b.WriteString(labelStyle.Render("  Requested: ") +
		valueStyle.Render(FormatUsage(s.Verifications, s.MaxVerifications)) + "  " +
		m.verificationProgress.ViewAs(Ratio(s.Verifications, s.MaxVerifications)) + "\n")
	b.WriteString(labelStyle.Render("  Cached approvals: ") + valueStyle.Render(fmt.Sprint(s.CacheEntries)) + "\n")
	if s.LastPrompt != "" {
		b.WriteString(labelStyle.Render("  Last prompt: ") + dimStyle.Render(Truncate(s.LastPrompt, maxPromptWidth)) + "\n")
	}

	b.WriteString(sectionStyle.Render("┃ History") + "\n")
	b.WriteString(labelStyle.Render("  Files / session:   ") + createSparkline(s.FilesHistory) + "\n")
	b.WriteString(labelStyle.Render("  Minutes / session: ") + createSparkline(s.DurationHistory) + "\n")

	if m.src != nil {
		footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
			footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ")
		if m.watching {
			footer += footerStyle.Render("watching state")
		}
		b.WriteString("\n" + footer)
	}
	return b.String()
}

// statusBadge summarizes how close the session is to its reminders.
func (m Model) statusBadge() string {
	s := m.snapshot
	switch {
	case m.err != nil:
		return errorStyle.Render("✗ DEGRADED")
	case s.ModifiedSinceCommit >= s.QualityThreshold && s.QualityThreshold > 0:
		return warningStyle.Render("⚠ CHECK")
	case s.ModifiedSinceCommit >= s.ReminderThreshold && s.ReminderThreshold > 0:
		return warningStyle.Render("⚠ COMMIT")
	}
	return healthyStyle.Render("✓ OK")
}

// createSparkline creates a sparkline chart from historical data
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	spark.PushAll(data)
	spark.Draw()

	return sparklineStyle.Render(spark.View())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
