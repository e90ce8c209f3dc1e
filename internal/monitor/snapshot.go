// Package monitor renders the hookguard session state, once or as a live
// terminal dashboard that refreshes whenever a state record changes.
package monitor

import (
	"errors"
	"time"

	"github.com/fyrsmithlabs/hookguard/internal/config"
	"github.com/fyrsmithlabs/hookguard/internal/state"
)

// historySize bounds the sparkline series.
const historySize = 30

// Source is the state the dashboard reads.
type Source interface {
	LoadSession() (*state.Session, error)
	LoadCache() (state.Cache, error)
	LoadMetrics() (state.Metrics, error)
	Now() time.Time
}

// Snapshot is one reading of the session state and its limits.
type Snapshot struct {
	SessionID string
	StartedAt time.Time
	Duration  time.Duration

	ModifiedSinceCommit int
	ModifiedTotal       int
	RecentFiles         []string
	Verifications       int
	Commits             int
	CacheEntries        int
	LastPrompt          string

	MaxVerifications  int
	QualityThreshold  int
	ReminderThreshold int

	// Per-session history recorded at Stop, oldest first.
	FilesHistory    []float64
	DurationHistory []float64

	TakenAt time.Time
}

// Load reads a snapshot. Unreadable records are reported in the returned
// error but the snapshot is still usable.
func Load(src Source, cfg *config.Config) (Snapshot, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	var errs []error

	sess, err := src.LoadSession()
	if err != nil {
		errs = append(errs, err)
	}
	cache, err := src.LoadCache()
	if err != nil {
		errs = append(errs, err)
	}
	metrics, err := src.LoadMetrics()
	if err != nil {
		errs = append(errs, err)
	}

	now := src.Now()
	s := Snapshot{
		SessionID:           sess.SessionID,
		StartedAt:           sess.StartedAt,
		Duration:            sess.Duration(now),
		ModifiedSinceCommit: sess.ModifiedFilesCount(),
		ModifiedTotal:       len(sess.FilesModified),
		RecentFiles:         sess.ModifiedFiles(),
		Verifications:       sess.VerificationCount(),
		Commits:             len(sess.Commits),
		CacheEntries:        len(cache),
		LastPrompt:          sess.LastPrompt,
		MaxVerifications:    cfg.Verification.MaxVerificationsPerSession,
		QualityThreshold:    cfg.Thresholds.QualityCheckFiles,
		ReminderThreshold:   cfg.Thresholds.CommitReminder,
		FilesHistory:        history(metrics[state.MetricSessionFilesModified], 1),
		DurationHistory:     history(metrics[state.MetricSessionDuration], 60),
		TakenAt:             now,
	}
	return s, errors.Join(errs...)
}

// history returns the last historySize values of series divided by scale.
func history(series []state.MetricPoint, scale float64) []float64 {
	if len(series) > historySize {
		series = series[len(series)-historySize:]
	}
	out := make([]float64, 0, len(series))
	for _, p := range series {
		out = append(out, p.Value/scale)
	}
	return out
}
