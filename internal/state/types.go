package state

import (
	"encoding/json"
	"strings"
	"time"
)

// Verification records one assumption check.
type Verification struct {
	Category  string          `json:"category"`
	Result    json.RawMessage `json:"result,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Modification records one file mutation.
type Modification struct {
	File      string    `json:"file"`
	Tool      string    `json:"tool"`
	Timestamp time.Time `json:"timestamp"`
}

// Commit records one git commit observed in tool output.
type Commit struct {
	Hash       *string   `json:"hash"`
	Timestamp  time.Time `json:"timestamp"`
	FilesCount int       `json:"files_count"`
}

// Session is the per-session history. Its logs only grow until the
// session is reset.
type Session struct {
	SessionID     string         `json:"session_id"`
	StartedAt     time.Time      `json:"started_at"`
	Verifications []Verification `json:"verifications"`
	FilesModified []Modification `json:"files_modified"`
	Commits       []Commit       `json:"commits"`
	LastPrompt    string         `json:"last_prompt,omitempty"`
}

// VerificationCount returns the number of recorded verifications.
func (s *Session) VerificationCount() int {
	return len(s.Verifications)
}

// lastCommitAt returns the timestamp of the latest commit, or the zero time.
func (s *Session) lastCommitAt() time.Time {
	var last time.Time
	for _, c := range s.Commits {
		if c.Timestamp.After(last) {
			last = c.Timestamp
		}
	}
	return last
}

// sinceLastCommit returns modifications strictly after the last commit,
// or all of them when nothing was committed.
func (s *Session) sinceLastCommit() []Modification {
	if len(s.Commits) == 0 {
		return s.FilesModified
	}
	last := s.lastCommitAt()
	var out []Modification
	for _, m := range s.FilesModified {
		if m.Timestamp.After(last) {
			out = append(out, m)
		}
	}
	return out
}

// ModifiedFilesCount returns the number of modification entries strictly
// after the last commit.
func (s *Session) ModifiedFilesCount() int {
	return len(s.sinceLastCommit())
}

// ModifiedFiles returns the distinct paths modified since the last commit,
// in first-seen order.
func (s *Session) ModifiedFiles() []string {
	return distinctFiles(s.sinceLastCommit())
}

// AllModifiedFiles returns every distinct path modified in the session.
func (s *Session) AllModifiedFiles() []string {
	return distinctFiles(s.FilesModified)
}

// CommitsSinceDocUpdate counts commits strictly after the last
// modification of a path containing doc. With no such modification every
// commit counts.
func (s *Session) CommitsSinceDocUpdate(doc string) int {
	var lastDoc time.Time
	found := false
	for _, m := range s.FilesModified {
		if doc != "" && strings.Contains(m.File, doc) {
			if !found || m.Timestamp.After(lastDoc) {
				lastDoc = m.Timestamp
				found = true
			}
		}
	}
	if !found {
		return len(s.Commits)
	}
	n := 0
	for _, c := range s.Commits {
		if c.Timestamp.After(lastDoc) {
			n++
		}
	}
	return n
}

// Duration returns the time since the session started.
func (s *Session) Duration(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

func distinctFiles(mods []Modification) []string {
	seen := make(map[string]bool, len(mods))
	var out []string
	for _, m := range mods {
		if !seen[m.File] {
			seen[m.File] = true
			out = append(out, m.File)
		}
	}
	return out
}

// CacheEntry is one cached verification result.
type CacheEntry struct {
	Result    json.RawMessage `json:"result"`
	Timestamp time.Time       `json:"timestamp"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Valid reports whether the entry is still live at now.
func (e CacheEntry) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Cache maps "tool:path" keys to entries.
type Cache map[string]CacheEntry

// Metric names recorded when a session stops cleanly.
const (
	MetricSessionFilesModified = "session_files_modified"
	MetricSessionDuration      = "session_duration_seconds"
)

// MetricPoint is one sample of a metric series.
type MetricPoint struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Metrics maps metric names to ordered samples, oldest first.
type Metrics map[string][]MetricPoint

// Latest returns the most recent value of name.
func (m Metrics) Latest(name string) (float64, bool) {
	series := m[name]
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1].Value, true
}
