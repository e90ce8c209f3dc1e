package state

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Record file names.
const (
	SessionFile = "session.json"
	CacheFile   = "cache.json"
	MetricsFile = "metrics.json"
	lockName    = ".lock"

	// GitignoreFile hides the state directory from git status.
	GitignoreFile = ".gitignore"
)

const (
	// DefaultCacheTTL applies when CacheVerification gets a non-positive TTL.
	DefaultCacheTTL = 4 * time.Hour

	// MaxMetricPoints caps every metric series.
	MaxMetricPoints = 100
)

// Manager reads and writes the state records in one directory.
type Manager struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used to report recoverable load failures.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates the state directory if needed.
func NewManager(dir string, opts ...Option) (*Manager, error) {
	m := &Manager{
		dir:    dir,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	if err := m.ensureGitignore(); err != nil {
		m.logger.Warn("failed to write state .gitignore", zap.Error(err))
	}
	return m, nil
}

// ensureGitignore writes a .gitignore matching everything in the state
// directory unless one already exists.
func (m *Manager) ensureGitignore() error {
	path := m.path(GitignoreFile)
	if _, err := os.Stat(path); err == nil || !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return atomicWrite(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "*\n")
		return err
	})
}

// Dir returns the state directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.now()
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, name)
}

// newSession returns a fresh session whose ID derives from its start time.
func (m *Manager) newSession() *Session {
	now := m.now()
	sum := md5.Sum([]byte(now.Format(time.RFC3339Nano)))
	return &Session{
		SessionID:     hex.EncodeToString(sum[:])[:8],
		StartedAt:     now,
		Verifications: []Verification{},
		FilesModified: []Modification{},
		Commits:       []Commit{},
	}
}

// LoadSession reads the session record. A missing record yields a fresh
// session and no error; a corrupt one yields a fresh session and an error
// wrapping ErrCorruptState.
func (m *Manager) LoadSession() (*Session, error) {
	var s Session
	found, err := m.readJSON(SessionFile, &s)
	if err != nil {
		return m.newSession(), err
	}
	if !found {
		return m.newSession(), nil
	}
	if s.SessionID == "" {
		fresh := m.newSession()
		s.SessionID, s.StartedAt = fresh.SessionID, fresh.StartedAt
	}
	return &s, nil
}

// SaveSession writes the session record atomically.
func (m *Manager) SaveSession(s *Session) error {
	return m.writeJSON(SessionFile, s)
}

// LoadCache returns the unexpired cache entries. Expired entries are
// filtered, not deleted.
func (m *Manager) LoadCache() (Cache, error) {
	raw := Cache{}
	found, err := m.readJSON(CacheFile, &raw)
	if err != nil || !found {
		return Cache{}, err
	}
	now := m.now()
	live := make(Cache, len(raw))
	for k, e := range raw {
		if e.Valid(now) {
			live[k] = e
		}
	}
	return live, nil
}

// SaveCache writes the cache record atomically.
func (m *Manager) SaveCache(c Cache) error {
	if c == nil {
		c = Cache{}
	}
	return m.writeJSON(CacheFile, c)
}

// CacheVerification stores result under key for ttl, overwriting any
// previous entry. A non-positive ttl means DefaultCacheTTL.
func (m *Manager) CacheVerification(key string, result any, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("cache key: %w", ErrEmptyKey)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode cache result: %w", err)
	}

	return m.withLock(func() error {
		c, err := m.LoadCache()
		if err != nil {
			m.logger.Warn("discarding unreadable cache", zap.Error(err))
		}
		now := m.now()
		c[key] = CacheEntry{Result: raw, Timestamp: now, ExpiresAt: now.Add(ttl)}
		return m.SaveCache(c)
	})
}

// GetCachedVerification returns the cached result for key if it has not
// expired.
func (m *Manager) GetCachedVerification(key string) (json.RawMessage, bool) {
	c, err := m.LoadCache()
	if err != nil {
		m.logger.Warn("failed to load cache", zap.Error(err))
		return nil, false
	}
	e, ok := c[key]
	if !ok || !e.Valid(m.now()) {
		return nil, false
	}
	return e.Result, true
}

// updateSession runs fn on the current session under the lock and saves
// the result.
func (m *Manager) updateSession(fn func(s *Session)) error {
	return m.withLock(func() error {
		s, err := m.LoadSession()
		if err != nil {
			m.logger.Warn("starting fresh session", zap.Error(err))
		}
		fn(s)
		return m.SaveSession(s)
	})
}

// TrackModification appends a file modification.
func (m *Manager) TrackModification(file, tool string) error {
	return m.updateSession(func(s *Session) {
		s.FilesModified = append(s.FilesModified, Modification{File: file, Tool: tool, Timestamp: m.now()})
	})
}

// TrackVerification appends a verification of category with result.
func (m *Manager) TrackVerification(category string, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode verification result: %w", err)
	}
	return m.updateSession(func(s *Session) {
		s.Verifications = append(s.Verifications, Verification{Category: category, Result: raw, Timestamp: m.now()})
	})
}

// TrackCommit appends a commit. An empty hash is stored as null. The
// files count is the number of modifications since the previous commit.
func (m *Manager) TrackCommit(hash string) error {
	return m.updateSession(func(s *Session) {
		c := Commit{Timestamp: m.now(), FilesCount: s.ModifiedFilesCount()}
		if hash != "" {
			c.Hash = &hash
		}
		s.Commits = append(s.Commits, c)
	})
}

// RecordPrompt stores the most recent user prompt.
func (m *Manager) RecordPrompt(text string) error {
	return m.updateSession(func(s *Session) {
		s.LastPrompt = text
	})
}

// VerificationCount returns the number of verifications this session.
func (m *Manager) VerificationCount() int {
	return m.session().VerificationCount()
}

// ModifiedFilesCount returns modifications since the last commit.
func (m *Manager) ModifiedFilesCount() int {
	return m.session().ModifiedFilesCount()
}

// ModifiedFiles returns distinct paths modified since the last commit.
func (m *Manager) ModifiedFiles() []string {
	return m.session().ModifiedFiles()
}

// CommitsSinceDocUpdate counts commits since doc was last modified.
func (m *Manager) CommitsSinceDocUpdate(doc string) int {
	return m.session().CommitsSinceDocUpdate(doc)
}

func (m *Manager) session() *Session {
	s, err := m.LoadSession()
	if err != nil {
		m.logger.Warn("failed to load session", zap.Error(err))
	}
	return s
}

// ResetSession archives the current session as session-<id>.json and
// starts a new one. The archive ages out through CleanupOldStates.
func (m *Manager) ResetSession() (*Session, error) {
	var fresh *Session
	err := m.withLock(func() error {
		old, err := m.LoadSession()
		if err == nil {
			archive := m.path(fmt.Sprintf("session-%s.json", old.SessionID))
			if err := os.Rename(m.path(SessionFile), archive); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to archive session: %w", err)
			}
		}
		fresh = m.newSession()
		return m.SaveSession(fresh)
	})
	return fresh, err
}

// UpdateMetric appends value to the named series, keeping the most recent
// MaxMetricPoints samples.
func (m *Manager) UpdateMetric(name string, value float64) error {
	if name == "" {
		return fmt.Errorf("metric name: %w", ErrEmptyKey)
	}
	return m.withLock(func() error {
		metrics, err := m.LoadMetrics()
		if err != nil {
			m.logger.Warn("discarding unreadable metrics", zap.Error(err))
		}
		series := append(metrics[name], MetricPoint{Value: value, Timestamp: m.now()})
		if len(series) > MaxMetricPoints {
			series = series[len(series)-MaxMetricPoints:]
		}
		metrics[name] = series
		return m.writeJSON(MetricsFile, metrics)
	})
}

// LoadMetrics reads the metrics record.
func (m *Manager) LoadMetrics() (Metrics, error) {
	metrics := Metrics{}
	if _, err := m.readJSON(MetricsFile, &metrics); err != nil {
		return Metrics{}, err
	}
	if metrics == nil {
		// a literal null decodes to a nil map
		metrics = Metrics{}
	}
	return metrics, nil
}

// CleanupOldStates deletes *.json records last modified more than days
// ago and returns their names. days <= 0 disables cleanup.
func (m *Manager) CleanupOldStates(days int) ([]string, error) {
	if days <= 0 {
		return nil, nil
	}
	cutoff := m.now().Add(-time.Duration(days) * 24 * time.Hour)

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list state directory: %w", err)
	}

	var removed []string
	err = m.withLock(func() error {
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(m.path(e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
				}
				removed = append(removed, e.Name())
			}
		}
		return nil
	})
	sort.Strings(removed)
	return removed, err
}

// withLock holds the directory lock for the duration of fn.
func (m *Manager) withLock(fn func() error) error {
	f, err := os.OpenFile(m.path(lockName), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("failed to lock state: %w", err)
	}
	defer func() {
		_ = unlockFile(f) // released on close regardless
	}()

	return fn()
}

// readJSON decodes a record into v. It reports whether the file existed.
func (m *Manager) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(m.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s: %v", ErrCorruptState, name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorruptState, name, err)
	}
	return true, nil
}

// writeJSON writes v through a temp file, fsync and rename.
func (m *Manager) writeJSON(name string, v any) error {
	return atomicWrite(m.path(name), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func atomicWrite(path string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeFunc(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
