package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fyrsmithlabs/hookguard/internal/state"
)

// Namespace prefixes every exported metric.
const Namespace = "hookguard"

// Source is the state a Collector reads.
type Source interface {
	LoadSession() (*state.Session, error)
	LoadCache() (state.Cache, error)
	LoadMetrics() (state.Metrics, error)
	Now() time.Time
}

var (
	filesModifiedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "session", "files_modified"),
		"File modifications since the last commit",
		nil, nil,
	)
	filesModifiedTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "session", "files_modified_total"),
		"File modifications in the current session",
		nil, nil,
	)
	verificationsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "session", "verifications_total"),
		"Assumption verifications requested in the current session",
		nil, nil,
	)
	commitsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "session", "commits_total"),
		"Commits observed in the current session",
		nil, nil,
	)
	durationDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "session", "duration_seconds"),
		"Age of the current session",
		nil, nil,
	)
	cacheEntriesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "cache", "entries"),
		"Unexpired verification cache entries",
		nil, nil,
	)
	metricLatestDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "metric", "latest"),
		"Most recent value of a recorded metric series",
		[]string{"name"}, nil,
	)
	metricSamplesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "metric", "samples"),
		"Retained samples of a recorded metric series",
		[]string{"name"}, nil,
	)
	scrapeErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "state", "read_errors"),
		"State records that could not be read during collection",
		[]string{"record"}, nil,
	)
)

// Collector reads state on every collection.
type Collector struct {
	src Source
}

// NewCollector creates a collector over src.
func NewCollector(src Source) *Collector {
	return &Collector{src: src}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- filesModifiedDesc
	ch <- filesModifiedTotalDesc
	ch <- verificationsDesc
	ch <- commitsDesc
	ch <- durationDesc
	ch <- cacheEntriesDesc
	ch <- metricLatestDesc
	ch <- metricSamplesDesc
	ch <- scrapeErrorsDesc
}

// Collect implements prometheus.Collector. Unreadable records are reported
// through hookguard_state_read_errors instead of failing the collection.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	errs := map[string]float64{state.SessionFile: 0, state.CacheFile: 0, state.MetricsFile: 0}
	defer func() {
		for record, n := range errs {
			ch <- prometheus.MustNewConstMetric(scrapeErrorsDesc, prometheus.GaugeValue, n, record)
		}
	}()

	sess, err := c.src.LoadSession()
	if err != nil {
		errs[state.SessionFile]++
	}
	ch <- prometheus.MustNewConstMetric(filesModifiedDesc, prometheus.GaugeValue, float64(sess.ModifiedFilesCount()))
	ch <- prometheus.MustNewConstMetric(filesModifiedTotalDesc, prometheus.CounterValue, float64(len(sess.FilesModified)))
	ch <- prometheus.MustNewConstMetric(verificationsDesc, prometheus.CounterValue, float64(sess.VerificationCount()))
	ch <- prometheus.MustNewConstMetric(commitsDesc, prometheus.CounterValue, float64(len(sess.Commits)))
	ch <- prometheus.MustNewConstMetric(durationDesc, prometheus.GaugeValue, sess.Duration(c.src.Now()).Seconds())

	cache, err := c.src.LoadCache()
	if err != nil {
		errs[state.CacheFile]++
	}
	ch <- prometheus.MustNewConstMetric(cacheEntriesDesc, prometheus.GaugeValue, float64(len(cache)))

	metrics, err := c.src.LoadMetrics()
	if err != nil {
		errs[state.MetricsFile]++
	}
	for name, series := range metrics {
		latest, ok := metrics.Latest(name)
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(metricLatestDesc, prometheus.GaugeValue, latest, name)
		ch <- prometheus.MustNewConstMetric(metricSamplesDesc, prometheus.GaugeValue, float64(len(series)), name)
	}
}
