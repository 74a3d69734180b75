// Package metrics provides the exporter's own operational metrics on a
// private Prometheus registry, served alongside the nginx histogram.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Line outcome labels for the lines_total counter.
const (
	LineParsed          = "parsed"
	LineMalformed       = "malformed"
	LineInvalidStatus   = "invalid_status"
	LineMissingDuration = "missing_duration"
)

const namespace = "nginx_exporter"

// Collector tracks the exporter's own health: scrape activity, line
// outcomes, watched files, rotations, and per-file errors.
type Collector struct {
	registry *prometheus.Registry

	scrapes        prometheus.Counter
	scrapeDuration prometheus.Histogram
	lines          *prometheus.CounterVec
	watchedFiles   prometheus.Gauge
	rotations      prometheus.Counter
	fileErrors     prometheus.Counter
}

// NewCollector creates a collector with all metrics registered on a fresh
// registry.
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		scrapes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_total",
			Help:      "Total number of scrape cycles performed.",
		}),
		scrapeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Duration of scrape cycles in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Total log lines consumed by outcome.",
		}, []string{"result"}),
		watchedFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watched_files",
			Help:      "Current number of log files matched by the glob pattern.",
		}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rotations_total",
			Help:      "Total number of file rotations detected.",
		}),
		fileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_errors_total",
			Help:      "Total number of per-file errors that skipped a scrape cycle.",
		}),
	}

	collectors := []prometheus.Collector{
		c.scrapes,
		c.scrapeDuration,
		c.lines,
		c.watchedFiles,
		c.rotations,
		c.fileErrors,
	}
	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Gatherer exposes the underlying registry for exposition encoding.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// ObserveScrape records one completed scrape cycle and its duration.
func (c *Collector) ObserveScrape(d time.Duration) {
	c.scrapes.Inc()
	c.scrapeDuration.Observe(d.Seconds())
}

// IncLine records the outcome of one consumed log line.
func (c *Collector) IncLine(result string) {
	c.lines.WithLabelValues(result).Inc()
}

// SetWatchedFiles records the current watched file count.
func (c *Collector) SetWatchedFiles(n int) {
	c.watchedFiles.Set(float64(n))
}

// IncRotation records a detected file rotation.
func (c *Collector) IncRotation() {
	c.rotations.Inc()
}

// IncFileError records a per-file error that skipped one scrape cycle.
func (c *Collector) IncFileError() {
	c.fileErrors.Inc()
}
