// Package exporter owns the scrape engine: the single state-owning component
// that refreshes the watched file set, reads newly appended log lines, folds
// them into per-label duration series, and renders the text exposition.
package exporter

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/frontend-infra/nginx-log-exporter/internal/histogram"
	"github.com/frontend-infra/nginx-log-exporter/internal/metrics"
	"github.com/frontend-infra/nginx-log-exporter/internal/nginxlog"
	"github.com/frontend-infra/nginx-log-exporter/internal/tail"
	"github.com/frontend-infra/nginx-log-exporter/pkg/errors"
)

// LabelKey is the aggregation key for duration samples. Equality is by full
// tuple.
type LabelKey struct {
	Method      string
	Path        string
	StatusClass string
	Host        string
}

// Options configures an Engine.
type Options struct {
	// Pattern is the glob naming the access logs to tail.
	Pattern string

	// Buckets are the histogram upper bounds, fixed for the process lifetime.
	Buckets histogram.BucketSet

	Logger  zerolog.Logger
	Metrics *metrics.Collector
}

// Engine aggregates request durations from tailed access logs. All state is
// in-memory and resets on restart. Sample series grow without bound for the
// lifetime of the process: every observed duration is retained so buckets can
// be recomputed exactly on each scrape. Memory therefore grows with total
// requests observed since startup.
type Engine struct {
	mu       sync.Mutex
	registry *tail.Registry
	samples  map[LabelKey][]float64
	buckets  histogram.BucketSet
	logger   zerolog.Logger
	metrics  *metrics.Collector
}

// New creates an engine for the given options.
func New(opts Options) *Engine {
	logger := opts.Logger.With().Str("component", "exporter").Logger()
	return &Engine{
		registry: tail.NewRegistry(opts.Pattern, opts.Logger),
		samples:  make(map[LabelKey][]float64),
		buckets:  opts.Buckets,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// Scrape runs one end-to-end cycle under the engine's exclusive lock:
// refresh the file set, detect rotations, read new lines, parse and
// aggregate them, then render the full accumulated state. Concurrent
// scrapes serialize on the lock.
//
// Per-file errors are logged and skip only that file; an error return is
// fatal for the whole scrape (currently only a malformed glob pattern).
func (e *Engine) Scrape() (string, error) {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.Refresh(); err != nil {
		return "", err
	}
	e.metrics.SetWatchedFiles(e.registry.Len())

	for _, st := range e.registry.Files() {
		e.consumeFile(st)
	}

	out := renderExposition(e.samples, e.buckets)
	e.metrics.ObserveScrape(time.Since(start))
	return out, nil
}

// consumeFile brings one file's rotation state up to date and folds its new
// lines into the aggregate. Any failure skips the file for this cycle only.
func (e *Engine) consumeFile(st *tail.FileState) {
	rotated, err := e.registry.CheckRotation(st)
	if err != nil {
		e.logger.Warn().Err(err).Str("path", st.Path).Msg("skipping file this scrape")
		e.metrics.IncFileError()
		return
	}
	if rotated {
		e.metrics.IncRotation()
	}

	if err := tail.ReadNewLines(st, e.consumeLine); err != nil {
		e.logger.Error().Err(err).Str("path", st.Path).Msg("failed to read log file")
		e.metrics.IncFileError()
	}
}

func (e *Engine) consumeLine(line string) {
	rec, err := nginxlog.ParseLine(line)
	switch errors.CodeOf(err) {
	case "":
		key := LabelKey{
			Method:      rec.Method,
			Path:        rec.Path,
			StatusClass: rec.StatusClass,
			Host:        rec.Host,
		}
		e.samples[key] = append(e.samples[key], rec.Duration)
		e.metrics.IncLine(metrics.LineParsed)
	case errors.ErrCodeMissingDuration:
		// Deliberately silent: upstream logs carry non-numeric durations
		// for some requests and those lines must not pollute aggregates.
		e.metrics.IncLine(metrics.LineMissingDuration)
	case errors.ErrCodeInvalidStatus:
		e.logger.Warn().Err(err).Msg("dropping record with invalid status code")
		e.metrics.IncLine(metrics.LineInvalidStatus)
	default:
		e.logger.Error().Err(err).Str("line", line).Msg("failed to parse log line")
		e.metrics.IncLine(metrics.LineMalformed)
	}
}
