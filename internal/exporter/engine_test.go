package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontend-infra/nginx-log-exporter/internal/histogram"
	"github.com/frontend-infra/nginx-log-exporter/internal/metrics"
)

func newTestEngine(t *testing.T, pattern string) *Engine {
	t.Helper()
	collector, err := metrics.NewCollector()
	require.NoError(t, err)
	return New(Options{
		Pattern: pattern,
		Buckets: histogram.Exponential(0.005, 2.0, 10),
		Logger:  zerolog.Nop(),
		Metrics: collector,
	})
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(content)
	require.NoError(t, err)
}

func logLine(method, url, host, status, duration string) string {
	return fmt.Sprintf(`{"http":{"response":{"status_code":"%s"}},"nginx":{"access":{"method":"%s","url":"%s","host":"%s"},"time":{"request":"%s"}}}`+"\n",
		status, method, url, host, duration)
}

func TestScrapeSingleRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendLog(t, path, `{"http":{"response":{"status_code":"200"}},"nginx":{"access":{"method":"GET","url":"/x","host":"h"},"time":{"request":"0.02"}}}`+"\n")

	engine := newTestEngine(t, filepath.Join(dir, "*.log"))
	out, err := engine.Scrape()
	require.NoError(t, err)

	assert.Contains(t, out, "# HELP nginx_http_request_duration_seconds Request duration in seconds\n")
	assert.Contains(t, out, "# TYPE nginx_http_request_duration_seconds histogram\n")

	labels := `method="GET",path="/x",status_code="2xx",host="h"`
	// 0.02 falls exactly on the third bound; the containing bucket and all
	// wider ones count it, narrower ones do not.
	assert.Contains(t, out, fmt.Sprintf(`_bucket{%s,le="0.005"} 0`, labels))
	assert.Contains(t, out, fmt.Sprintf(`_bucket{%s,le="0.01"} 0`, labels))
	assert.Contains(t, out, fmt.Sprintf(`_bucket{%s,le="0.02"} 1`, labels))
	assert.Contains(t, out, fmt.Sprintf(`_bucket{%s,le="2.56"} 1`, labels))
	assert.Contains(t, out, fmt.Sprintf(`_bucket{%s,le="+Inf"} 1`, labels))
	assert.Contains(t, out, fmt.Sprintf(`_sum{%s} 0.02`, labels))
	assert.Contains(t, out, fmt.Sprintf(`_count{%s} 1`, labels))
}

func TestScrapeIdempotentWithoutNewData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendLog(t, path, logLine("GET", "/a", "h", "200", "0.1"))
	appendLog(t, path, logLine("POST", "/b", "h", "503", "1.5"))

	engine := newTestEngine(t, filepath.Join(dir, "*.log"))
	first, err := engine.Scrape()
	require.NoError(t, err)
	second, err := engine.Scrape()
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-scraping without new bytes must yield identical output")
}

func TestScrapeAccumulatesAcrossScrapes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendLog(t, path, logLine("GET", "/x", "h", "200", "0.25"))

	engine := newTestEngine(t, filepath.Join(dir, "*.log"))
	_, err := engine.Scrape()
	require.NoError(t, err)

	appendLog(t, path, logLine("GET", "/x", "h", "200", "0.5"))
	out, err := engine.Scrape()
	require.NoError(t, err)

	labels := `method="GET",path="/x",status_code="2xx",host="h"`
	assert.Contains(t, out, fmt.Sprintf(`_count{%s} 2`, labels))
	assert.Contains(t, out, fmt.Sprintf(`_sum{%s} 0.75`, labels))
}

func TestScrapeRotationNoDoubleCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendLog(t, path, logLine("GET", "/x", "h", "200", "0.01"))
	appendLog(t, path, logLine("GET", "/x", "h", "200", "0.01"))

	engine := newTestEngine(t, filepath.Join(dir, "*.log"))
	_, err := engine.Scrape()
	require.NoError(t, err)

	// Replace the file: same path, new identity, shorter content.
	require.NoError(t, os.Rename(path, path+".rotated"))
	require.NoError(t, os.Remove(path+".rotated"))
	appendLog(t, path, logLine("GET", "/x", "h", "200", "0.01"))

	out, err := engine.Scrape()
	require.NoError(t, err)

	labels := `method="GET",path="/x",status_code="2xx",host="h"`
	assert.Contains(t, out, fmt.Sprintf(`_count{%s} 3`, labels),
		"old lines kept once, new file read from offset 0")
}

func TestScrapeTruncationResetsOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendLog(t, path, logLine("GET", "/long-enough-path", "h", "200", "0.01"))

	engine := newTestEngine(t, filepath.Join(dir, "*.log"))
	_, err := engine.Scrape()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(logLine("GET", "/y", "h", "200", "0.02")), 0o644))

	out, err := engine.Scrape()
	require.NoError(t, err)
	assert.Contains(t, out, `_count{method="GET",path="/y",status_code="2xx",host="h"} 1`)
}

func TestScrapeInvalidStatusSkipsRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendLog(t, path, logLine("GET", "/x", "h", "abc", "0.02"))
	appendLog(t, path, logLine("GET", "/ok", "h", "200", "0.02"))

	engine := newTestEngine(t, filepath.Join(dir, "*.log"))
	out, err := engine.Scrape()
	require.NoError(t, err, "an invalid status class drops one record, not the scrape")

	assert.NotContains(t, out, `path="/x"`)
	assert.Contains(t, out, `_count{method="GET",path="/ok",status_code="2xx",host="h"} 1`)
}

func TestScrapeNonNumericDurationDroppedSilently(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendLog(t, path, logLine("GET", "/x", "h", "200", "not-a-number"))

	engine := newTestEngine(t, filepath.Join(dir, "*.log"))
	out, err := engine.Scrape()
	require.NoError(t, err)
	assert.NotContains(t, out, `path="/x"`)
}

func TestScrapeMalformedLineSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendLog(t, path, "this is not json\n")
	appendLog(t, path, logLine("GET", "/ok", "h", "200", "0.5"))

	engine := newTestEngine(t, filepath.Join(dir, "*.log"))
	out, err := engine.Scrape()
	require.NoError(t, err)
	assert.Contains(t, out, `_count{method="GET",path="/ok",status_code="2xx",host="h"} 1`)

	// The malformed line's bytes count toward the offset: it is never re-read.
	out, err = engine.Scrape()
	require.NoError(t, err)
	assert.Contains(t, out, `_count{method="GET",path="/ok",status_code="2xx",host="h"} 1`)
}

func TestScrapeMissingFileSkipped(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.log")
	appendLog(t, good, logLine("GET", "/ok", "h", "200", "0.5"))
	bad := filepath.Join(dir, "vanishing.log")
	appendLog(t, bad, logLine("GET", "/gone", "h", "200", "0.5"))

	engine := newTestEngine(t, filepath.Join(dir, "*.log"))
	_, err := engine.Scrape()
	require.NoError(t, err)

	require.NoError(t, os.Remove(bad))
	appendLog(t, good, logLine("GET", "/ok", "h", "200", "0.5"))

	out, err := engine.Scrape()
	require.NoError(t, err, "a vanished file must not fail the scrape")
	assert.Contains(t, out, `_count{method="GET",path="/ok",status_code="2xx",host="h"} 2`)
}

func TestScrapeBadPatternIsFatal(t *testing.T) {
	engine := newTestEngine(t, "[")
	_, err := engine.Scrape()
	require.Error(t, err)
}

func TestScrapeDeterministicOrdering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	appendLog(t, path, logLine("POST", "/b", "h2", "500", "0.2"))
	appendLog(t, path, logLine("GET", "/a", "h1", "200", "0.1"))
	appendLog(t, path, logLine("GET", "/a", "h0", "204", "0.1"))

	engine := newTestEngine(t, filepath.Join(dir, "*.log"))
	out, err := engine.Scrape()
	require.NoError(t, err)

	idxGetH0 := strings.Index(out, `host="h0"`)
	idxGetH1 := strings.Index(out, `host="h1"`)
	idxPost := strings.Index(out, `method="POST"`)
	require.NotEqual(t, -1, idxGetH0)
	require.NotEqual(t, -1, idxGetH1)
	require.NotEqual(t, -1, idxPost)
	assert.Less(t, idxGetH0, idxGetH1)
	assert.Less(t, idxGetH1, idxPost)
}

func TestScrapeMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	appendLog(t, filepath.Join(dir, "a.log"), logLine("GET", "/a", "h", "200", "0.1"))
	appendLog(t, filepath.Join(dir, "b.log"), logLine("GET", "/b", "h", "200", "0.1"))

	engine := newTestEngine(t, filepath.Join(dir, "*.log"))
	out, err := engine.Scrape()
	require.NoError(t, err)

	assert.Contains(t, out, `path="/a"`)
	assert.Contains(t, out, `path="/b"`)
}
