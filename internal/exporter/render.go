package exporter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/frontend-infra/nginx-log-exporter/internal/histogram"
)

// MetricName is the exposition name of the request duration histogram.
const MetricName = "nginx_http_request_duration_seconds"

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// renderExposition renders the full accumulated aggregate as Prometheus text
// exposition: HELP/TYPE headers, then per label key one line per bucket, a
// +Inf bucket, a _sum line, and a _count line. Buckets are recomputed from
// the raw samples on every call. Label keys are sorted so output is
// deterministic for a given aggregate state.
func renderExposition(samples map[LabelKey][]float64, buckets histogram.BucketSet) string {
	keys := make([]LabelKey, 0, len(samples))
	for key := range samples {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.StatusClass != b.StatusClass {
			return a.StatusClass < b.StatusClass
		}
		return a.Host < b.Host
	})

	var out strings.Builder
	out.WriteString("# HELP " + MetricName + " Request duration in seconds\n")
	out.WriteString("# TYPE " + MetricName + " histogram\n")

	for _, key := range keys {
		durations := samples[key]
		counts := buckets.Cumulative(durations)

		var sum float64
		for _, d := range durations {
			sum += d
		}

		labels := fmt.Sprintf(`method="%s",path="%s",status_code="%s",host="%s"`,
			labelEscaper.Replace(key.Method),
			labelEscaper.Replace(key.Path),
			key.StatusClass,
			labelEscaper.Replace(key.Host))

		for i, bound := range buckets {
			fmt.Fprintf(&out, "%s_bucket{%s,le=\"%s\"} %d\n",
				MetricName, labels, histogram.FormatBound(bound), counts[i])
		}
		fmt.Fprintf(&out, "%s_bucket{%s,le=\"+Inf\"} %d\n", MetricName, labels, len(durations))
		fmt.Fprintf(&out, "%s_sum{%s} %s\n", MetricName, labels, strconv.FormatFloat(sum, 'f', -1, 64))
		fmt.Fprintf(&out, "%s_count{%s} %d\n", MetricName, labels, len(durations))
	}

	return out.String()
}
