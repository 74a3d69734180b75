// Package nginxlog decodes structured nginx access-log lines into labeled
// duration records.
//
// Each line is a JSON document shaped like:
//
//	{"http":{"response":{"status_code":"200"}},
//	 "nginx":{"access":{"method":"GET","url":"/x","host":"h"},
//	          "time":{"request":"0.02"}}}
package nginxlog

import (
	"encoding/json"
	"strconv"

	"github.com/frontend-infra/nginx-log-exporter/pkg/errors"
)

// Entry mirrors the wire shape of one access-log line.
type Entry struct {
	HTTP  HTTPSection  `json:"http"`
	Nginx NginxSection `json:"nginx"`
}

// HTTPSection holds the http.* subtree.
type HTTPSection struct {
	Response ResponseSection `json:"response"`
}

// ResponseSection holds the response status code, encoded as a string.
type ResponseSection struct {
	StatusCode string `json:"status_code"`
}

// NginxSection holds the nginx.* subtree.
type NginxSection struct {
	Access AccessSection `json:"access"`
	Time   TimeSection   `json:"time"`
}

// AccessSection holds the request identity fields.
type AccessSection struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Host   string `json:"host"`
}

// TimeSection holds the request duration, a string encoding of seconds.
type TimeSection struct {
	Request string `json:"request"`
}

// Record is one parsed access-log line: a label tuple plus a duration sample.
type Record struct {
	Method      string
	Path        string
	StatusClass string
	Host        string

	// Duration is the request duration in seconds.
	Duration float64
}

// StatusClass derives the "1xx".."5xx" class label from a status code string.
// A non-numeric code or one outside 100-599 is an error.
func StatusClass(code string) (string, error) {
	status, err := strconv.Atoi(code)
	if err != nil {
		return "", errors.Newf(errors.ErrCodeInvalidStatus,
			"failed to parse status_code %q", code).WithCause(err)
	}
	if status < 100 || status > 599 {
		return "", errors.Newf(errors.ErrCodeInvalidStatus,
			"status_code %d out of range", status)
	}
	return strconv.Itoa(status/100) + "xx", nil
}

// ParseLine decodes one log line into a Record.
//
// Error codes distinguish the three failure modes the caller must treat
// differently: LINE_DECODE (malformed structure, log and skip),
// INVALID_STATUS (log and skip), MISSING_DURATION (drop silently; access
// logs legitimately carry non-numeric durations for some requests).
func ParseLine(line string) (*Record, error) {
	var entry Entry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return nil, errors.NewError(errors.ErrCodeLineDecode, err.Error()).WithCause(err)
	}

	duration, err := strconv.ParseFloat(entry.Nginx.Time.Request, 64)
	if err != nil {
		return nil, errors.Newf(errors.ErrCodeMissingDuration,
			"request time %q is not numeric", entry.Nginx.Time.Request)
	}

	class, err := StatusClass(entry.HTTP.Response.StatusCode)
	if err != nil {
		return nil, err
	}

	return &Record{
		Method:      entry.Nginx.Access.Method,
		Path:        entry.Nginx.Access.URL,
		StatusClass: class,
		Host:        entry.Nginx.Access.Host,
		Duration:    duration,
	}, nil
}
