// Package pipeline turns a request log into a per-second throughput series.
//
// A pass reads the log, keeps rows whose StartTime and Latency are
// all-digit, rebases start times to the earliest retained request,
// buckets them into one-second windows and counts requests per window.
package pipeline

import (
	"io"

	"github.com/sirupsen/logrus"

	"throughputplot/internal/logging"
)

var discardLogger = logging.Discard()

// Result is the outcome of one pass over a request log.
type Result struct {
	Records []NormalizedRecord
	Series  Series
	Summary Summary
}

// Run executes the whole pass over r.
func Run(r io.Reader, opts Options) (*Result, error) {
	ingest, err := Ingest(r, opts)
	if err != nil {
		return nil, err
	}
	return process(ingest, opts), nil
}

// RunFile executes the whole pass over the file at path. The file is
// closed before RunFile returns.
func RunFile(path string, opts Options) (*Result, error) {
	ingest, err := IngestFile(path, opts)
	if err != nil {
		return nil, err
	}
	return process(ingest, opts), nil
}

func process(ingest *IngestResult, opts Options) *Result {
	valid, dropped := Validate(ingest.Records)
	records := Normalize(valid)
	series := Aggregate(records)

	res := &Result{
		Records: records,
		Series:  series,
		Summary: Summarize(ingest, records, series),
	}

	opts.logger().WithFields(logrus.Fields{
		"rows":        ingest.TotalRows,
		"malformed":   ingest.MalformedRows,
		"non_numeric": dropped,
		"retained":    len(records),
		"windows":     len(series),
	}).Debug("request log processed")
	return res
}
