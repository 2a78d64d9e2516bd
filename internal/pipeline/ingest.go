package pipeline

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FieldsPerRecord is the number of positional fields in a request log row:
// StartTime, RequestType, Latency, ResponseCode.
const FieldsPerRecord = 4

// Options controls how the request log is read.
type Options struct {
	// SkipHeaderRows leading lines are dropped regardless of content,
	// blank or unbalanced quotes included.
	SkipHeaderRows int
	// Comma is the field separator; zero means ','.
	Comma rune
	// Logger receives per-row diagnostics at debug level. Optional.
	Logger logrus.FieldLogger
}

// DefaultOptions matches the request log written by the load-test client:
// comma separated with a single header row.
func DefaultOptions() Options {
	return Options{SkipHeaderRows: 1, Comma: ','}
}

// IngestResult holds the rows read from the source.
type IngestResult struct {
	Records []RawRecord
	// TotalRows counts every row after the header rows, malformed or not.
	TotalRows int
	// MalformedRows counts rows with the wrong field count or broken quoting.
	MalformedRows int
}

// SourceError reports a request log that could not be opened or read.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("request log %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Ingest reads delimited rows from r. Rows with a field count other than
// FieldsPerRecord are skipped and counted, never fatal.
func Ingest(r io.Reader, opts Options) (*IngestResult, error) {
	log := opts.logger()

	br := bufio.NewReader(r)
	headerLines, err := skipLines(br, opts.SkipHeaderRows)
	if err != nil {
		return nil, errors.Wrap(err, "read request log header")
	}

	cr := csv.NewReader(br)
	cr.Comma = opts.comma()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	res := &IngestResult{}
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			res.TotalRows++
			res.MalformedRows++
			log.WithField("line", parseErr.Line+headerLines).WithError(err).Debug("skipping unparseable row")
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "read request log")
		}

		res.TotalRows++
		line, _ := cr.FieldPos(0)
		line += headerLines

		if len(fields) != FieldsPerRecord {
			res.MalformedRows++
			log.WithFields(logrus.Fields{"line": line, "fields": len(fields)}).Debug("skipping malformed row")
			continue
		}

		res.Records = append(res.Records, RawRecord{
			StartTime:    fields[0],
			RequestType:  fields[1],
			Latency:      fields[2],
			ResponseCode: fields[3],
			Line:         line,
		})
	}
	return res, nil
}

// skipLines consumes up to n physical lines from br and returns how many
// it consumed.
func skipLines(br *bufio.Reader, n int) (int, error) {
	for i := 0; i < n; i++ {
		text, err := br.ReadString('\n')
		if err == io.EOF {
			if text != "" {
				i++
			}
			return i, nil
		}
		if err != nil {
			return i, err
		}
	}
	return n, nil
}

// IngestFile opens path and ingests it. A missing or unreadable file is
// reported as a *SourceError.
func IngestFile(path string, opts Options) (*IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	defer f.Close()

	res, err := Ingest(f, opts)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	return res, nil
}

func (o Options) comma() rune {
	if o.Comma == 0 {
		return ','
	}
	return o.Comma
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return discardLogger
	}
	return o.Logger
}
