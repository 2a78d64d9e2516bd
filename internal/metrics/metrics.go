package metrics

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"throughputplot/internal/pipeline"
)

const namespace = "throughputplot"

// Collector exposes the outcome of the most recent pipeline run.
// It owns a private registry so several collectors can coexist.
type Collector struct {
	registry *prometheus.Registry

	// mu keeps concurrent Observe calls from interleaving two runs.
	mu sync.Mutex

	runsTotal      prometheus.Counter
	rows           *prometheus.GaugeVec
	windows        prometheus.Gauge
	peakThroughput prometheus.Gauge
	meanThroughput prometheus.Gauge
	latency        *prometheus.HistogramVec
}

// New creates a Collector and registers its metrics.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of passes over the request log.",
		}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows",
			Help:      "Rows of the last run by outcome.",
		}, []string{"outcome"}),
		windows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "windows",
			Help:      "One-second windows with at least one request in the last run.",
		}),
		peakThroughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peak_requests_per_second",
			Help:      "Highest request count in a single window of the last run.",
		}),
		meanThroughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_requests_per_second",
			Help:      "Retained requests divided by the seconds spanned in the last run.",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "Latency of retained requests in the last run.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"response_code"}),
	}
	c.registry.MustRegister(c.runsTotal, c.rows, c.windows, c.peakThroughput, c.meanThroughput, c.latency)
	return c
}

// Observe replaces the last-run metrics with res.
func (c *Collector) Observe(res *pipeline.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := res.Summary
	c.runsTotal.Inc()
	c.rows.WithLabelValues("retained").Set(float64(s.RetainedRows))
	c.rows.WithLabelValues("malformed").Set(float64(s.MalformedRows))
	c.rows.WithLabelValues("non_numeric").Set(float64(s.NonNumericRows))
	c.windows.Set(float64(s.Windows))
	c.peakThroughput.Set(float64(s.PeakThroughput))
	c.meanThroughput.Set(s.MeanThroughput)

	c.latency.Reset()
	for _, r := range res.Records {
		c.latency.WithLabelValues(strings.TrimSpace(r.ResponseCode)).
			Observe(float64(r.Latency) / 1000.0)
	}
}

// Gatherer returns the registry backing this collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteText writes every metric in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	encoder := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return errors.Wrapf(err, "encode metric %s", mf.GetName())
		}
	}
	return nil
}

// WriteFile writes the metrics to path for a textfile collector. The file
// is written next to its destination and renamed so scrapers never see a
// partial file.
func (c *Collector) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := c.WriteText(&buf); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create metrics file for %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write metrics file %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close metrics file %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "move metrics file to %s", path)
	}
	return nil
}
