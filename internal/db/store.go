package db

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"throughputplot/internal/pipeline"
)

// NewRun maps a pipeline result to a run row with one bucket per window.
// A positive retentionDays sets ExpiresAt relative to now.
func NewRun(source string, res *pipeline.Result, now time.Time, retentionDays int) ThroughputRun {
	s := res.Summary

	codes := datatypes.JSONMap{}
	for code, n := range s.ResponseCodes {
		codes[code] = n
	}

	var expiresAt *time.Time
	if retentionDays > 0 {
		t := now.Add(time.Duration(retentionDays) * 24 * time.Hour)
		expiresAt = &t
	}

	buckets := make([]ThroughputBucket, 0, len(res.Series))
	for _, wc := range res.Series {
		buckets = append(buckets, ThroughputBucket{WindowIndex: int64(wc.Window), Count: wc.Count})
	}

	return ThroughputRun{
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
		Source:         source,
		TotalRows:      s.TotalRows,
		MalformedRows:  s.MalformedRows,
		NonNumericRows: s.NonNumericRows,
		RetainedRows:   s.RetainedRows,
		Windows:        s.Windows,
		PeakThroughput: s.PeakThroughput,
		MeanThroughput: s.MeanThroughput,
		LatencyMeanMs:  s.LatencyMeanMs,
		LatencyP50Ms:   s.LatencyP50Ms,
		LatencyP95Ms:   s.LatencyP95Ms,
		LatencyP99Ms:   s.LatencyP99Ms,
		ResponseCodes:  codes,
		Buckets:        buckets,
	}
}

// SaveRun persists a run and its buckets in one transaction.
func SaveRun(db *gorm.DB, source string, res *pipeline.Result, retentionDays int) (*ThroughputRun, error) {
	run := NewRun(source, res, time.Now().UTC(), retentionDays)
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&run).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "save throughput run")
	}
	return &run, nil
}

// RecentRuns returns the newest runs, optionally limited to one source,
// with buckets ordered by window.
func RecentRuns(db *gorm.DB, source string, limit int) ([]ThroughputRun, error) {
	var runs []ThroughputRun
	if err := recentRunsQuery(db, source, limit).Find(&runs).Error; err != nil {
		return nil, errors.Wrap(err, "query throughput runs")
	}
	return runs, nil
}

func recentRunsQuery(db *gorm.DB, source string, limit int) *gorm.DB {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	q := withBuckets(db).Order("created_at DESC").Limit(limit)
	if source != "" {
		q = q.Where("source = ?", source)
	}
	return q
}

func withBuckets(db *gorm.DB) *gorm.DB {
	return db.Preload("Buckets", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("window_index ASC")
	})
}

// Series rebuilds the throughput series of a persisted run.
func (r *ThroughputRun) Series() pipeline.Series {
	series := make(pipeline.Series, 0, len(r.Buckets))
	for _, b := range r.Buckets {
		series = append(series, pipeline.WindowCount{Window: pipeline.TimeWindow(b.WindowIndex), Count: b.Count})
	}
	return series
}

// LatestRun returns the newest run for source, or gorm.ErrRecordNotFound.
func LatestRun(db *gorm.DB, source string) (*ThroughputRun, error) {
	var run ThroughputRun
	err := withBuckets(db).Where("source = ?", source).Order("created_at DESC").First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}
