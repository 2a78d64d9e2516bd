package db

import (
	"time"

	"gorm.io/datatypes"
)

// ThroughputRun is one persisted pass over a request log.
type ThroughputRun struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	// ExpiresAt is the timestamp after which this run is eligible for
	// deletion by the retention worker. A nil value means the run does
	// not expire.
	ExpiresAt *time.Time `gorm:"index"`

	// Source is the request log path the run was computed from.
	Source string `gorm:"index;size:1024;not null"`

	TotalRows      int `gorm:"not null"`
	MalformedRows  int `gorm:"not null"`
	NonNumericRows int `gorm:"not null"`
	RetainedRows   int `gorm:"not null"`

	Windows        int     `gorm:"not null"`
	PeakThroughput int64   `gorm:"not null"`
	MeanThroughput float64 `gorm:"not null"`

	LatencyMeanMs float64 `gorm:"not null"`
	LatencyP50Ms  int64   `gorm:"not null"`
	LatencyP95Ms  int64   `gorm:"not null"`
	LatencyP99Ms  int64   `gorm:"not null"`

	// ResponseCodes maps response code to request count.
	ResponseCodes datatypes.JSONMap `gorm:"type:json"`

	Buckets []ThroughputBucket `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// ThroughputBucket is the request count of one window of a run.
type ThroughputBucket struct {
	ID uint `gorm:"primaryKey"`

	RunID       uint  `gorm:"uniqueIndex:idx_throughput_bucket_unique,priority:1;not null"`
	WindowIndex int64 `gorm:"uniqueIndex:idx_throughput_bucket_unique,priority:2;not null"` // seconds since the first request
	Count       int64 `gorm:"not null"`
}
