package db

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"throughputplot/internal/config"
	"throughputplot/internal/pipeline"
)

// dryRunDB builds statements against the postgres dialect without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(
		postgres.Open("postgres://throughput@localhost:5432/throughput?sslmode=disable"),
		&gorm.Config{DryRun: true, DisableAutomaticPing: true},
	)
	require.NoError(t, err)
	return db
}

func TestRecentRunsQuery(t *testing.T) {
	db := dryRunDB(t)

	tests := []struct {
		name     string
		source   string
		limit    int
		contains []string
		excludes []string
	}{
		{
			name:     "by source",
			source:   "request_log.csv",
			limit:    5,
			contains: []string{`FROM "throughput_runs"`, "source = 'request_log.csv'", "ORDER BY created_at DESC", "LIMIT 5"},
		},
		{
			name:     "all sources",
			limit:    3,
			contains: []string{"ORDER BY created_at DESC", "LIMIT 3"},
			excludes: []string{"source ="},
		},
		{
			name:     "limit clamped",
			limit:    1000,
			contains: []string{"LIMIT 10"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
				var runs []ThroughputRun
				return recentRunsQuery(tx, tt.source, tt.limit).Find(&runs)
			})
			for _, s := range tt.contains {
				assert.Contains(t, sql, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, sql, s)
			}
		})
	}
}

func TestRetentionQueries(t *testing.T) {
	db := dryRunDB(t)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	buckets := db.ToSQL(func(tx *gorm.DB) *gorm.DB { return deleteExpiredBuckets(tx, now) })
	assert.True(t, strings.HasPrefix(buckets, `DELETE FROM "throughput_buckets"`), buckets)
	assert.Contains(t, buckets, "run_id IN (SELECT")
	assert.Contains(t, buckets, `FROM "throughput_runs" WHERE expires_at IS NOT NULL AND expires_at <=`)
	assert.Contains(t, buckets, "2026-10-17")

	runs := db.ToSQL(func(tx *gorm.DB) *gorm.DB { return deleteExpiredRuns(tx, now) })
	assert.True(t, strings.HasPrefix(runs, `DELETE FROM "throughput_runs"`), runs)
	assert.Contains(t, runs, "expires_at IS NOT NULL AND expires_at <=")
	assert.NotContains(t, runs, "run_id")
}

// TestStore_Postgres needs a reachable server in APP_DATABASE_URL.
func TestStore_Postgres(t *testing.T) {
	url := os.Getenv("APP_DATABASE_URL")
	if url == "" {
		t.Skip("APP_DATABASE_URL not set")
	}
	db, err := Connect(&config.Config{DatabaseURL: url})
	require.NoError(t, err)

	source := fmt.Sprintf("%s-%d.csv", t.Name(), time.Now().UnixNano())
	res, err := pipeline.Run(strings.NewReader(
		"StartTime,RequestType,Latency,ResponseCode\n"+
			"1000,GET,50,200\n"+
			"1500,GET,60,200\n"+
			"3200,GET,40,503\n"), pipeline.DefaultOptions())
	require.NoError(t, err)

	saved, err := SaveRun(db, source, res, 30)
	require.NoError(t, err)
	require.NotZero(t, saved.ID)

	latest, err := LatestRun(db, source)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, latest.ID)
	assert.Equal(t, res.Series, latest.Series())

	recent, err := RecentRuns(db, source, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "1", fmt.Sprint(recent[0].ResponseCodes["503"]))

	expired := NewRun(source, res, time.Now().Add(-48*time.Hour), 1)
	require.NoError(t, db.Create(&expired).Error)

	_, err = runRetentionOnce(db, time.Now())
	require.NoError(t, err)

	var left int64
	require.NoError(t, db.Model(&ThroughputRun{}).Where("id = ?", expired.ID).Count(&left).Error)
	assert.Zero(t, left)
	require.NoError(t, db.Model(&ThroughputBucket{}).Where("run_id = ?", expired.ID).Count(&left).Error)
	assert.Zero(t, left)

	latest, err = LatestRun(db, source)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, latest.ID)

	_, err = LatestRun(db, "missing-"+source)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
