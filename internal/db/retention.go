package db

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const expiredClause = "expires_at IS NOT NULL AND expires_at <= ?"

// runRetentionOnce performs a single pass of retention cleanup,
// deleting any runs whose ExpiresAt is in the past together with
// their buckets.
func runRetentionOnce(db *gorm.DB, now time.Time) (int64, error) {
	var deleted int64
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := deleteExpiredBuckets(tx, now).Error; err != nil {
			return err
		}
		res := deleteExpiredRuns(tx, now)
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

// deleteExpiredBuckets runs before deleteExpiredRuns: the subquery selects
// the runs about to go.
func deleteExpiredBuckets(tx *gorm.DB, now time.Time) *gorm.DB {
	expired := tx.Model(&ThroughputRun{}).Select("id").Where(expiredClause, now)
	return tx.Where("run_id IN (?)", expired).Delete(&ThroughputBucket{})
}

func deleteExpiredRuns(tx *gorm.DB, now time.Time) *gorm.DB {
	return tx.Where(expiredClause, now).Delete(&ThroughputRun{})
}

// StartRetentionWorker launches a background goroutine that runs the
// retention cleanup once at startup and then once per day.
func StartRetentionWorker(db *gorm.DB, log logrus.FieldLogger) {
	go func() {
		if n, err := runRetentionOnce(db, time.Now()); err != nil {
			log.WithError(err).Error("retention cleanup failed (startup)")
		} else if n > 0 {
			log.WithField("runs", n).Info("expired runs deleted")
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for t := range ticker.C {
			if n, err := runRetentionOnce(db, t); err != nil {
				log.WithError(err).Error("retention cleanup failed")
			} else if n > 0 {
				log.WithField("runs", n).Info("expired runs deleted")
			}
		}
	}()
}
