package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/models"
	"github.com/Wikid82/geogate/internal/util"
)

// AttemptLog is the bounded record of denied requests plus the running deny
// counter.
type AttemptLog struct {
	db  *gorm.DB
	cap int
	now func() time.Time

	// serialises insert+trim so concurrent denies cannot overshoot the cap
	mu sync.Mutex
}

func NewAttemptLog(db *gorm.DB, capacity int) *AttemptLog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &AttemptLog{db: db, cap: capacity, now: time.Now}
}

// SetClock overrides the time source.
func (l *AttemptLog) SetClock(now func() time.Time) { l.now = now }

// Cap returns the configured maximum number of stored attempts.
func (l *AttemptLog) Cap() int { return l.cap }

// Record appends an attempt, evicts the oldest entries beyond the cap and
// bumps the deny counter.
func (l *AttemptLog) Record(a *models.BlockedAttempt) error {
	if a.UUID == "" {
		a.UUID = uuid.NewString()
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = l.now().UTC()
	}
	a.UserAgent = util.Truncate(a.UserAgent, 255)

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		if err := trimToCap(tx, &models.BlockedAttempt{}, l.cap); err != nil {
			return err
		}
		return tx.Model(&models.AccessStats{}).Where("id = ?", 1).Updates(map[string]interface{}{
			"blocked_total":   gorm.Expr("blocked_total + ?", 1),
			"last_blocked_at": a.OccurredAt,
		}).Error
	})
}

// IncrementStats bumps the deny counter without storing an attempt.
func (l *AttemptLog) IncrementStats() error {
	return l.db.Model(&models.AccessStats{}).Where("id = ?", 1).Updates(map[string]interface{}{
		"blocked_total":   gorm.Expr("blocked_total + ?", 1),
		"last_blocked_at": l.now().UTC(),
	}).Error
}

// List returns the most recent attempts, newest first.
func (l *AttemptLog) List(limit int) ([]models.BlockedAttempt, error) {
	var res []models.BlockedAttempt
	q := l.db.Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// Count returns the number of stored attempts.
func (l *AttemptLog) Count() (int64, error) {
	var n int64
	err := l.db.Model(&models.BlockedAttempt{}).Count(&n).Error
	return n, err
}

// Stats returns the running counters.
func (l *AttemptLog) Stats() (*models.AccessStats, error) {
	var stats models.AccessStats
	if err := l.db.FirstOrCreate(&stats, models.AccessStats{ID: 1}).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// ResetStats zeroes the counter and clears the stored attempts.
func (l *AttemptLog) ResetStats() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.BlockedAttempt{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.AccessStats{}).Where("id = ?", 1).Updates(map[string]interface{}{
			"blocked_total":   0,
			"last_blocked_at": nil,
		}).Error
	})
}

// Prune removes attempts that occurred before cutoff.
func (l *AttemptLog) Prune(cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := l.db.Where("occurred_at < ?", cutoff.UTC()).Delete(&models.BlockedAttempt{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		logger.WithFields(logrus.Fields{"removed": res.RowsAffected, "cutoff": cutoff}).Info("pruned blocked attempts")
	}
	return res.RowsAffected, nil
}

// trimToCap keeps the newest capacity rows of model by primary key.
func trimToCap(tx *gorm.DB, model interface{}, capacity int) error {
	var ids []uint
	if err := tx.Model(model).Order("id desc").Offset(capacity-1).Limit(1).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return tx.Where("id < ?", ids[0]).Delete(model).Error
}
