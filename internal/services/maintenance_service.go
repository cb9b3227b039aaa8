package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/models"
)

// Schedules for the periodic jobs.
const (
	CleanupSchedule = "@daily"
	SummarySchedule = "@weekly"
)

// GrantPruner is implemented by grant stores that hold server-side state.
type GrantPruner interface {
	Prune(now time.Time) int
}

// MaintenanceService runs the retention sweep and the weekly summary.
type MaintenanceService struct {
	attempts  *AttemptLog
	spam      *SpamService
	notifier  *NotificationService
	grants    GrantPruner
	retention time.Duration
	summary   bool
	now       func() time.Time

	cron *cron.Cron
}

// NewMaintenanceService wires the periodic jobs. grants, spam and notifier
// may be nil.
func NewMaintenanceService(attempts *AttemptLog, retention time.Duration) *MaintenanceService {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &MaintenanceService{
		attempts:  attempts,
		retention: retention,
		now:       time.Now,
	}
}

// SetClock overrides the time source.
func (m *MaintenanceService) SetClock(now func() time.Time) { m.now = now }

// WithGrants prunes expired grants during cleanup.
func (m *MaintenanceService) WithGrants(g GrantPruner) *MaintenanceService {
	m.grants = g
	return m
}

// WithSummary enables the weekly summary through notifier.
func (m *MaintenanceService) WithSummary(notifier *NotificationService, spam *SpamService) *MaintenanceService {
	m.notifier = notifier
	m.spam = spam
	m.summary = notifier != nil
	return m
}

// Start schedules the jobs. It is safe to call once.
func (m *MaintenanceService) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(CleanupSchedule, func() { m.RunCleanup() }); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	if m.summary {
		if _, err := c.AddFunc(SummarySchedule, func() {
			if err := m.SendWeeklySummary(); err != nil {
				logger.Log().WithError(err).Warn("weekly summary failed")
			}
		}); err != nil {
			return fmt.Errorf("schedule summary: %w", err)
		}
	}
	c.Start()
	m.cron = c
	logger.Log().Info("maintenance jobs scheduled")
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (m *MaintenanceService) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	m.cron = nil
}

// RunCleanup removes attempts past the retention window and expired grants.
// Running it twice in a row is harmless.
func (m *MaintenanceService) RunCleanup() (int64, error) {
	cutoff := m.now().Add(-m.retention)
	removed, err := m.attempts.Prune(cutoff)
	if err != nil {
		logger.Log().WithError(err).Error("attempt log cleanup failed")
		return 0, err
	}
	grants := 0
	if m.grants != nil {
		grants = m.grants.Prune(m.now())
	}
	logger.WithFields(logrus.Fields{"attempts": removed, "grants": grants}).Debug("cleanup finished")
	return removed, nil
}

// SendWeeklySummary reports deny and spam totals.
func (m *MaintenanceService) SendWeeklySummary() error {
	if m.notifier == nil {
		return nil
	}
	stats, err := m.attempts.Stats()
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Blocked requests to date: %d", stats.BlockedTotal)
	if stats.LastBlockedAt != nil {
		msg += fmt.Sprintf("\nLast blocked: %s", stats.LastBlockedAt.UTC().Format(time.RFC3339))
	}
	if m.spam != nil {
		if sp, err := m.spam.Stats(); err == nil {
			msg += fmt.Sprintf("\nSpam submissions blocked: %d", sp.BlockedTotal)
		}
	}
	m.notifier.SendExternal(models.EventSummary, "Weekly access summary", msg)
	return nil
}
