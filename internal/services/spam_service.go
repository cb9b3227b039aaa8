package services

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/geogate/internal/config"
	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/metrics"
	"github.com/Wikid82/geogate/internal/models"
	"github.com/Wikid82/geogate/internal/util"
)

// Submission kinds.
const (
	SubmissionComment   = "comment"
	SubmissionTrackback = "trackback"
	SubmissionPingback  = "pingback"
)

// Rejection reasons.
const (
	ReasonTrackback      = "trackback"
	ReasonYearMismatch   = "year_mismatch"
	ReasonHoneypotFilled = "honeypot_filled"
)

// DefaultSpamMessage is shown when no custom message is configured.
const DefaultSpamMessage = "Your comment has been identified as spam."

const spamContentLimit = 500

// Submission is a posted form as seen by the heuristic.
type Submission struct {
	Type          string
	Author        string
	Email         string
	Content       string
	IP            string
	Authenticated bool

	// YearAnswer is the visible year field, JSYear the script-filled
	// fallback and Trap the honeypot that must stay empty.
	YearAnswer string
	JSYear     string
	Trap       string
}

// Verdict is the outcome of Check.
type Verdict struct {
	Spam    bool
	Reason  string
	Message string
}

// SpamStats summarises rejections.
type SpamStats struct {
	BlockedTotal  int64            `json:"blocked_total"`
	LastBlockedAt *time.Time       `json:"last_blocked_at"`
	Reasons       map[string]int64 `json:"reasons"`
}

type SpamService struct {
	db       *gorm.DB
	cfg      config.SpamConfig
	now      func() time.Time
	notifier *NotificationService

	mu sync.Mutex
}

func NewSpamService(db *gorm.DB, cfg config.SpamConfig) *SpamService {
	if cfg.SavedCap <= 0 {
		cfg.SavedCap = 100
	}
	return &SpamService{db: db, cfg: cfg, now: time.Now}
}

// SetClock overrides the time source.
func (s *SpamService) SetClock(now func() time.Time) { s.now = now }

// SetNotifier enables spam alerts.
func (s *SpamService) SetNotifier(n *NotificationService) { s.notifier = n }

// Enabled reports whether submissions are checked at all.
func (s *SpamService) Enabled() bool { return s.cfg.Enabled }

// ExpectedYear is the value the year field must carry.
func (s *SpamService) ExpectedYear() string {
	return strconv.Itoa(s.now().UTC().Year())
}

// Check classifies a submission and, when it is spam, records it.
func (s *SpamService) Check(sub Submission) Verdict {
	reason := s.classify(sub)
	if reason == "" {
		return Verdict{}
	}
	s.handleSpam(sub, reason)
	return Verdict{Spam: true, Reason: reason, Message: s.Message()}
}

func (s *SpamService) classify(sub Submission) string {
	if sub.Authenticated {
		return ""
	}
	switch sub.Type {
	case SubmissionPingback:
		return ""
	case SubmissionTrackback:
		if s.cfg.BlockTrackbacks {
			return ReasonTrackback
		}
		return ""
	}

	year := s.ExpectedYear()
	if strings.TrimSpace(sub.YearAnswer) != year && strings.TrimSpace(sub.JSYear) != year {
		return ReasonYearMismatch
	}
	if strings.TrimSpace(sub.Trap) != "" {
		return ReasonHoneypotFilled
	}
	return ""
}

// Message is the text shown to a rejected submitter.
func (s *SpamService) Message() string {
	if s.cfg.CustomErrorMessage != "" {
		return s.cfg.CustomErrorMessage
	}
	return DefaultSpamMessage
}

func (s *SpamService) handleSpam(sub Submission, reason string) {
	metrics.IncSpamBlocked(reason)
	logger.WithFields(logrus.Fields{
		"reason": reason,
		"ip":     sub.IP,
		"author": util.SanitizeForLog(sub.Author),
	}).Info("spam submission rejected")

	if err := s.increment(reason); err != nil {
		logger.Log().WithError(err).Warn("failed to update spam counters")
	}
	if s.cfg.SaveSpam {
		if err := s.store(sub, reason); err != nil {
			logger.Log().WithError(err).Warn("failed to store spam submission")
		}
	}
	if s.cfg.Notify && s.notifier != nil {
		s.notifier.SendExternal(models.EventSpam, "Spam comment blocked", spamNotification(sub, reason, s.now()))
	}
}

func (s *SpamService) increment(reason string) error {
	now := s.now().UTC()
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "reason"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":           gorm.Expr("spam_counters.count + 1"),
			"last_blocked_at": now,
		}),
	}).Create(&models.SpamCounter{Reason: reason, Count: 1, LastBlockedAt: &now}).Error
}

func (s *SpamService) store(sub Submission, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Transaction(func(tx *gorm.DB) error {
		rec := &models.SpamRecord{
			Author:    sub.Author,
			Email:     sub.Email,
			Content:   util.Truncate(sub.Content, spamContentLimit),
			Reason:    reason,
			IP:        sub.IP,
			CreatedAt: s.now().UTC(),
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		return trimToCap(tx, &models.SpamRecord{}, s.cfg.SavedCap)
	})
}

// Stats returns the total and per-reason counts.
func (s *SpamService) Stats() (*SpamStats, error) {
	var counters []models.SpamCounter
	if err := s.db.Find(&counters).Error; err != nil {
		return nil, err
	}
	st := &SpamStats{Reasons: make(map[string]int64, len(counters))}
	for _, c := range counters {
		st.BlockedTotal += c.Count
		st.Reasons[c.Reason] = c.Count
		if c.LastBlockedAt != nil && (st.LastBlockedAt == nil || c.LastBlockedAt.After(*st.LastBlockedAt)) {
			t := *c.LastBlockedAt
			st.LastBlockedAt = &t
		}
	}
	return st, nil
}

// Saved returns stored spam submissions, newest first.
func (s *SpamService) Saved(limit int) ([]models.SpamRecord, error) {
	var res []models.SpamRecord
	q := s.db.Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// Reset clears counters and stored submissions.
func (s *SpamService) Reset() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.SpamCounter{}).Error; err != nil {
			return err
		}
		return all.Delete(&models.SpamRecord{}).Error
	})
}

func spamNotification(sub Submission, reason string, at time.Time) string {
	unknown := func(v string) string {
		if v == "" {
			return "Unknown"
		}
		return v
	}
	return fmt.Sprintf("A spam comment was blocked.\n\nReason: %s\nAuthor: %s\nEmail: %s\nIP: %s\nContent: %s\n\nTime: %s",
		reason, unknown(sub.Author), unknown(sub.Email), unknown(sub.IP),
		util.TruncateWords(sub.Content, 50), at.UTC().Format(time.RFC3339))
}
