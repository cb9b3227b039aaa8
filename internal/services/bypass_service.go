package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Wikid82/geogate/internal/grant"
	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/metrics"
	"github.com/Wikid82/geogate/internal/models"
	"github.com/Wikid82/geogate/internal/util"
)

var ErrNoBypassToken = errors.New("no bypass token configured")

// BypassRequest carries what is logged about a successful bypass.
type BypassRequest struct {
	IP          string
	UserAgent   string
	RequestPath string
}

// BypassStatus is the administrator-visible state of the token.
type BypassStatus struct {
	Configured bool       `json:"configured"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	GrantTTL   string     `json:"grant_ttl"`
}

// BypassService manages the single emergency token and the grants it
// unlocks.
type BypassService struct {
	db       *gorm.DB
	grants   grant.Store
	ttl      time.Duration
	usageCap int
	now      func() time.Time
	audit    *AuditService
	notifier *NotificationService

	mu sync.Mutex
}

func NewBypassService(db *gorm.DB, grants grant.Store, ttl time.Duration, usageCap int) *BypassService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if usageCap <= 0 {
		usageCap = 100
	}
	return &BypassService{
		db:       db,
		grants:   grants,
		ttl:      ttl,
		usageCap: usageCap,
		now:      time.Now,
		audit:    NewAuditService(db),
	}
}

// SetClock overrides the time source.
func (s *BypassService) SetClock(now func() time.Time) { s.now = now }

// SetNotifier enables bypass-usage notifications.
func (s *BypassService) SetNotifier(n *NotificationService) { s.notifier = n }

// Generate creates a new token, replacing any existing one, and returns the
// plaintext. Only a bcrypt hash is kept.
func (s *BypassService) Generate(actor Actor) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.BypassToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.BypassToken{Hash: string(hash), CreatedAt: s.now().UTC()}).Error
	})
	if err != nil {
		return "", err
	}

	s.audit.Record(actor, "bypass_generate", "")
	logger.Log().WithField("actor", actor.String()).Warn("emergency bypass token generated")
	return token, nil
}

// Revoke deletes the stored token. Grants already issued stay valid until
// they expire.
func (s *BypassService) Revoke(actor Actor) error {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.BypassToken{}).Error; err != nil {
		return err
	}
	s.audit.Record(actor, "bypass_revoke", "")
	logger.Log().WithField("actor", actor.String()).Warn("emergency bypass token revoked")
	return nil
}

// Status reports whether a token exists and when it was created.
func (s *BypassService) Status() (*BypassStatus, error) {
	st := &BypassStatus{GrantTTL: s.ttl.String()}
	tok, err := s.current()
	if errors.Is(err, ErrNoBypassToken) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}
	st.Configured = true
	created := tok.CreatedAt
	st.CreatedAt = &created
	return st, nil
}

func (s *BypassService) current() (*models.BypassToken, error) {
	var tok models.BypassToken
	if err := s.db.Order("id desc").First(&tok).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoBypassToken
		}
		return nil, err
	}
	return &tok, nil
}

// ValidateAndGrant checks provided against the stored token. On a match a
// grant valid for the configured TTL is bound to session, the usage is
// logged and the returned credential is what the client must present later.
// A mismatch, a missing token or an unreadable store grants nothing.
func (s *BypassService) ValidateAndGrant(ctx context.Context, provided, session string, req BypassRequest) (string, bool) {
	if provided == "" {
		return "", false
	}
	tok, err := s.current()
	if err != nil {
		if !errors.Is(err, ErrNoBypassToken) {
			logger.Log().WithError(err).Error("bypass token store unreadable, refusing bypass")
		}
		return "", false
	}
	if bcrypt.CompareHashAndPassword([]byte(tok.Hash), []byte(provided)) != nil {
		return "", false
	}

	credential, err := s.grants.Put(ctx, session, s.now().Add(s.ttl))
	if err != nil {
		logger.Log().WithError(err).Error("failed to store bypass grant")
		return "", false
	}
	metrics.IncBypassGrant()

	if err := s.logUsage(req); err != nil {
		logger.Log().WithError(err).Warn("failed to record bypass usage")
	}
	logger.WithFields(logrus.Fields{"ip": req.IP, "path": req.RequestPath}).Warn("emergency bypass used")
	if s.notifier != nil {
		s.notifier.SendExternal(models.EventBypass, "Emergency bypass used",
			"An emergency bypass grant was issued to "+req.IP+".")
	}
	return credential, true
}

// IsGranted reports whether credential carries an unexpired grant.
func (s *BypassService) IsGranted(ctx context.Context, credential string) bool {
	return grant.Active(ctx, s.grants, credential, s.now())
}

func (s *BypassService) logUsage(req BypassRequest) error {
	ua := util.Truncate(req.UserAgent, 255)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.BypassUsage{
			IP:          req.IP,
			UserAgent:   ua,
			RequestPath: req.RequestPath,
			UsedAt:      s.now().UTC(),
		}).Error; err != nil {
			return err
		}
		return trimToCap(tx, &models.BypassUsage{}, s.usageCap)
	})
}

// Usage returns recent bypass usage, newest first.
func (s *BypassService) Usage(limit int) ([]models.BypassUsage, error) {
	var res []models.BypassUsage
	q := s.db.Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}
