package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/models"
)

// Actor is who made an audited change and the client address it came from.
type Actor struct {
	Name string
	IP   string
}

// CLIActor is the actor for changes made from the command line.
var CLIActor = Actor{Name: "cli"}

func (a Actor) String() string {
	if a.IP == "" {
		return a.Name
	}
	return a.Name + "@" + a.IP
}

// AuditService keeps a trail of administrative changes to the gate.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record stores an audit entry. Failures are logged and otherwise ignored.
func (s *AuditService) Record(actor Actor, action, details string) {
	if actor.Name == "" {
		actor.Name = "system"
	}
	a := &models.SecurityAudit{
		UUID:      uuid.NewString(),
		Actor:     actor.Name,
		IP:        actor.IP,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Create(a).Error; err != nil {
		logger.Log().WithError(err).WithField("action", action).Warn("failed to write audit entry")
	}
}

// List returns recent audit entries, newest first.
func (s *AuditService) List(limit int) ([]models.SecurityAudit, error) {
	var res []models.SecurityAudit
	q := s.db.Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}
