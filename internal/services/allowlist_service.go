package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Wikid82/geogate/internal/cidr"
	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/models"
)

var (
	ErrInvalidIPAddress = errors.New("invalid IPv4 address or CIDR")
	ErrEntryNotFound    = errors.New("allow-list entry not found")
	ErrDuplicateEntry   = errors.New("allow-list entry already exists")
)

// AllowlistInput is what an administrator submits to add an entry.
type AllowlistInput struct {
	Value       string `json:"ip_or_cidr" validate:"required,ipv4cidr"`
	Description string `json:"description" validate:"max=255"`
	AddedBy     Actor  `json:"-"`
}

type AllowlistService struct {
	db       *gorm.DB
	validate *validator.Validate
	audit    *AuditService
}

func NewAllowlistService(db *gorm.DB) *AllowlistService {
	v := validator.New()
	_ = v.RegisterValidation("ipv4cidr", func(fl validator.FieldLevel) bool {
		return cidr.IsValid(fl.Field().String())
	})
	return &AllowlistService{db: db, validate: v, audit: NewAuditService(db)}
}

// List returns entries in insertion order.
func (s *AllowlistService) List() ([]models.AllowlistEntry, error) {
	var entries []models.AllowlistEntry
	if err := s.db.Order("id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Add validates and appends an entry. Malformed input is never stored.
func (s *AllowlistService) Add(in AllowlistInput) (*models.AllowlistEntry, error) {
	in.Value = strings.TrimSpace(in.Value)
	in.Description = strings.TrimSpace(in.Description)

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() != "Value" {
			return nil, fmt.Errorf("invalid %s: %w", strings.ToLower(verrs[0].Field()), err)
		}
		return nil, ErrInvalidIPAddress
	}

	var count int64
	if err := s.db.Model(&models.AllowlistEntry{}).Where("ip_or_cidr = ?", in.Value).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateEntry
	}

	entry := &models.AllowlistEntry{
		UUID:        uuid.New().String(),
		Value:       in.Value,
		Description: in.Description,
		AddedBy:     in.AddedBy.Name,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.Create(entry).Error; err != nil {
		return nil, err
	}

	s.audit.Record(in.AddedBy, "allowlist_add", entry.Value)
	logger.WithFields(logrus.Fields{"entry": entry.Value, "actor": in.AddedBy.String()}).Info("allow-list entry added")
	return entry, nil
}

// Remove deletes the entry at a zero-based position in List order. Positions
// shift after every removal.
func (s *AllowlistService) Remove(index int, actor Actor) (*models.AllowlistEntry, error) {
	if index < 0 {
		return nil, ErrEntryNotFound
	}
	var entry models.AllowlistEntry
	err := s.db.Order("id asc").Offset(index).Limit(1).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.db.Delete(&entry).Error; err != nil {
		return nil, err
	}

	s.audit.Record(actor, "allowlist_remove", entry.Value)
	logger.WithFields(logrus.Fields{"entry": entry.Value, "actor": actor.String()}).Info("allow-list entry removed")
	return &entry, nil
}

// RemoveByUUID deletes an entry by its stable identifier.
func (s *AllowlistService) RemoveByUUID(id string, actor Actor) error {
	var entry models.AllowlistEntry
	if err := s.db.Where("uuid = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	if err := s.db.Delete(&entry).Error; err != nil {
		return err
	}
	s.audit.Record(actor, "allowlist_remove", entry.Value)
	return nil
}

// IsWhitelisted reports whether ip matches any entry. Entries with a prefix
// length are range-matched, plain addresses compared exactly. A storage
// failure is treated as an empty list.
func (s *AllowlistService) IsWhitelisted(ip string) bool {
	entries, err := s.List()
	if err != nil {
		logger.Log().WithError(err).Error("allow-list unreadable, treating as empty")
		return false
	}
	return matchEntries(entries, ip)
}

func matchEntries(entries []models.AllowlistEntry, ip string) bool {
	for _, e := range entries {
		if strings.Contains(e.Value, "/") {
			if cidr.InRange(ip, e.Value) {
				return true
			}
			continue
		}
		if e.Value == ip {
			return true
		}
	}
	return false
}
