package services

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/geogate/internal/config"
	"github.com/Wikid82/geogate/internal/geo"
	"github.com/Wikid82/geogate/internal/models"
)

// Runtime setting keys.
const (
	SettingGateEnabled      = "gate.enabled"
	SettingAllowedCountries = "gate.allowed_countries"
)

var ErrInvalidSetting = errors.New("invalid setting value")

// SettingsService layers persisted runtime toggles over the static config.
type SettingsService struct {
	db  *gorm.DB
	cfg config.GateConfig
}

func NewSettingsService(db *gorm.DB, cfg config.GateConfig) *SettingsService {
	return &SettingsService{db: db, cfg: cfg}
}

// Get returns the raw stored value for key.
func (s *SettingsService) Get(key string) (string, bool, error) {
	var st models.Setting
	if err := s.db.Where("key = ?", key).First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return st.Value, true, nil
}

// Set validates and stores a runtime setting.
func (s *SettingsService) Set(key, value string) error {
	switch key {
	case SettingGateEnabled:
		if _, err := strconv.ParseBool(value); err != nil {
			return ErrInvalidSetting
		}
	case SettingAllowedCountries:
		codes, ok := ParseCountryList(value)
		if !ok {
			return ErrInvalidSetting
		}
		value = strings.Join(codes, ",")
	default:
		return ErrInvalidSetting
	}

	st := models.Setting{Key: key, Value: value, Category: "gate", Type: "string", UpdatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&st).Error
}

// All returns every stored setting.
func (s *SettingsService) All() ([]models.Setting, error) {
	var list []models.Setting
	if err := s.db.Order("key asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// GateEnabled reports whether the gate is on. A stored toggle overrides the
// config. A database error keeps the gate on.
func (s *SettingsService) GateEnabled() bool {
	v, ok, err := s.Get(SettingGateEnabled)
	if err != nil || !ok {
		return s.cfg.Enabled
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return s.cfg.Enabled
	}
	return enabled
}

// AllowedCountries returns the stored override or the configured set.
func (s *SettingsService) AllowedCountries() []string {
	v, ok, err := s.Get(SettingAllowedCountries)
	if err == nil && ok {
		if codes, valid := ParseCountryList(v); valid {
			return codes
		}
	}
	return s.cfg.AllowedCountries
}

// ParseCountryList splits a comma-separated list of two-letter codes. Empty
// input yields an empty, valid list.
func ParseCountryList(raw string) ([]string, bool) {
	codes := []string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !geo.ValidCode(part) {
			return nil, false
		}
		codes = append(codes, part)
	}
	return codes, true
}
