package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification event types.
const (
	EventSpam    = "spam"
	EventSummary = "summary"
	EventBypass  = "bypass"
	EventTest    = "test"
)

// NotificationProvider is an external destination reached through a
// shoutrrr URL (smtp://, discord://, slack://, generic+https:// ...).
type NotificationProvider struct {
	ID      string `gorm:"primaryKey" json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`

	NotifySpam    bool `json:"notify_spam"`
	NotifySummary bool `json:"notify_summary"`
	NotifyBypass  bool `json:"notify_bypass"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID when missing.
func (p *NotificationProvider) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// Wants reports whether the provider subscribes to eventType.
func (p *NotificationProvider) Wants(eventType string) bool {
	switch eventType {
	case EventSpam:
		return p.NotifySpam
	case EventSummary:
		return p.NotifySummary
	case EventBypass:
		return p.NotifyBypass
	default:
		return true
	}
}
