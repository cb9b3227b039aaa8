package models

import (
	"time"
)

// BlockedAttempt records a denied request to the protected surface.
type BlockedAttempt struct {
	ID             uint              `json:"id" gorm:"primaryKey"`
	UUID           string            `json:"uuid" gorm:"uniqueIndex"`
	IP             string            `json:"ip_address" gorm:"index"`
	CountryCode    string            `json:"country_code"`
	UserAgent      string            `json:"user_agent" gorm:"size:255"`
	RequestPath    string            `json:"request_path"`
	IsLoginPath    bool              `json:"is_login_path"`
	Referer        string            `json:"referer"`
	HeaderSnapshot map[string]string `json:"header_snapshot" gorm:"serializer:json;type:text"`
	OccurredAt     time.Time         `json:"occurred_at" gorm:"index"`
}

// AccessStats holds the running deny counter. A single row with ID 1 exists.
type AccessStats struct {
	ID            uint       `json:"-" gorm:"primaryKey"`
	BlockedTotal  int64      `json:"blocked_total"`
	LastBlockedAt *time.Time `json:"last_blocked_at"`
}
