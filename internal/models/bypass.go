package models

import (
	"time"
)

// BypassToken stores the bcrypt hash of the single emergency bypass secret.
// The plaintext is only ever returned by the generate call.
type BypassToken struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	Hash      string    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// BypassUsage records a successful emergency bypass.
type BypassUsage struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	IP          string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent" gorm:"size:255"`
	RequestPath string    `json:"request_path"`
	UsedAt      time.Time `json:"used_at" gorm:"index"`
}
