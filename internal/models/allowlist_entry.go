package models

import (
	"time"
)

// AllowlistEntry is one always-permitted IPv4 address or CIDR block.
// Entries are created and deleted, never edited.
type AllowlistEntry struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UUID        string    `json:"uuid" gorm:"uniqueIndex"`
	Value       string    `json:"ip_or_cidr" gorm:"column:ip_or_cidr;not null"`
	Description string    `json:"description"`
	AddedBy     string    `json:"added_by"`
	CreatedAt   time.Time `json:"added_at"`
}
