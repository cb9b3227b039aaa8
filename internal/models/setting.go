package models

import "time"

// Setting is a persisted runtime toggle keyed by name (for example
// "gate.enabled").
type Setting struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Key       string    `json:"key" gorm:"uniqueIndex"`
	Value     string    `json:"value" gorm:"type:text"`
	Category  string    `json:"category"`
	Type      string    `json:"type"`
	UpdatedAt time.Time `json:"updated_at"`
}
