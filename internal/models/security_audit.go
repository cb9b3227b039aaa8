package models

import (
	"time"
)

// SecurityAudit records admin actions that change what the gate permits,
// with the address the change was made from. IP is empty for CLI changes.
type SecurityAudit struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	Actor     string    `json:"actor"`
	IP        string    `json:"ip" gorm:"index;size:45"`
	Action    string    `json:"action"`
	Details   string    `json:"details" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}
