package models

import (
	"time"
)

// SpamCounter is the per-reason rejection count of the comment heuristic.
type SpamCounter struct {
	Reason        string     `json:"reason" gorm:"primaryKey"`
	Count         int64      `json:"count"`
	LastBlockedAt *time.Time `json:"last_blocked_at"`
}

// SpamRecord keeps a rejected submission for later review.
type SpamRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Content   string    `json:"content" gorm:"type:text"`
	Reason    string    `json:"reason"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}
