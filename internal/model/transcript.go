package model

import "time"

// TranscriptMessage is the durable per-message record persisted asynchronously
// by the transcript worker, independent of the overwritten checkpoint row.
type TranscriptMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:64;not null;index" json:"session_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
