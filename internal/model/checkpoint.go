package model

import (
	"encoding/json"
	"time"
)

// Turn is one entry of a session's message history, tagged user or assistant.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Checkpoint persists the full message history of one session, overwritten on
// every turn. The history list itself is the append log, so only the latest
// record is kept per session id.
type Checkpoint struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:64;not null;uniqueIndex" json:"session_id"`
	History   string    `gorm:"type:mediumtext;not null" json:"-"` // JSON array of Turn
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryTurns returns the parsed history; empty on parse error.
func (c *Checkpoint) HistoryTurns() []Turn {
	if c.History == "" {
		return nil
	}
	var turns []Turn
	_ = json.Unmarshal([]byte(c.History), &turns)
	return turns
}

// SetHistory stores the history as JSON.
func (c *Checkpoint) SetHistory(turns []Turn) {
	if len(turns) == 0 {
		c.History = "[]"
		return
	}
	b, _ := json.Marshal(turns)
	c.History = string(b)
}
