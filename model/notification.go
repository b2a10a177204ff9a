package model

import "time"

// Notification is immutable once written except for the Read flag. Message
// is rendered at creation time and never re-derived, so history stays
// stable even if templates change.
type Notification struct {
	ID        string         `json:"id"`
	UserID    int64          `json:"user_id"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}
