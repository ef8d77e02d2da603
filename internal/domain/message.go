package domain

import (
	"strings"
	"time"
)

// TempIDPrefix marks a session-local message identifier assigned before the
// server round trip completes. The backend never issues ids in this space.
const TempIDPrefix = "tmp-"

// ConversationMessage is one message in a thread.
type ConversationMessage struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Read       bool      `json:"read"`

	// Pending is true only between optimistic insertion and reconciliation
	// with the server-confirmed record.
	Pending bool `json:"pending,omitempty"`
}

// IsProvisional returns true if the message carries a session-local id and has
// not yet been confirmed by the server.
func (m *ConversationMessage) IsProvisional() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}
