package backend

import (
	"strings"
	"time"

	"github.com/gestio/messagerie/internal/domain"
)

// UserRecord is a roster entry from GET /users. Field typing is loose: ids
// arrive as numbers or strings depending on the endpoint revision.
type UserRecord struct {
	ID      domain.FlexID `json:"id"`
	Name    string        `json:"name"`
	Email   string        `json:"email"`
	Role    string        `json:"role"`
	Company string        `json:"company"`
	Status  string        `json:"status"`
}

// EmbeddedUser is the optional partial user record carried inside a
// conversation summary.
type EmbeddedUser struct {
	ID      domain.FlexID `json:"id"`
	Name    string        `json:"name"`
	Email   string        `json:"email"`
	Role    string        `json:"role"`
	Company string        `json:"company"`
}

// ConversationRecord is one entry from GET /conversations. The counterpart's
// attributes may live in the embedded User record, at the top level, or both.
type ConversationRecord struct {
	UserID      domain.FlexID `json:"userId"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Role        string        `json:"role"`
	Company     string        `json:"company"`
	UnreadCount *int          `json:"unreadCount"`
	User        *EmbeddedUser `json:"user"`
}

// CounterpartID returns the conversation partner's id, preferring the
// top-level field and falling back to the embedded user record.
func (c *ConversationRecord) CounterpartID() string {
	if !c.UserID.IsZero() {
		return domain.NormalizeID(c.UserID.String())
	}
	if c.User != nil {
		return domain.NormalizeID(c.User.ID.String())
	}
	return ""
}

// BestName returns the best-available display name: embedded user first, then
// the top-level field, then the generic default.
func (c *ConversationRecord) BestName() string {
	if c.User != nil && strings.TrimSpace(c.User.Name) != "" {
		return strings.TrimSpace(c.User.Name)
	}
	if strings.TrimSpace(c.Name) != "" {
		return strings.TrimSpace(c.Name)
	}
	return domain.DefaultContactName
}

// BestEmail returns the embedded email, falling back to the top level.
func (c *ConversationRecord) BestEmail() string {
	if c.User != nil && c.User.Email != "" {
		return c.User.Email
	}
	return c.Email
}

// BestRole returns the embedded role, falling back to the top level.
func (c *ConversationRecord) BestRole() string {
	if c.User != nil && c.User.Role != "" {
		return c.User.Role
	}
	return c.Role
}

// BestCompany returns the embedded company, falling back to the top level.
func (c *ConversationRecord) BestCompany() string {
	if c.User != nil && c.User.Company != "" {
		return c.User.Company
	}
	return c.Company
}

// MessageRecord is one thread entry from GET /conversation/{id} or the
// confirmed record returned by POST /message.
type MessageRecord struct {
	ID         domain.FlexID `json:"id"`
	FromUserID domain.FlexID `json:"fromUserId"`
	ToUserID   domain.FlexID `json:"toUserId"`
	Content    string        `json:"content"`
	CreatedAt  time.Time     `json:"createdAt"`
	Read       bool          `json:"read"`
}

// ToDomain converts a wire message into the canonical form.
func (m *MessageRecord) ToDomain() domain.ConversationMessage {
	return domain.ConversationMessage{
		ID:         domain.NormalizeID(m.ID.String()),
		FromUserID: domain.NormalizeID(m.FromUserID.String()),
		ToUserID:   domain.NormalizeID(m.ToUserID.String()),
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		Read:       m.Read,
	}
}
