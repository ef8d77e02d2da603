// Package backend provides the HTTP client for the remote console API: the
// three contact sources, thread loading, message sending, and read
// acknowledgement. It owns no business rules; it normalizes the backend's
// loosely-typed responses and classifies failures.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gestio/messagerie/internal/domain"
)

// ErrAuthorizationRejected signals a 403-class rejection: the backend refused
// the target contact, typically a cross-company messaging attempt. Callers
// remove the contact and clear the selection rather than retrying.
var ErrAuthorizationRejected = errors.New("authorization rejected by backend")

// Client talks to the remote property-management REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New creates a backend API client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// statusError carries a non-2xx response with the server's human-readable
// reason when one was provided.
type statusError struct {
	Status int
	Reason string
}

func (e *statusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Reason extracts the server-supplied failure reason from an error chain, or
// returns the empty string.
func Reason(err error) string {
	var se *statusError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s %s: %w", method, path, ErrAuthorizationRejected)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w", method, path, &statusError{
			Status: resp.StatusCode,
			Reason: decodeReason(resp.Body),
		})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeReason(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// ListUsers fetches the company roster.
func (c *Client) ListUsers(ctx context.Context) ([]UserRecord, error) {
	var users []UserRecord
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListConversations fetches the current user's conversation summaries.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationRecord, error) {
	var convs []ConversationRecord
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// ListPrivileged derives privileged counterparts (platform admins) from the
// conversation list. The backend has no dedicated endpoint; the filtering is
// client-side.
func (c *Client) ListPrivileged(ctx context.Context) ([]UserRecord, error) {
	convs, err := c.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	var privileged []UserRecord
	for _, conv := range convs {
		if !strings.EqualFold(conv.BestRole(), domain.RoleSuperadmin) {
			continue
		}
		privileged = append(privileged, UserRecord{
			ID:      domain.FlexID(conv.CounterpartID()),
			Name:    conv.BestName(),
			Email:   conv.BestEmail(),
			Role:    domain.RoleSuperadmin,
			Company: conv.BestCompany(),
		})
	}
	return privileged, nil
}

// GetThread fetches the ordered message list for a contact.
func (c *Client) GetThread(ctx context.Context, contactID string) ([]MessageRecord, error) {
	var msgs []MessageRecord
	if err := c.do(ctx, http.MethodGet, "/conversation/"+contactID, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage posts a new message and returns the persisted record.
func (c *Client) SendMessage(ctx context.Context, toUserID, content string) (*MessageRecord, error) {
	payload := map[string]string{
		"toUserId": toUserID,
		"content":  content,
	}
	var msg MessageRecord
	if err := c.do(ctx, http.MethodPost, "/message", payload, &msg); err != nil {
		return nil, err
	}
	if msg.ID.IsZero() {
		// Server acknowledged but the body is unusable; the caller reloads
		// the thread instead of reconciling in place.
		return nil, nil
	}
	return &msg, nil
}

// MarkRead acknowledges a conversation as read. Best effort.
func (c *Client) MarkRead(ctx context.Context, contactID string) error {
	return c.do(ctx, http.MethodPost, "/conversation/"+contactID+"/read", nil, nil)
}
