package conversation

import (
	"context"

	"github.com/gestio/messagerie/internal/backend"
	"github.com/gestio/messagerie/internal/domain"
)

// SessionState is the conversation view's lifecycle state.
type SessionState string

const (
	// StateIdle means no contact is selected.
	StateIdle SessionState = "idle"
	// StateLoading means a selection exists and its thread fetch is in flight.
	StateLoading SessionState = "loading"
	// StateReady means the selected thread is loaded (possibly empty).
	StateReady SessionState = "ready"
)

// Backend is the slice of the remote console API the store consumes.
type Backend interface {
	ListUsers(ctx context.Context) ([]backend.UserRecord, error)
	ListConversations(ctx context.Context) ([]backend.ConversationRecord, error)
	ListPrivileged(ctx context.Context) ([]backend.UserRecord, error)
	GetThread(ctx context.Context, contactID string) ([]backend.MessageRecord, error)
	MarkRead(ctx context.Context, contactID string) error
}

// SessionRepository persists per-user session state (selection and draft) so
// a reconnecting presentation client resumes where it left off. All calls are
// best effort.
type SessionRepository interface {
	GetSession(ctx context.Context, userID string) (*SessionRecord, error)
	SaveSession(ctx context.Context, rec *SessionRecord) error
}

// SessionRecord is the persisted slice of a session.
type SessionRecord struct {
	UserID            string
	SelectedContactID string
	DraftText         string
}

// Snapshot is a consistent copy of the session for the presentation layer.
type Snapshot struct {
	Contacts          []domain.Contact             `json:"contacts"`
	SelectedContactID string                       `json:"selected_contact_id,omitempty"`
	State             SessionState                 `json:"state"`
	Messages          []domain.ConversationMessage `json:"messages"`
	Draft             string                       `json:"draft"`
}
