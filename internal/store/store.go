// Package store provides persistence for per-user messaging session state.
package store

import (
	"context"

	"github.com/gestio/messagerie/internal/conversation"
)

// Repository defines the interface for persisting session state.
type Repository interface {
	// GetSession retrieves the persisted session for a user, or nil.
	GetSession(ctx context.Context, userID string) (*conversation.SessionRecord, error)

	// SaveSession creates or updates a session record.
	SaveSession(ctx context.Context, rec *conversation.SessionRecord) error

	// DeleteSession removes a session record, e.g. on logout.
	DeleteSession(ctx context.Context, userID string) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
