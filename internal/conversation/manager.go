package conversation

import (
	"log/slog"
	"sync"

	"github.com/gestio/messagerie/internal/domain"
	"github.com/gestio/messagerie/internal/identity"
	"github.com/gestio/messagerie/internal/notify"
)

// Manager hands out one Store per console user. A user with several open
// tabs shares a single session, matching the single-view-instance ownership
// of the contact list.
type Manager struct {
	api      Backend
	notices  *notify.Hub
	sessions SessionRepository // may be nil

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a store manager.
func NewManager(api Backend, notices *notify.Hub, sessions SessionRepository) *Manager {
	return &Manager{
		api:      api,
		notices:  notices,
		sessions: sessions,
		stores:   make(map[string]*Store),
	}
}

// anonymousKey keys the shared store for requests with no resolvable
// identity: browsing still works, sending does not.
const anonymousKey = "!anonymous"

// ForUser returns the store for the given session user, creating it on first
// use. u may be nil.
func (m *Manager) ForUser(u *identity.User) *Store {
	key := anonymousKey
	opts := Options{Notices: m.notices, Sessions: m.sessions}
	if u != nil && u.UserID() != "" {
		key = u.UserID()
		opts.UserID = u.UserID()
		opts.Company = u.Company
		opts.ScopeToCompany = u.ScopeToCompany()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[key]; ok {
		return s
	}
	s := NewStore(m.api, opts)
	m.stores[key] = s
	slog.Info("conversation session created", "user_id", opts.UserID, "scoped", opts.ScopeToCompany)
	return s
}

// Drop removes a user's store, e.g. on logout.
func (m *Manager) Drop(userID string) {
	userID = domain.NormalizeID(userID)
	m.mu.Lock()
	delete(m.stores, userID)
	m.mu.Unlock()
}
