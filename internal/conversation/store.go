// Package conversation owns the active contact selection, the loaded message
// thread, and the draft input for one console user, mediating loads and
// read acknowledgement against the remote API.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gestio/messagerie/internal/backend"
	"github.com/gestio/messagerie/internal/contacts"
	"github.com/gestio/messagerie/internal/domain"
	"github.com/gestio/messagerie/internal/metrics"
	"github.com/gestio/messagerie/internal/notify"
)

// ErrThreadLoadFailed signals a failed thread fetch that left the selection
// intact; the user can retry.
var ErrThreadLoadFailed = errors.New("thread load failed")

const markReadTimeout = 10 * time.Second

// Store owns one user's messaging session. All mutations are serialized
// through its mutex; network calls happen outside the lock and re-check the
// load generation before committing, so a stale response for a deselected
// contact is discarded rather than applied.
type Store struct {
	api     Backend
	notices *notify.Hub
	repo    SessionRepository // may be nil

	userID         string
	company        string
	scopeToCompany bool

	mu           sync.Mutex
	contactList  []domain.Contact
	selectedID   string
	state        SessionState
	messages     []domain.ConversationMessage
	draft        string
	loadGen      uint64
	autoSelected bool
	watchers     map[chan struct{}]struct{}
}

// Options configures a Store.
type Options struct {
	UserID         string
	Company        string
	ScopeToCompany bool
	Notices        *notify.Hub
	Sessions       SessionRepository
}

// NewStore creates a session store for one console user.
func NewStore(api Backend, opts Options) *Store {
	notices := opts.Notices
	if notices == nil {
		notices = notify.NewHub()
	}
	return &Store{
		api:            api,
		notices:        notices,
		repo:           opts.Sessions,
		userID:         domain.NormalizeID(opts.UserID),
		company:        opts.Company,
		scopeToCompany: opts.ScopeToCompany,
		state:          StateIdle,
		watchers:       make(map[chan struct{}]struct{}),
	}
}

// Restore loads the persisted draft for this user, if any. Selection is not
// restored blindly: it is re-validated against the canonical list on the
// first refresh.
func (s *Store) Restore(ctx context.Context) {
	if s.repo == nil || s.userID == "" {
		return
	}
	rec, err := s.repo.GetSession(ctx, s.userID)
	if err != nil {
		slog.Warn("failed to restore session state", "user_id", s.userID, "error", err)
		return
	}
	if rec == nil {
		return
	}
	s.mu.Lock()
	s.draft = rec.DraftText
	s.mu.Unlock()
}

// RefreshContacts rebuilds the canonical contact list from the three backend
// sources. A failed source contributes nothing; the merge never aborts.
func (s *Store) RefreshContacts(ctx context.Context) []domain.Contact {
	roster, err := s.api.ListUsers(ctx)
	if err != nil {
		slog.Warn("roster fetch failed, continuing without it", "user_id", s.userID, "error", err)
		roster = nil
	}
	privileged, err := s.api.ListPrivileged(ctx)
	if err != nil {
		slog.Warn("privileged fetch failed, continuing without it", "user_id", s.userID, "error", err)
		privileged = nil
	}
	convs, err := s.api.ListConversations(ctx)
	if err != nil {
		slog.Warn("conversation fetch failed, continuing without it", "user_id", s.userID, "error", err)
		convs = nil
	}

	list := contacts.Aggregate(contacts.Input{
		Roster:         roster,
		Privileged:     privileged,
		Conversations:  convs,
		CurrentUserID:  s.userID,
		CurrentCompany: s.company,
		ScopeToCompany: s.scopeToCompany,
	})
	metrics.ContactRefreshes.Inc()

	s.mu.Lock()
	wasEmpty := len(s.contactList) == 0
	s.contactList = list
	autoSelect := ""
	if wasEmpty && len(list) > 0 && s.selectedID == "" && !s.autoSelected {
		s.autoSelected = true
		autoSelect = list[0].UserID
	}
	s.mu.Unlock()
	s.notifyChanged()

	if len(list) == 0 {
		s.notices.Info("No contacts available")
	}
	if autoSelect != "" {
		if err := s.SelectContact(ctx, autoSelect); err != nil {
			slog.Warn("auto-select failed", "user_id", s.userID, "contact_id", autoSelect, "error", err)
		}
	}
	return list
}

// StartRefresh polls the contact list (and with it unread counts) until the
// context is cancelled.
func (s *Store) StartRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RefreshContacts(ctx)
			case <-ctx.Done():
				slog.Debug("contact refresh stopped", "user_id", s.userID, "reason", ctx.Err())
				return
			}
		}
	}()
}

// SelectContact sets the active selection and loads its thread. Concurrent
// selections are last-writer-wins: the load is tagged with a generation and a
// result whose generation is no longer current is discarded.
func (s *Store) SelectContact(ctx context.Context, contactID string) error {
	contactID = domain.NormalizeID(contactID)
	if contactID == "" {
		return errors.New("contact id is required")
	}

	s.mu.Lock()
	s.selectedID = contactID
	s.state = StateLoading
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()
	s.notifyChanged()
	s.persistSession(ctx)

	return s.loadThread(ctx, contactID, gen)
}

// Reload re-fetches the thread for the current selection.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	contactID := s.selectedID
	if contactID == "" {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoading
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()
	s.notifyChanged()

	return s.loadThread(ctx, contactID, gen)
}

func (s *Store) loadThread(ctx context.Context, contactID string, gen uint64) error {
	records, err := s.api.GetThread(ctx, contactID)

	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		metrics.StaleResponsesDiscarded.Inc()
		slog.Debug("discarding stale thread load", "user_id", s.userID, "contact_id", contactID)
		return nil
	}

	if err != nil {
		if errors.Is(err, backend.ErrAuthorizationRejected) {
			s.removeContactLocked(contactID)
			s.selectedID = ""
			s.messages = nil
			s.state = StateIdle
			s.mu.Unlock()
			s.notifyChanged()
			metrics.AuthorizationRejections.Inc()
			s.notices.Warning("You are not allowed to message this contact")
			slog.Warn("thread load rejected, contact removed", "user_id", s.userID, "contact_id", contactID)
			return err
		}
		s.messages = nil
		s.state = StateReady
		s.mu.Unlock()
		s.notifyChanged()
		s.notices.Error("Could not load the conversation, please retry")
		slog.Warn("thread load failed", "user_id", s.userID, "contact_id", contactID, "error", err)
		return errors.Join(ErrThreadLoadFailed, err)
	}

	msgs := make([]domain.ConversationMessage, 0, len(records))
	for i := range records {
		msgs = append(msgs, records[i].ToDomain())
	}
	s.messages = msgs
	s.state = StateReady
	for i := range s.contactList {
		if s.contactList[i].UserID == contactID {
			s.contactList[i].UnreadCount = 0
			break
		}
	}
	s.mu.Unlock()
	s.notifyChanged()

	// Read acknowledgement is fire-and-forget: a failure is logged but never
	// surfaced and never blocks the UI.
	go func() {
		ackCtx, cancel := context.WithTimeout(context.Background(), markReadTimeout)
		defer cancel()
		if err := s.api.MarkRead(ackCtx, contactID); err != nil {
			slog.Warn("read acknowledgement failed", "user_id", s.userID, "contact_id", contactID, "error", err)
		}
	}()
	return nil
}

// HandleAuthorizationRejected removes a contact the backend refused and, if
// it was selected, clears the selection.
func (s *Store) HandleAuthorizationRejected(contactID string) {
	contactID = domain.NormalizeID(contactID)
	s.mu.Lock()
	s.removeContactLocked(contactID)
	if s.selectedID == contactID {
		s.selectedID = ""
		s.messages = nil
		s.state = StateIdle
		s.loadGen++
	}
	s.mu.Unlock()
	s.notifyChanged()
	metrics.AuthorizationRejections.Inc()
}

func (s *Store) removeContactLocked(contactID string) {
	for i := range s.contactList {
		if s.contactList[i].UserID == contactID {
			s.contactList = append(s.contactList[:i], s.contactList[i+1:]...)
			return
		}
	}
}

// SetDraft replaces the composed-but-unsent input.
func (s *Store) SetDraft(ctx context.Context, text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
	s.persistSession(ctx)
}

// Snapshot returns a consistent copy of the session.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Contacts:          append([]domain.Contact(nil), s.contactList...),
		SelectedContactID: s.selectedID,
		State:             s.state,
		Messages:          append([]domain.ConversationMessage(nil), s.messages...),
		Draft:             s.draft,
	}
	return snap
}

// Subscribe returns a channel signaled whenever the session changes. The
// caller must Unsubscribe when done.
func (s *Store) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a change watcher.
func (s *Store) Unsubscribe(ch chan struct{}) {
	s.mu.Lock()
	delete(s.watchers, ch)
	s.mu.Unlock()
}

func (s *Store) notifyChanged() {
	s.mu.Lock()
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Store) persistSession(ctx context.Context) {
	if s.repo == nil || s.userID == "" {
		return
	}
	s.mu.Lock()
	rec := &SessionRecord{
		UserID:            s.userID,
		SelectedContactID: s.selectedID,
		DraftText:         s.draft,
	}
	s.mu.Unlock()
	if err := s.repo.SaveSession(ctx, rec); err != nil {
		slog.Warn("failed to persist session state", "user_id", s.userID, "error", err)
	}
}
