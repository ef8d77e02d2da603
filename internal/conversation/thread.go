package conversation

import (
	"github.com/gestio/messagerie/internal/domain"
)

// Thread-mutation hooks used by the message dispatcher. They keep the
// optimistic-send invariants local to the store: appends happen under the
// session lock in send-invocation order, and reconciliation touches only the
// provisional message it targets, never reordering later appends.

// SelectedContact returns the current selection, or "".
func (s *Store) SelectedContact() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// TakeDraft atomically clears and returns the draft input, so the user can
// keep typing while the send is in flight.
func (s *Store) TakeDraft() string {
	s.mu.Lock()
	draft := s.draft
	s.draft = ""
	s.mu.Unlock()
	s.notifyChanged()
	return draft
}

// RestoreDraft puts previously-taken draft text back after a failed send.
// An empty restore is a no-op; text the user typed meanwhile wins.
func (s *Store) RestoreDraft(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	if s.draft == "" {
		s.draft = text
	}
	s.mu.Unlock()
	s.notifyChanged()
}

// AppendProvisional appends an optimistic message to the active thread. It
// is visible to the user before the network call resolves.
func (s *Store) AppendProvisional(msg domain.ConversationMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notifyChanged()
}

// Reconcile replaces the provisional message with the server-confirmed one,
// preserving its position. Returns false if the provisional message is no
// longer in the thread (e.g. the thread was reloaded wholesale meanwhile).
func (s *Store) Reconcile(tempID string, confirmed domain.ConversationMessage) bool {
	s.mu.Lock()
	replaced := false
	for i := range s.messages {
		if s.messages[i].ID == tempID {
			s.messages[i] = confirmed
			replaced = true
			break
		}
	}
	s.mu.Unlock()
	if replaced {
		s.notifyChanged()
	}
	return replaced
}

// Rollback removes the provisional message after a failed send. Returns
// false if it was already gone.
func (s *Store) Rollback(tempID string) bool {
	s.mu.Lock()
	removed := false
	for i := range s.messages {
		if s.messages[i].ID == tempID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.notifyChanged()
	}
	return removed
}
