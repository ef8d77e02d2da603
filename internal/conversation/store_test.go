package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gestio/messagerie/internal/backend"
	"github.com/gestio/messagerie/internal/domain"
	"github.com/gestio/messagerie/internal/notify"
)

// fakeBackend is a controllable in-memory console API.
type fakeBackend struct {
	mu            sync.Mutex
	roster        []backend.UserRecord
	privileged    []backend.UserRecord
	conversations []backend.ConversationRecord
	threads       map[string][]backend.MessageRecord
	threadErr     map[string]error
	threadGate    map[string]chan struct{} // blocks GetThread until closed
	markReadCalls []string
	rosterErr     error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		threads:    make(map[string][]backend.MessageRecord),
		threadErr:  make(map[string]error),
		threadGate: make(map[string]chan struct{}),
	}
}

func (f *fakeBackend) ListUsers(ctx context.Context) ([]backend.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	return f.roster, nil
}

func (f *fakeBackend) ListConversations(ctx context.Context) ([]backend.ConversationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversations, nil
}

func (f *fakeBackend) ListPrivileged(ctx context.Context) ([]backend.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.privileged, nil
}

func (f *fakeBackend) GetThread(ctx context.Context, contactID string) ([]backend.MessageRecord, error) {
	f.mu.Lock()
	gate := f.threadGate[contactID]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.threadErr[contactID]; err != nil {
		return nil, err
	}
	return f.threads[contactID], nil
}

func (f *fakeBackend) MarkRead(ctx context.Context, contactID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls = append(f.markReadCalls, contactID)
	return nil
}

func msg(id, from, to, content string) backend.MessageRecord {
	return backend.MessageRecord{
		ID:         domain.FlexID(id),
		FromUserID: domain.FlexID(from),
		ToUserID:   domain.FlexID(to),
		Content:    content,
		CreatedAt:  time.Now(),
	}
}

func newTestStore(api Backend) *Store {
	return NewStore(api, Options{
		UserID:  "me",
		Notices: notify.NewHub(),
	})
}

func TestSelectContactLoadsThread(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	fb.threads["a"] = []backend.MessageRecord{
		msg("1", "a", "me", "hello"),
		msg("2", "me", "a", "hi"),
	}
	s := newTestStore(fb)

	if err := s.SelectContact(context.Background(), "a"); err != nil {
		t.Fatalf("SelectContact: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateReady {
		t.Errorf("expected ready state, got %s", snap.State)
	}
	if len(snap.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(snap.Messages))
	}
	if snap.Messages[0].Content != "hello" {
		t.Errorf("message order not preserved: %q first", snap.Messages[0].Content)
	}
}

// TestStaleThreadLoadDiscarded verifies the last-writer-wins selection rule:
// a slow load for contact A must not overwrite contact B's thread when the
// user reselects before A resolves.
//
// Run with: go test -race ./internal/conversation/...
func TestStaleThreadLoadDiscarded(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	gateA := make(chan struct{})
	fb.threadGate["a"] = gateA
	fb.threads["a"] = []backend.MessageRecord{msg("1", "a", "me", "from A")}
	fb.threads["b"] = []backend.MessageRecord{msg("2", "b", "me", "from B")}
	s := newTestStore(fb)

	done := make(chan error, 1)
	go func() {
		done <- s.SelectContact(context.Background(), "a")
	}()

	// Wait for A's load to be in flight, then select B.
	waitFor(t, func() bool { return s.Snapshot().State == StateLoading })
	if err := s.SelectContact(context.Background(), "b"); err != nil {
		t.Fatalf("SelectContact(b): %v", err)
	}

	// Release A's late response.
	close(gateA)
	if err := <-done; err != nil {
		t.Fatalf("SelectContact(a): %v", err)
	}

	snap := s.Snapshot()
	if snap.SelectedContactID != "b" {
		t.Fatalf("expected selection b, got %q", snap.SelectedContactID)
	}
	if len(snap.Messages) != 1 || snap.Messages[0].Content != "from B" {
		t.Errorf("stale response for A leaked into B's thread: %+v", snap.Messages)
	}
}

func TestThreadLoadAuthorizationRejection(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	fb.roster = []backend.UserRecord{
		{ID: "a", Name: "Ann"},
		{ID: "b", Name: "Bob"},
	}
	fb.threadErr["a"] = backend.ErrAuthorizationRejected
	s := newTestStore(fb)
	s.RefreshContacts(context.Background())

	err := s.SelectContact(context.Background(), "a")
	if !errors.Is(err, backend.ErrAuthorizationRejected) {
		t.Fatalf("expected authorization rejection, got %v", err)
	}

	snap := s.Snapshot()
	if snap.SelectedContactID != "" {
		t.Errorf("selection not cleared after rejection")
	}
	if snap.State != StateIdle {
		t.Errorf("expected idle state, got %s", snap.State)
	}
	for _, c := range snap.Contacts {
		if c.UserID == "a" {
			t.Errorf("rejected contact still in canonical list")
		}
	}
}

func TestThreadLoadFailureKeepsSelection(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	fb.threads["a"] = []backend.MessageRecord{msg("1", "a", "me", "old")}
	s := newTestStore(fb)

	if err := s.SelectContact(context.Background(), "a"); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	fb.mu.Lock()
	fb.threadErr["a"] = errors.New("backend down")
	fb.mu.Unlock()

	err := s.Reload(context.Background())
	if !errors.Is(err, ErrThreadLoadFailed) {
		t.Fatalf("expected ErrThreadLoadFailed, got %v", err)
	}

	snap := s.Snapshot()
	if snap.SelectedContactID != "a" {
		t.Errorf("selection must survive a generic load failure")
	}
	if len(snap.Messages) != 0 {
		t.Errorf("messages must be cleared on load failure, got %d", len(snap.Messages))
	}
	if snap.State != StateReady {
		t.Errorf("expected ready state for retry, got %s", snap.State)
	}
}

func TestAutoSelectFirstHappensOnce(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	s := newTestStore(fb)

	// Empty refresh: nothing to select.
	s.RefreshContacts(context.Background())
	if got := s.Snapshot().SelectedContactID; got != "" {
		t.Fatalf("selection on empty list: %q", got)
	}

	fb.mu.Lock()
	fb.roster = []backend.UserRecord{
		{ID: "b", Name: "Bob"},
		{ID: "a", Name: "Ann"},
	}
	fb.mu.Unlock()

	// First non-empty refresh auto-selects the first canonical contact.
	s.RefreshContacts(context.Background())
	if got := s.Snapshot().SelectedContactID; got != "a" {
		t.Fatalf("expected auto-selection of first contact a, got %q", got)
	}

	// A manual deselection is not overridden by later refreshes.
	s.mu.Lock()
	s.selectedID = ""
	s.state = StateIdle
	s.mu.Unlock()
	s.RefreshContacts(context.Background())
	if got := s.Snapshot().SelectedContactID; got != "" {
		t.Errorf("auto-select ran twice, selected %q", got)
	}
}

func TestRefreshSurvivesSourceFailure(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	fb.rosterErr = errors.New("roster unavailable")
	fb.conversations = []backend.ConversationRecord{
		{UserID: "5", User: &backend.EmbeddedUser{Name: "Zed"}},
	}
	s := newTestStore(fb)

	list := s.RefreshContacts(context.Background())
	if len(list) != 1 || list[0].Name != "Zed" {
		t.Fatalf("expected conversation-only contact despite roster failure, got %v", list)
	}
}

func TestLoadFiresReadAcknowledgement(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	fb.threads["a"] = []backend.MessageRecord{msg("1", "a", "me", "hello")}
	s := newTestStore(fb)

	if err := s.SelectContact(context.Background(), "a"); err != nil {
		t.Fatalf("SelectContact: %v", err)
	}

	waitFor(t, func() bool {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		return len(fb.markReadCalls) == 1 && fb.markReadCalls[0] == "a"
	})
}

func TestRefreshResetsUnreadAfterLoad(t *testing.T) {
	t.Parallel()

	unread := 3
	fb := newFakeBackend()
	fb.roster = []backend.UserRecord{{ID: "a", Name: "Ann"}}
	fb.conversations = []backend.ConversationRecord{{UserID: "a", UnreadCount: &unread}}
	fb.threads["a"] = []backend.MessageRecord{msg("1", "a", "me", "hello")}
	s := newTestStore(fb)

	s.RefreshContacts(context.Background())

	// Auto-select loads the thread and zeroes the unread counter.
	snap := s.Snapshot()
	if len(snap.Contacts) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(snap.Contacts))
	}
	if snap.Contacts[0].UnreadCount != 0 {
		t.Errorf("unread count not cleared after load, got %d", snap.Contacts[0].UnreadCount)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
