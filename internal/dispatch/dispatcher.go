// Package dispatch sends outgoing messages with an optimistic-update
// protocol: the message appears in the thread immediately, then is replaced
// in place by the server-confirmed record or rolled back on failure.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestio/messagerie/internal/backend"
	"github.com/gestio/messagerie/internal/conversation"
	"github.com/gestio/messagerie/internal/domain"
	"github.com/gestio/messagerie/internal/identity"
	"github.com/gestio/messagerie/internal/metrics"
	"github.com/gestio/messagerie/internal/notify"
)

// ErrSendFailed wraps a network or server failure during send. The
// provisional message has been rolled back and the draft restored when this
// is returned.
var ErrSendFailed = errors.New("send failed")

// ErrNotSelected is returned when the target contact is not the active
// selection.
var ErrNotSelected = errors.New("contact is not the active selection")

// ErrEmptyMessage is returned for a blank message body.
var ErrEmptyMessage = errors.New("message text is empty")

// Sender is the slice of the remote API the dispatcher consumes.
type Sender interface {
	SendMessage(ctx context.Context, toUserID, content string) (*backend.MessageRecord, error)
}

// Dispatcher delivers messages for one user's conversation store.
type Dispatcher struct {
	api     Sender
	notices *notify.Hub
}

// New creates a dispatcher.
func New(api Sender, notices *notify.Hub) *Dispatcher {
	if notices == nil {
		notices = notify.NewHub()
	}
	return &Dispatcher{api: api, notices: notices}
}

// Send delivers text to contactID through the given store.
//
// Preconditions: text non-empty after trimming, contactID is the current
// selection, and the session user is resolvable from ctx (otherwise
// identity.ErrIdentityUnavailable, and nothing is sent).
//
// The provisional message is appended and the draft cleared before the
// network call; on success the provisional record is replaced in place, on a
// missing or malformed server response the whole thread is reloaded, and on
// failure the provisional record is removed and the draft restored.
func (d *Dispatcher) Send(ctx context.Context, store *conversation.Store, contactID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	user, err := identity.UserFromContext(ctx)
	if err != nil {
		d.notices.Error("Your session has expired, log in again to send messages")
		return err
	}

	contactID = domain.NormalizeID(contactID)
	if contactID == "" || contactID != store.SelectedContact() {
		return ErrNotSelected
	}

	tempID := domain.TempIDPrefix + uuid.NewString()
	provisional := domain.ConversationMessage{
		ID:         tempID,
		FromUserID: user.UserID(),
		ToUserID:   contactID,
		Content:    text,
		CreatedAt:  time.Now(),
		Read:       false,
		Pending:    true,
	}

	// Optimistic insertion: visible before the round trip, and the draft is
	// cleared so the user can keep typing.
	store.AppendProvisional(provisional)
	draft := store.TakeDraft()
	metrics.MessagesSent.Inc()

	confirmed, err := d.api.SendMessage(ctx, contactID, text)
	if err != nil {
		store.Rollback(tempID)
		store.RestoreDraft(restorable(draft, text))
		metrics.SendRollbacks.Inc()

		if errors.Is(err, backend.ErrAuthorizationRejected) {
			store.HandleAuthorizationRejected(contactID)
			d.notices.Warning("You are not allowed to message this contact")
			slog.Warn("send rejected, contact removed", "user_id", user.UserID(), "contact_id", contactID)
			return fmt.Errorf("%w: %w", ErrSendFailed, err)
		}

		if reason := backend.Reason(err); reason != "" {
			d.notices.Error("Message not sent: " + reason)
		} else {
			d.notices.Error("Message not sent, please try again")
		}
		slog.Warn("send failed, rolled back", "user_id", user.UserID(), "contact_id", contactID, "error", err)
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	if confirmed == nil {
		// Server accepted but returned an unusable body; reload the thread
		// to guarantee consistency instead of reconciling blind.
		slog.Warn("send confirmed without a usable record, reloading thread", "user_id", user.UserID(), "contact_id", contactID)
		if err := store.Reload(ctx); err != nil {
			return err
		}
		metrics.SendReconciliations.Inc()
		return nil
	}

	msg := confirmed.ToDomain()
	if !store.Reconcile(tempID, msg) {
		// The thread was replaced wholesale while the send was in flight;
		// the reload already carries the confirmed message.
		slog.Debug("provisional message already superseded", "user_id", user.UserID(), "contact_id", contactID)
	}
	metrics.SendReconciliations.Inc()
	return nil
}

// restorable decides what to put back in the draft after a rollback: the
// draft captured at send time if there was one, else the sent text itself so
// the user never loses their input.
func restorable(draft, text string) string {
	if draft != "" {
		return draft
	}
	return text
}
