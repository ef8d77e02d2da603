package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gestio/messagerie/internal/backend"
	"github.com/gestio/messagerie/internal/conversation"
	"github.com/gestio/messagerie/internal/dispatch"
	"github.com/gestio/messagerie/internal/identity"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the messaging endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/contacts", h.GetContacts)
		r.Post("/contacts/refresh", h.RefreshContacts)
		r.Post("/conversation/select", h.SelectContact)
		r.Get("/conversation", h.GetConversation)
		r.Post("/conversation/draft", h.SetDraft)
		r.Post("/message", h.SendMessage)
	})
}

func (h *Handler) storeFor(r *http.Request) *conversation.Store {
	user, err := identity.UserFromContext(r.Context())
	if err != nil {
		// Browsing degrades gracefully without identity; only sending needs it.
		return h.sessions.ForUser(nil)
	}
	return h.sessions.ForUser(user)
}

// GetContacts returns the canonical contact list, refreshing it if it has
// never been built for this session.
func (h *Handler) GetContacts(w http.ResponseWriter, r *http.Request) {
	s := h.storeFor(r)
	snap := s.Snapshot()
	if len(snap.Contacts) == 0 {
		s.RefreshContacts(r.Context())
		snap = s.Snapshot()
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"contacts": snap.Contacts,
		"state":    snap.State,
	})
}

// RefreshContacts rebuilds the canonical contact list from the backend
// sources.
func (h *Handler) RefreshContacts(w http.ResponseWriter, r *http.Request) {
	s := h.storeFor(r)
	list := s.RefreshContacts(r.Context())
	JSON(w, http.StatusOK, map[string]interface{}{"contacts": list})
}

type selectRequest struct {
	ContactID string `json:"contactId"`
}

// SelectContact sets the active conversation and loads its thread.
func (h *Handler) SelectContact(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ContactID == "" {
		Error(w, http.StatusBadRequest, "contactId is required")
		return
	}

	s := h.storeFor(r)
	err := s.SelectContact(r.Context(), req.ContactID)
	snap := s.Snapshot()
	if err != nil {
		if errors.Is(err, backend.ErrAuthorizationRejected) {
			JSON(w, http.StatusForbidden, map[string]interface{}{
				"error":    "not allowed to message this contact",
				"contacts": snap.Contacts,
				"state":    snap.State,
			})
			return
		}
		// Selection is kept so the client can retry; the thread is empty.
		slog.Warn("thread load failed on select", "contact_id", req.ContactID, "error", err)
	}
	JSON(w, http.StatusOK, snapshotPayload(snap))
}

// GetConversation returns the current thread and session state.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, snapshotPayload(h.storeFor(r).Snapshot()))
}

type draftRequest struct {
	Text string `json:"text"`
}

// SetDraft stores the composed-but-unsent input.
func (h *Handler) SetDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid draft payload")
		return
	}
	s := h.storeFor(r)
	s.SetDraft(r.Context(), req.Text)
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sendRequest struct {
	Text string `json:"text"`
}

// SendMessage dispatches a message to the active conversation with the
// optimistic-send protocol.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid message payload")
		return
	}

	s := h.storeFor(r)
	err := h.dispatcher.Send(r.Context(), s, s.SelectedContact(), req.Text)
	snap := s.Snapshot()
	switch {
	case err == nil:
		JSON(w, http.StatusOK, snapshotPayload(snap))
	case errors.Is(err, identity.ErrIdentityUnavailable):
		Error(w, http.StatusUnauthorized, "session expired, log in again")
	case errors.Is(err, dispatch.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, "message text is empty")
	case errors.Is(err, dispatch.ErrNotSelected):
		Error(w, http.StatusConflict, "no active conversation")
	case errors.Is(err, backend.ErrAuthorizationRejected):
		JSON(w, http.StatusForbidden, map[string]interface{}{
			"error":    "not allowed to message this contact",
			"contacts": snap.Contacts,
			"state":    snap.State,
		})
	default:
		JSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": "message not sent",
			"draft": snap.Draft,
		})
	}
}

func snapshotPayload(snap conversation.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"contacts":            snap.Contacts,
		"selected_contact_id": snap.SelectedContactID,
		"state":               snap.State,
		"messages":            snap.Messages,
		"draft":               snap.Draft,
	}
}
