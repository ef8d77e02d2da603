package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gestio/messagerie/internal/conversation"
	"github.com/gestio/messagerie/internal/identity"
	"github.com/gestio/messagerie/internal/notify"
)

// WebSocketHandler pushes session snapshots and notices to the presentation
// layer so it can render without polling.
type WebSocketHandler struct {
	sessions        *conversation.Manager
	notices         *notify.Hub
	allowedOrigin   string
	isDev           bool
	refreshInterval time.Duration
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(sessions *conversation.Manager, notices *notify.Hub, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		sessions:      sessions,
		notices:       notices,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// SetRefreshInterval enables periodic contact/unread refresh while a client
// is connected. The poller is tied to the connection context and stops when
// the conversation view goes away.
func (h *WebSocketHandler) SetRefreshInterval(interval time.Duration) {
	h.refreshInterval = interval
}

// wsEvent is the envelope for every pushed message.
type wsEvent struct {
	Type     string                 `json:"type"` // "snapshot" or "notice"
	Snapshot *conversation.Snapshot `json:"snapshot,omitempty"`
	Notice   *notify.Notice         `json:"notice,omitempty"`
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev || h.allowedOrigin == "" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || strings.EqualFold(origin, h.allowedOrigin)
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	user, err := identity.UserFromContext(r.Context())
	if err != nil {
		user = nil
	}
	store := h.sessions.ForUser(user)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	changes := store.Subscribe()
	defer store.Unsubscribe(changes)
	noticeCh := h.notices.Subscribe(32)
	defer h.notices.Unsubscribe(noticeCh)

	store.Restore(ctx)
	go store.RefreshContacts(ctx)
	if h.refreshInterval > 0 {
		store.StartRefresh(ctx, h.refreshInterval)
	}

	// Initial state so the client renders immediately.
	snap := store.Snapshot()
	if err := wsjson.Write(ctx, ws, wsEvent{Type: "snapshot", Snapshot: &snap}); err != nil {
		slog.Debug("WebSocket initial write failed", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			snap := store.Snapshot()
			if err := wsjson.Write(ctx, ws, wsEvent{Type: "snapshot", Snapshot: &snap}); err != nil {
				slog.Debug("WebSocket snapshot write failed", "error", err)
				return
			}
		case n, ok := <-noticeCh:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, ws, wsEvent{Type: "notice", Notice: &n}); err != nil {
				slog.Debug("WebSocket notice write failed", "error", err)
				return
			}
		}
	}
}
