// Package notify fans transient user-facing notices out to subscribers.
// Notices auto-dismiss on the presentation side; this package only carries
// them there.
package notify

import (
	"log/slog"
	"sync"
)

// Level classifies a notice for presentation.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Hub delivers notices to subscriber channels. Slow subscribers lose the
// oldest notice rather than blocking publishers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Notice]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Notice]struct{})}
}

// Subscribe registers a new subscriber channel with the given buffer size.
func (h *Hub) Subscribe(buffer int) chan Notice {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Notice, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(ch chan Notice) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish sends a notice to every subscriber without blocking.
func (h *Hub) Publish(n Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- n:
		default:
			// Drop the oldest entry to make room for the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- n:
			default:
				slog.Debug("notice dropped for slow subscriber", "level", n.Level)
			}
		}
	}
}

// Info publishes an informational notice.
func (h *Hub) Info(text string) { h.Publish(Notice{Level: LevelInfo, Text: text}) }

// Warning publishes a warning notice.
func (h *Hub) Warning(text string) { h.Publish(Notice{Level: LevelWarning, Text: text}) }

// Error publishes an error notice.
func (h *Hub) Error(text string) { h.Publish(Notice{Level: LevelError, Text: text}) }
