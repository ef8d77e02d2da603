package notify

import (
	"testing"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	t.Parallel()

	h := NewHub()
	a := h.Subscribe(4)
	b := h.Subscribe(4)
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Warning("heads up")

	for _, ch := range []chan Notice{a, b} {
		select {
		case n := <-ch:
			if n.Level != LevelWarning || n.Text != "heads up" {
				t.Errorf("unexpected notice %+v", n)
			}
		default:
			t.Error("subscriber did not receive the notice")
		}
	}
}

func TestSlowSubscriberLosesOldest(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch := h.Subscribe(1)
	defer h.Unsubscribe(ch)

	h.Info("first")
	h.Info("second")

	n := <-ch
	if n.Text != "second" {
		t.Errorf("expected newest notice to win, got %q", n.Text)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra notice %+v", extra)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch := h.Subscribe(1)
	h.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel not closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	h.Error("late")
}
