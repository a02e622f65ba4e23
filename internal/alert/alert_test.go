package alert

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type notifierSpy struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notifierSpy) Notify(_ context.Context, msg string) error {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
	return nil
}

func (n *notifierSpy) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.msgs))
	copy(out, n.msgs)
	return out
}

func TestManagerCloseFlushesQueuedEvents(t *testing.T) {
	spy := &notifierSpy{}
	m := NewManager("XYZUSDT", spy)
	if m == nil {
		t.Fatalf("NewManager() returned nil")
	}

	m.Important("buy_order_filled", map[string]string{"order_id": "42"})
	m.Important("take_profit_submitted", map[string]string{"price": "10.5"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	msgs := spy.snapshot()
	if len(msgs) != 2 {
		t.Fatalf("delivered messages = %d, want 2", len(msgs))
	}
	if !strings.Contains(msgs[0], "buy_order_filled") || !strings.Contains(msgs[0], "order_id: 42") {
		t.Fatalf("first message = %q, want event name and fields", msgs[0])
	}
	if !strings.Contains(msgs[0], "symbol: XYZUSDT") {
		t.Fatalf("first message = %q, want symbol line", msgs[0])
	}
}

func TestManagerIgnoresEventsAfterClose(t *testing.T) {
	spy := &notifierSpy{}
	m := NewManager("XYZUSDT", spy)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	m.Important("late_event", nil)
	if got := len(spy.snapshot()); got != 0 {
		t.Fatalf("delivered messages = %d, want 0 after close", got)
	}
}

func TestNilManagerIsSafe(t *testing.T) {
	var m *Manager
	m.Important("anything", nil)
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("nil Close() error = %v", err)
	}
}

func TestNewManagerWithoutNotifierIsNil(t *testing.T) {
	if m := NewManager("XYZUSDT", nil); m != nil {
		t.Fatalf("NewManager(nil notifier) = %v, want nil", m)
	}
}
