package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCartSessionsOpenReturnsSameStore(t *testing.T) {
	sessions := NewCartSessions(CartSessionsDeps{})

	first, err := sessions.Open("sess-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	mustAdd(t, first, "A", 1, 1000)

	second, err := sessions.Open("sess-1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same store for one session")
	}

	other, err := sessions.Open("sess-2")
	if err != nil {
		t.Fatalf("open other: %v", err)
	}
	if other.ItemCount() != 0 {
		t.Fatalf("expected sessions to be isolated")
	}
	if sessions.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", sessions.Len())
	}
}

func TestCartSessionsOpenRejectsBlankID(t *testing.T) {
	sessions := NewCartSessions(CartSessionsDeps{})
	if _, err := sessions.Open(" "); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
}

func TestCartSessionsEndDestroysStore(t *testing.T) {
	sessions := NewCartSessions(CartSessionsDeps{})
	store, _ := sessions.Open("sess-1")
	mustAdd(t, store, "A", 1, 1000)

	sessions.End("sess-1")
	if _, ok := sessions.Lookup("sess-1"); ok {
		t.Fatalf("expected session to be gone after End")
	}
	fresh, _ := sessions.Open("sess-1")
	if fresh.ItemCount() != 0 {
		t.Fatalf("expected a new empty store after the session ended")
	}
	sessions.End("unknown")
}

func TestCartSessionsSweepExpiresIdleSessions(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	sessions := NewCartSessions(CartSessionsDeps{TTL: time.Hour, Clock: clock.Now})

	if _, err := sessions.Open("idle"); err != nil {
		t.Fatalf("open idle: %v", err)
	}
	clock.Advance(40 * time.Minute)
	if _, err := sessions.Open("active"); err != nil {
		t.Fatalf("open active: %v", err)
	}
	clock.Advance(30 * time.Minute)

	if removed := sessions.Sweep(clock.Now()); removed != 1 {
		t.Fatalf("expected 1 expired session, got %d", removed)
	}
	if _, ok := sessions.Lookup("idle"); ok {
		t.Fatalf("expected idle session to be swept")
	}
	if _, ok := sessions.Lookup("active"); !ok {
		t.Fatalf("expected active session to survive")
	}
}

func TestCartSessionsOpenRefreshesIdleTimer(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	sessions := NewCartSessions(CartSessionsDeps{TTL: time.Hour, Clock: clock.Now})

	_, _ = sessions.Open("sess")
	clock.Advance(50 * time.Minute)
	_, _ = sessions.Open("sess")
	clock.Advance(50 * time.Minute)

	if removed := sessions.Sweep(clock.Now()); removed != 0 {
		t.Fatalf("expected refreshed session to survive, removed %d", removed)
	}
}

func TestCartSessionsSweepKeepsStoreOpenedWithinTTL(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	sessions := NewCartSessions(CartSessionsDeps{TTL: time.Hour, Clock: clock.Now})

	_, _ = sessions.Open("sess")
	clock.Advance(59 * time.Minute)
	store, err := sessions.Open("sess")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	clock.Advance(time.Hour)

	if removed := sessions.Sweep(clock.Now()); removed != 0 {
		t.Fatalf("expected store opened within the TTL to survive, removed %d", removed)
	}
	if _, err := store.AddItem("p1", 1, 1000, "Phone", ""); err != nil {
		t.Fatalf("add item: %v", err)
	}
	again, ok := sessions.Lookup("sess")
	if !ok || again != store {
		t.Fatalf("expected the same store to stay bound to the session")
	}
	if len(again.Items()) != 1 {
		t.Fatalf("expected mutation to be visible through the session, got %v", again.Items())
	}
}

func TestCartSessionsRunSweeperStopsOnCancel(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	sessions := NewCartSessions(CartSessionsDeps{TTL: time.Minute, Clock: clock.Now})
	_, _ = sessions.Open("sess")
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessions.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sessions.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("sweeper did not remove the expired session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper did not stop after cancellation")
	}
}
