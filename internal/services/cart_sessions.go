package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type cartSession struct {
	store    *CartStore
	lastSeen time.Time
}

// CartSessionsDeps bundles collaborators for the cart session registry.
type CartSessionsDeps struct {
	TTL         time.Duration
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *zap.Logger
}

// CartSessions owns one CartStore per browsing session. A store is created when its session first
// opens and destroyed when the session ends or stays idle longer than the TTL.
type CartSessions struct {
	mu       sync.RWMutex
	sessions map[string]*cartSession
	ttl      time.Duration
	now      func() time.Time
	newID    func() string
	logger   *zap.Logger
}

const defaultCartSessionTTL = 2 * time.Hour

// NewCartSessions constructs an empty registry.
func NewCartSessions(deps CartSessionsDeps) *CartSessions {
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = defaultCartSessionTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartSessions{
		sessions: make(map[string]*cartSession),
		ttl:      ttl,
		now:      clock,
		newID:    deps.IDGenerator,
		logger:   logger,
	}
}

// Open returns the store bound to sessionID, creating it on first use. Every call refreshes the idle
// timer.
func (r *CartSessions) Open(sessionID string) (*CartStore, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrCartInvalidInput
	}

	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[sessionID]; ok {
		sess.lastSeen = now
		return sess.store, nil
	}
	store := NewCartStore(r.newID)
	r.sessions[sessionID] = &cartSession{store: store, lastSeen: now}
	return store, nil
}

// Lookup returns the store for sessionID without creating one.
func (r *CartSessions) Lookup(sessionID string) (*CartStore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return sess.store, true
}

// End destroys the store for sessionID. Unknown sessions are ignored.
func (r *CartSessions) End(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Len reports the number of live sessions.
func (r *CartSessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep destroys every session idle for longer than the TTL and returns how many were removed. Open
// refreshes the idle timer under the same lock, so a store handed out by Open stays bound for a full
// TTL afterwards. Config validation keeps the TTL above the server write timeout, which bounds how long
// a request can hold the store.
func (r *CartSessions) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		if now.Sub(sess.lastSeen) > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps expired sessions every interval until ctx is cancelled.
func (r *CartSessions) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Sweep(r.now()); removed > 0 {
				r.logger.Debug("expired cart sessions swept", zap.Int("removed", removed), zap.Int("remaining", r.Len()))
			}
		}
	}
}
