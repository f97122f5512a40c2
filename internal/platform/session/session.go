package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sicommerce/storefront/internal/platform/config"
	"github.com/sicommerce/storefront/internal/platform/requestctx"
)

const defaultCookieName = "si_session"

// Manager issues and verifies the anonymous session cookie. The cookie value is
// "<uuid>.<base64url(hmac-sha256(uuid))>"; it identifies a cart, not a user.
type Manager struct {
	cookieName string
	key        []byte
	ttl        time.Duration
	secure     bool
	now        func() time.Time
	newID      func() string
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock injects a custom clock.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithIDGenerator overrides session ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// NewManager builds a Manager from configuration. Without a signing key a process-ephemeral key is
// generated, so sessions do not survive restarts.
func NewManager(cfg config.SessionConfig, logger *zap.Logger, opts ...Option) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	key := []byte(cfg.SigningKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, errors.New("session: generate signing key: " + err.Error())
		}
		logger.Warn("session signing key not configured; using an ephemeral key")
	}
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = defaultCookieName
	}
	m := &Manager{
		cookieName: name,
		key:        key,
		ttl:        cfg.TTL,
		secure:     cfg.Secure,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Middleware resolves the session ID from the cookie, issuing a fresh one when the cookie is
// missing or fails verification, and stores it on the request context. The cookie expiry slides on
// every request.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.Read(r)
			if !ok {
				id = m.newID()
			}
			m.write(w, id)
			next.ServeHTTP(w, r.WithContext(requestctx.WithSessionID(r.Context(), id)))
		})
	}
}

// Read returns the verified session ID carried by the request.
func (m *Manager) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	id, sig, found := strings.Cut(cookie.Value, ".")
	if !found || id == "" {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(got, m.sign(id)) {
		return "", false
	}
	return id, true
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CookieValue returns the signed cookie value for id.
func (m *Manager) CookieValue(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(m.sign(id))
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string { return m.cookieName }

func (m *Manager) write(w http.ResponseWriter, id string) {
	cookie := &http.Cookie{
		Name:     m.cookieName,
		Value:    m.CookieValue(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.ttl > 0 {
		cookie.Expires = m.now().Add(m.ttl)
		cookie.MaxAge = int(m.ttl / time.Second)
	}
	http.SetCookie(w, cookie)
}

func (m *Manager) sign(id string) []byte {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(id))
	return mac.Sum(nil)
}
