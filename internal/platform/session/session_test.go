package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sicommerce/storefront/internal/platform/config"
	"github.com/sicommerce/storefront/internal/platform/requestctx"
)

const fixedID = "6f1c3c1e-8f4b-4d8e-9a51-2b7c0f2d9e10"

func newTestManager(t *testing.T, key string) *Manager {
	t.Helper()
	m, err := NewManager(config.SessionConfig{CookieName: "sid", SigningKey: key, TTL: time.Hour}, nil,
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string { return fixedID }),
	)
	require.NoError(t, err)
	return m
}

func serve(m *Manager, req *http.Request) (*httptest.ResponseRecorder, string) {
	var seen string
	handler := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.SessionID(r.Context())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddlewareIssuesSession(t *testing.T) {
	m := newTestManager(t, "0123456789abcdef0123456789abcdef")

	rec, seen := serve(m, httptest.NewRequest(http.MethodGet, "/cart", nil))

	assert.Equal(t, fixedID, seen)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, m.CookieValue(fixedID), cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)
}

func TestMiddlewareKeepsVerifiedSession(t *testing.T) {
	m := newTestManager(t, "0123456789abcdef0123456789abcdef")
	existing := "0b6d8a52-7c1e-4a3f-9d2b-5e8f1a0c4b7d"

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: m.CookieValue(existing)})
	_, seen := serve(m, req)

	assert.Equal(t, existing, seen)
}

func TestMiddlewareRejectsTamperedCookies(t *testing.T) {
	m := newTestManager(t, "0123456789abcdef0123456789abcdef")
	other := newTestManager(t, "another-key-another-key-another!!")
	existing := "0b6d8a52-7c1e-4a3f-9d2b-5e8f1a0c4b7d"

	values := []string{
		other.CookieValue(existing),
		existing,
		"not-a-uuid." + "AAAA",
		m.CookieValue(existing) + "x",
	}
	for _, value := range values {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: value})
		_, seen := serve(m, req)
		assert.Equal(t, fixedID, seen, "cookie %q should not be trusted", value)
	}
}

func TestEphemeralKeyAndClear(t *testing.T) {
	m, err := NewManager(config.SessionConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "si_session", m.CookieName())

	id := "0b6d8a52-7c1e-4a3f-9d2b-5e8f1a0c4b7d"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: m.CookieName(), Value: m.CookieValue(id)})
	got, ok := m.Read(req)
	require.True(t, ok)
	assert.Equal(t, id, got)

	rec := httptest.NewRecorder()
	m.Clear(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
