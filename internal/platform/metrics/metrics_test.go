package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sicommerce/storefront/internal/domain"
)

func TestRegistryCounters(t *testing.T) {
	reg := NewRegistry()

	reg.CartMutation("add")
	reg.CartMutation("add")
	reg.CartMutation("clear")
	reg.OrderSubmitted(domain.OrderSourceDirectPurchase)
	reg.OrderRejected("empty")
	reg.ListingCacheLookup(true)
	reg.ListingCacheLookup(false)
	reg.ListingCacheLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.CartMutations.WithLabelValues("add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CartMutations.WithLabelValues("clear")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.OrdersAccepted.WithLabelValues("direct_purchase")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.OrdersRejected.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("miss")))
}

func TestMiddlewareObservesRoutePattern(t *testing.T) {
	reg := NewRegistry()
	router := chi.NewRouter()
	router.Use(reg.Middleware())
	router.Get("/products/{slug}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, slug := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+slug, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(reg.HTTPLatency))
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := NewRegistry()
	reg.CartMutation("add")

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_cart_mutations_total{op="add"} 1`)
}
