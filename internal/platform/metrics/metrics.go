package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sicommerce/storefront/internal/domain"
	"github.com/sicommerce/storefront/internal/platform/observability"
)

const namespace = "storefront"

// Registry owns the storefront collectors. It satisfies services.Metrics.
type Registry struct {
	reg            *prometheus.Registry
	CartMutations  *prometheus.CounterVec
	OrdersAccepted *prometheus.CounterVec
	OrdersRejected *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	HTTPLatency    *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart mutations by operation.",
	}, []string{"op"})
	ordersAccepted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_submitted_total",
		Help:      "Accepted order submissions by draft source.",
	}, []string{"source"})
	ordersRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_rejected_total",
		Help:      "Rejected order submissions by reason.",
	}, []string{"reason"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listing_cache_lookups_total",
		Help:      "Listing cache lookups by result.",
	}, []string{"result"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	r.MustRegister(
		cartMutations, ordersAccepted, ordersRejected, cacheLookups, httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:            r,
		CartMutations:  cartMutations,
		OrdersAccepted: ordersAccepted,
		OrdersRejected: ordersRejected,
		CacheLookups:   cacheLookups,
		HTTPLatency:    httpLatency,
	}
}

func (r *Registry) CartMutation(op string) {
	r.CartMutations.WithLabelValues(op).Inc()
}

func (r *Registry) OrderSubmitted(source domain.OrderSourceKind) {
	r.OrdersAccepted.WithLabelValues(string(source)).Inc()
}

func (r *Registry) OrderRejected(reason string) {
	r.OrdersRejected.WithLabelValues(reason).Inc()
}

func (r *Registry) ListingCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookups.WithLabelValues(result).Inc()
}

// Middleware observes request latency keyed by the matched route pattern, so path parameters do
// not explode label cardinality.
func (r *Registry) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			recorder := observability.NewResponseRecorder(w)
			start := time.Now()
			defer func() {
				r.HTTPLatency.WithLabelValues(
					observability.RoutePattern(req),
					observability.SanitizeMethod(req.Method),
					strconv.Itoa(recorder.Status()),
				).Observe(time.Since(start).Seconds())
			}()
			next.ServeHTTP(recorder, req)
		})
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
