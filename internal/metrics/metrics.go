// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modestwear_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modestwear_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modestwear_recommend_duration_seconds",
			Help:    "Time spent computing one recommendation strategy",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"strategy"},
	)

	CacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modestwear_cache_lookups_total",
			Help: "Cache lookups by cache and result (hit, miss)",
		},
		[]string{"cache", "result"},
	)

	Checkouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modestwear_checkouts_total",
			Help: "Checkout attempts by outcome (placed, insufficient_stock, empty_cart, error)",
		},
		[]string{"outcome"},
	)

	MailSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modestwear_mail_sends_total",
			Help: "Outgoing mail by template and outcome",
		},
		[]string{"template", "outcome"},
	)

	LowStockVariants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "modestwear_low_stock_variants",
			Help: "Active variants at or below the low stock threshold at the last scan",
		},
	)

	TokensRevoked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modestwear_tokens_revoked_total",
			Help: "Revoked JWTs by reason",
		},
		[]string{"reason"},
	)
)

// RecordHTTP records one finished request.
func RecordHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
