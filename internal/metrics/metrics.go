package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout counts coordinator outcomes and reservation retries.
type Checkout struct {
	Attempts *prometheus.CounterVec
	Retries  prometheus.Counter
	Duration prometheus.Histogram
}

func NewCheckout(service string) *Checkout {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "checkout_attempts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "reservation_retries_total",
		Help:      "Stock reservations retried after a storage conflict.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "checkout_duration_ms",
		Help:      "Checkout latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
	prometheus.MustRegister(attempts, retries, duration)
	return &Checkout{Attempts: attempts, Retries: retries, Duration: duration}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
