package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "postershop"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests.",
		ConstLabels: prometheus.Labels{"service": service},
	}, []string{"route", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Name:        "http_request_duration_ms",
		Help:        "HTTP request latency in milliseconds.",
		ConstLabels: prometheus.Labels{"service": service},
		Buckets:     []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route", "method"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// OrderMetrics counts checkout outcomes by result label.
type OrderMetrics struct {
	Placed *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer, service string) *OrderMetrics {
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "orders_placed_total",
		Help:        "Checkout attempts by result.",
		ConstLabels: prometheus.Labels{"service": service},
	}, []string{"result"})
	reg.MustRegister(placed)
	return &OrderMetrics{Placed: placed}
}

// Observe is a no-op on a nil receiver.
func (m *OrderMetrics) Observe(result string) {
	if m == nil {
		return
	}
	m.Placed.WithLabelValues(result).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
