package console

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsTotal  *prometheus.CounterVec   // Количество обработанных запросов консоли
	RequestLatency *prometheus.HistogramVec // Латентность запросов консоли
}

func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3console_http_requests_total",
				Help: "Total number of processed console HTTP requests",
			},
			[]string{"method", "route", "code"},
		),
		RequestLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "s3console_http_request_latency_seconds",
				Help:    "Latency of console HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

var (
	metricsOnce    sync.Once
	packageMetrics *Metrics
)

func defaultMetrics() *Metrics {
	metricsOnce.Do(func() {
		packageMetrics = NewMetrics()
	})
	return packageMetrics
}
