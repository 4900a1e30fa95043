package oidc

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ProviderFetchTotal   *prometheus.CounterVec   // Запросы списка провайдеров (success/failure/cached)
	ProviderFetchLatency *prometheus.HistogramVec // Латентность запроса к серверу
}

func NewMetrics() *Metrics {
	return &Metrics{
		ProviderFetchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3console_oidc_provider_fetch_total",
				Help: "Total number of OIDC provider listing requests",
			},
			[]string{"result"},
		),
		ProviderFetchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "s3console_oidc_provider_fetch_latency_seconds",
				Help:    "Latency of OIDC provider listing requests to the server in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
	}
}

var (
	metricsOnce    sync.Once
	packageMetrics *Metrics
)

// defaultMetrics регистрирует метрики пакета один раз на процесс
func defaultMetrics() *Metrics {
	metricsOnce.Do(func() {
		packageMetrics = NewMetrics()
	})
	return packageMetrics
}
