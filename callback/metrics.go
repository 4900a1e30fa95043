package callback

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CallbacksTotal  *prometheus.CounterVec // Завершенные callback по конечному состоянию и причине
	InstallLatency  prometheus.Histogram   // Время установки учетных данных
	AuthWaitLatency prometheus.Histogram   // Время ожидания сигнала аутентификации
	InFlight        prometheus.Gauge       // Callback в обработке
}

func NewMetrics() *Metrics {
	return &Metrics{
		CallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3console_sso_callbacks_total",
				Help: "Total number of SSO callbacks by terminal state and reason",
			},
			[]string{"state", "reason"},
		),
		InstallLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "s3console_sso_install_latency_seconds",
				Help:    "Latency of installing SSO credentials into the session store in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		AuthWaitLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "s3console_sso_auth_wait_seconds",
				Help:    "Time between a successful install and the session becoming authenticated",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		InFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "s3console_sso_callbacks_in_flight",
				Help: "Number of SSO callbacks currently being processed",
			},
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

// reasonLabel возвращает метку причины для CallbacksTotal
func reasonLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMalformedCallback):
		return "malformed"
	case errors.Is(err, ErrInstallRejected):
		return "rejected"
	case errors.Is(err, ErrAuthWaitTimeout):
		return "timeout"
	default:
		return "canceled"
	}
}
