package session

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	InstallsTotal      *prometheus.CounterVec // Установки учетных данных (success/rejected)
	VerificationsTotal *prometheus.CounterVec // Проверки учетных данных на бэкенде
	VerifyLatency      prometheus.Histogram   // Латентность проверки
	ActiveSessions     prometheus.Gauge       // Количество сессий в реестре
	ExpiredTotal       prometheus.Counter     // Сессии, удаленные по истечении срока
}

func NewMetrics() *Metrics {
	return &Metrics{
		InstallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3console_session_installs_total",
				Help: "Total number of STS credential installs",
			},
			[]string{"result"},
		),
		VerificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3console_session_verifications_total",
				Help: "Total number of backend verifications of installed credentials",
			},
			[]string{"result"}, // success/denied/canceled/error/skipped
		),
		VerifyLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "s3console_session_verify_latency_seconds",
				Help:    "Latency of credential verification requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
		),
		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "s3console_sessions_active",
				Help: "Number of sessions held by the registry",
			},
		),
		ExpiredTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "s3console_sessions_expired_total",
				Help: "Total number of sessions dropped because their credentials expired",
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
