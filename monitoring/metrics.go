package monitoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - метрики готовности сервиса. Память и горутины уже отдает
// стандартный Go collector из default registry.
type Metrics struct {
	Ready           prometheus.Gauge       // 1, если сервис готов принимать callback
	ReadinessChecks *prometheus.CounterVec // Результаты проверок готовности
}

// NewMetrics создает и регистрирует метрики в default registry
func NewMetrics() *Metrics {
	return &Metrics{
		Ready: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "s3console_ready",
				Help: "Whether the console is ready to serve requests (1 = ready)",
			},
		),
		ReadinessChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3console_readiness_checks_total",
				Help: "Total number of readiness checks by result",
			},
			[]string{"result"}, // ok, failed
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
