package monitoring

import (
	"context"
	"fmt"

	"s3console/logger"
)

// Monitor представляет основной интерфейс модуля мониторинга
type Monitor struct {
	config *Config
	server *Server
	log    *logger.Logger
}

// New создает новый экземпляр Monitor. readiness может быть nil.
func New(config *Config, readiness ReadinessFunc) (*Monitor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	// Валидируем конфигурацию
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitoring config: %w", err)
	}

	monitor := &Monitor{
		config: config,
		server: NewServer(config, readiness),
		log:    logger.Component("monitoring"),
	}

	monitor.log.Info("Monitoring module initialized")
	monitor.log.Debug("Monitoring config: enabled=%v, listen=%s, path=%s",
		config.Enabled, config.ListenAddress, config.MetricsPath)

	return monitor, nil
}

// Start запускает модуль мониторинга
func (m *Monitor) Start() error {
	if !m.config.Enabled {
		m.log.Info("Monitoring is disabled")
		return nil
	}

	if err := m.server.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	m.log.Info("Monitoring module started successfully")
	return nil
}

// BeginShutdown сообщает балансировщику, что новые запросы принимать не нужно
func (m *Monitor) BeginShutdown() {
	m.server.SetShuttingDown()
}

// Stop останавливает модуль мониторинга
func (m *Monitor) Stop(ctx context.Context) error {
	if !m.config.Enabled {
		return nil
	}

	if err := m.server.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}

	m.log.Info("Monitoring module stopped")
	return nil
}

// GetConfig возвращает конфигурацию мониторинга
func (m *Monitor) GetConfig() *Config {
	return m.config
}

// IsEnabled возвращает true, если мониторинг включен
func (m *Monitor) IsEnabled() bool {
	return m.config.Enabled
}
