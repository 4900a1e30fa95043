package monitoring

import (
	"fmt"
	"time"
)

// Config содержит конфигурацию для модуля мониторинга
type Config struct {
	// Enabled определяет, включен ли мониторинг
	Enabled bool `yaml:"enabled"`

	// ListenAddress - адрес для HTTP сервера метрик (например, ":9091")
	ListenAddress string `yaml:"listen_address"`

	// MetricsPath - путь для эндпоинта метрик (по умолчанию "/metrics")
	MetricsPath string `yaml:"metrics_path"`

	// ReadTimeout - таймаут чтения для HTTP сервера метрик
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout - таймаут записи для HTTP сервера метрик
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// EnableReadinessChecks - периодически проверять готовность и обновлять s3console_ready
	EnableReadinessChecks bool `yaml:"enable_readiness_checks"`

	// ReadinessInterval - интервал периодической проверки готовности
	ReadinessInterval time.Duration `yaml:"readiness_interval"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Enabled:               true,
		ListenAddress:         ":9091",
		MetricsPath:           "/metrics",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		EnableReadinessChecks: true,
		ReadinessInterval:     15 * time.Second,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil // Если мониторинг отключен, валидация не нужна
	}

	if c.ListenAddress == "" {
		return fmt.Errorf("listen_address cannot be empty when monitoring is enabled")
	}

	if c.MetricsPath == "" || c.MetricsPath[0] != '/' {
		return fmt.Errorf("metrics_path must start with '/'")
	}

	switch c.MetricsPath {
	case healthLivePath, healthReadyPath:
		return fmt.Errorf("metrics_path %q conflicts with health endpoints", c.MetricsPath)
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}

	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive")
	}

	if c.EnableReadinessChecks && c.ReadinessInterval <= 0 {
		return fmt.Errorf("readiness_interval must be positive when the periodic readiness check is enabled")
	}

	return nil
}
