package session

import (
	"fmt"
	"time"
)

// Config содержит конфигурацию хранилища сессий
type Config struct {
	// Endpoint - URL S3 API сервера (например, http://localhost:9000)
	Endpoint string `yaml:"endpoint"`

	// Region - регион для подписи запросов
	Region string `yaml:"region"`

	// Verify - проверять учетные данные запросом ListBuckets перед тем, как
	// объявить сессию аутентифицированной
	Verify bool `yaml:"verify"`

	// VerifyTimeout - таймаут проверочного запроса
	VerifyTimeout time.Duration `yaml:"verify_timeout"`

	// SessionTTL - максимальное время жизни сессии, даже если у учетных данных нет срока
	SessionTTL time.Duration `yaml:"session_ttl"`

	// ExpiryCheckInterval - интервал фоновой проверки истекших сессий
	ExpiryCheckInterval time.Duration `yaml:"expiry_check_interval"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Endpoint:            "http://localhost:9000",
		Region:              "us-east-1",
		Verify:              true,
		VerifyTimeout:       5 * time.Second,
		SessionTTL:          12 * time.Hour,
		ExpiryCheckInterval: 30 * time.Second,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if c.Region == "" {
		return fmt.Errorf("region cannot be empty")
	}

	if c.Verify && c.VerifyTimeout <= 0 {
		return fmt.Errorf("verify_timeout must be positive when verify is enabled")
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}

	if c.ExpiryCheckInterval <= 0 {
		return fmt.Errorf("expiry_check_interval must be positive")
	}

	return nil
}
