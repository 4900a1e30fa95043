package oidc

import (
	"fmt"
	"time"
)

// Config содержит конфигурацию клиента OIDC-эндпоинтов сервера RustFS
type Config struct {
	// ServerHost - адрес сервера RustFS (например, "http://localhost:9000")
	ServerHost string `yaml:"server_host"`

	// RequestTimeout - таймаут запроса списка провайдеров
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ProvidersCacheTTL - сколько хранить успешно полученный список провайдеров.
	// 0 отключает кэш.
	ProvidersCacheTTL time.Duration `yaml:"providers_cache_ttl"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		ServerHost:        "http://localhost:9000",
		RequestTimeout:    10 * time.Second,
		ProvidersCacheTTL: time.Minute,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.ServerHost == "" {
		return ErrEmptyServerHost
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}

	if c.ProvidersCacheTTL < 0 {
		return fmt.Errorf("providers_cache_ttl cannot be negative")
	}

	return nil
}
