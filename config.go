package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"s3console/callback"
	"s3console/console"
	"s3console/logger"
	"s3console/monitoring"
	"s3console/oidc"
	"s3console/session"
)

// AppConfig содержит полную конфигурацию приложения
type AppConfig struct {
	// Конфигурация HTTP-сервера консоли
	Server console.Config `yaml:"server"`

	// Конфигурация логирования
	Logging LoggingConfig `yaml:"logging"`

	// Конфигурация OIDC-эндпоинтов сервера RustFS
	OIDC oidc.Config `yaml:"oidc"`

	// Конфигурация сессий консоли
	Session session.Config `yaml:"session"`

	// Конфигурация завершения входа
	Callback callback.Config `yaml:"callback"`

	// Конфигурация мониторинга
	Monitoring monitoring.Config `yaml:"monitoring"`
}

// LoggingConfig содержит конфигурацию логирования
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultAppConfig возвращает конфигурацию по умолчанию
func DefaultAppConfig() *AppConfig {
	cb := callback.DefaultConfig()
	// Сервер не ждет сигнал бесконечно: ответ должен уйти до write_timeout
	cb.AuthWaitTimeout = 30 * time.Second

	return &AppConfig{
		Server: console.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
		OIDC:       *oidc.DefaultConfig(),
		Session:    *session.DefaultConfig(),
		Callback:   *cb,
		Monitoring: *monitoring.DefaultConfig(),
	}
}

// LoadConfig загружает конфигурацию из файла. Пустое имя - только значения
// по умолчанию и переменные окружения.
func LoadConfig(filename string) (*AppConfig, error) {
	// Начинаем с конфигурации по умолчанию
	config := DefaultAppConfig()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
		}
	}

	applyEnvOverrides(config, os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadEnvFiles загружает переменные из .env файлов. Отсутствующий файл
// пропускается, уже заданные переменные окружения не перезаписываются.
func LoadEnvFiles(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", file, err)
		}
		logger.Debug("Loaded environment from %s", file)
	}
	return nil
}

// applyEnvOverrides применяет переменные S3CONSOLE_* поверх файла
func applyEnvOverrides(config *AppConfig, getenv func(string) string) {
	if v := getenv("S3CONSOLE_LISTEN_ADDRESS"); v != "" {
		config.Server.ListenAddress = v
		logger.Debug("Override: server.listen_address = %s", v)
	}

	if v := getenv("S3CONSOLE_BASE_PATH"); v != "" {
		config.Server.BasePath = v
		logger.Debug("Override: server.base_path = %s", v)
	}

	// Консоль и S3 API обслуживает один и тот же сервер RustFS
	if v := getenv("S3CONSOLE_SERVER_HOST"); v != "" {
		config.OIDC.ServerHost = v
		config.Session.Endpoint = v
		logger.Debug("Override: oidc.server_host = session.endpoint = %s", v)
	}

	if v := getenv("S3CONSOLE_REGION"); v != "" {
		config.Session.Region = v
		logger.Debug("Override: session.region = %s", v)
	}

	if v := getenv("S3CONSOLE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
		logger.Debug("Override: logging.level = %s", v)
	}

	if v := getenv("S3CONSOLE_METRICS_LISTEN"); v != "" {
		config.Monitoring.ListenAddress = v
		logger.Debug("Override: monitoring.listen_address = %s", v)
	}
}

// Validate проверяет корректность конфигурации
func (c *AppConfig) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	// Валидируем уровень логирования
	if !logger.IsValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	if err := c.OIDC.Validate(); err != nil {
		return fmt.Errorf("oidc config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Callback.Validate(); err != nil {
		return fmt.Errorf("callback config: %w", err)
	}

	// Иначе соединение закроется раньше, чем callback уйдет на страницу входа
	if c.Callback.AuthWaitTimeout == 0 || c.Callback.AuthWaitTimeout >= c.Server.WriteTimeout {
		return fmt.Errorf("callback.auth_wait_timeout must be positive and shorter than server.write_timeout (%v)",
			c.Server.WriteTimeout)
	}

	if err := c.Monitoring.Validate(); err != nil {
		return fmt.Errorf("monitoring config: %w", err)
	}

	return nil
}

// SaveConfig сохраняет конфигурацию в файл (для генерации примера)
func (c *AppConfig) SaveConfig(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}
