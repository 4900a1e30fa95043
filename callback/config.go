package callback

import (
	"fmt"
	"time"

	"s3console/redirect"
)

// Config содержит конфигурацию оркестратора
type Config struct {
	// LoginRoute - куда уходит пользователь при любой неудаче
	LoginRoute string `yaml:"login_route"`

	// DefaultRedirect - fallback для повторной проверки redirect из фрагмента
	DefaultRedirect string `yaml:"default_redirect"`

	// AuthWaitTimeout - сколько ждать сигнала аутентификации после установки.
	// 0 - ждать без ограничения.
	AuthWaitTimeout time.Duration `yaml:"auth_wait_timeout"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LoginRoute:      redirect.LoginPath,
		DefaultRedirect: "/browser",
		AuthWaitTimeout: 0,
	}
}

// Validate проверяет корректность конфигурации. Оба маршрута сами должны
// проходить redirect.Guard: они попадают в ту же точку навигации.
func (c *Config) Validate() error {
	if redirect.Guard(c.LoginRoute, "") == "" {
		return fmt.Errorf("login_route must be a safe relative path, got %q", c.LoginRoute)
	}

	if redirect.Guard(c.DefaultRedirect, "") == "" {
		return fmt.Errorf("default_redirect must be a safe relative path, got %q", c.DefaultRedirect)
	}

	if c.AuthWaitTimeout < 0 {
		return fmt.Errorf("auth_wait_timeout cannot be negative")
	}

	return nil
}
