package console

import (
	"fmt"
	"time"

	"s3console/redirect"
)

// Config содержит конфигурацию HTTP-сервера консоли
type Config struct {
	// ListenAddress - адрес и порт для прослушивания (например, ":9090")
	ListenAddress string `yaml:"listen_address"`

	// TLSCertFile - путь к файлу SSL-сертификата (опционально, для включения HTTPS)
	TLSCertFile string `yaml:"tls_cert_file"`

	// TLSKeyFile - путь к файлу приватного ключа SSL (опционально)
	TLSKeyFile string `yaml:"tls_key_file"`

	// ReadTimeout - таймаут на чтение всего запроса, включая тело
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout - таймаут на запись всего ответа. Должен покрывать
	// ожидание аутентификации в callback.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// BasePath - путь, под которым опубликован фронтенд консоли.
	// Все переходы строятся через redirect.BuildRoute(BasePath, path).
	BasePath string `yaml:"base_path"`

	// SecureCookies - выставлять флаг Secure у cookie сессии
	SecureCookies bool `yaml:"secure_cookies"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		ListenAddress: ":9090",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  60 * time.Second,
		BasePath:      redirect.DefaultBasePath,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("listen_address cannot be empty")
	}

	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("tls_cert_file and tls_key_file must be set together")
	}

	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("read_timeout and write_timeout must be positive")
	}

	// Пустой BasePath допустим: консоль в корне домена
	if c.BasePath != "" && redirect.Guard(c.BasePath, "") == "" {
		return fmt.Errorf("base_path must be a safe absolute path, got %q", c.BasePath)
	}

	return nil
}
