package oidc

import (
	"errors"
	"fmt"

	"s3console/logger"
)

// Provider описывает настроенного на сервере OIDC-провайдера.
// Используется только для отображения вариантов входа и построения URL авторизации.
type Provider struct {
	ProviderID  string `json:"provider_id"`
	DisplayName string `json:"display_name"`
}

// Credentials - временные STS-учетные данные, выданные после входа через провайдера.
// Значение неизменяемо и создается ровно один раз на callback.
type Credentials struct {
	AccessKey    string
	SecretKey    string // никогда не логируется
	SessionToken string // никогда не логируется
	Expiration   string // пустая строка, если провайдер не передал срок
	Redirect     string // всегда прошел redirect.Guard
}

// String не раскрывает секретный ключ и токен сессии
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AccessKey: %s, SecretKey: %s, SessionToken: %s, Expiration: %q, Redirect: %q}",
		logger.Mask(c.AccessKey), logger.Mask(c.SecretKey), logger.Mask(c.SessionToken), c.Expiration, c.Redirect)
}

// GoString используется форматом %#v
func (c Credentials) GoString() string {
	return c.String()
}

// Ключи фрагмента callback
const (
	keyAccessKey    = "accessKey"
	keySecretKey    = "secretKey"
	keySessionToken = "sessionToken"
	keyExpiration   = "expiration"
	keyRedirect     = "redirect"
)

var (
	// ErrEmptyServerHost - не задан адрес сервера RustFS
	ErrEmptyServerHost = errors.New("server host cannot be empty")
	// ErrEmptyProviderID - пустой идентификатор провайдера
	ErrEmptyProviderID = errors.New("provider id cannot be empty")
)
