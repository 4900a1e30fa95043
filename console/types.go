package console

import (
	"context"
	"errors"

	"s3console/oidc"
	"s3console/session"
)

// ProviderSource - источник OIDC-провайдеров (реализуется oidc.Client)
type ProviderSource interface {
	FetchProviders(ctx context.Context) []oidc.Provider
	AuthorizeURL(providerID, redirectAfter string) (string, error)
}

// SessionStore - реестр сессий консоли (реализуется session.Registry)
type SessionStore interface {
	NewSession() (*session.Session, error)
	Add(s *session.Session)
	Get(id string) (*session.Session, error)
	Remove(id string)
}

// Имена cookie
const (
	SessionCookie = "console_session"
	FlashCookie   = "console_flash"
)

// maxCallbackBody ограничивает тело запроса callback
const maxCallbackBody = 64 << 10

// SessionView - ответ GET /api/session
type SessionView struct {
	Authenticated bool   `json:"authenticated"`
	State         string `json:"state"`
	AccessKey     string `json:"access_key"` // всегда маскирован
	Expiration    string `json:"expiration,omitempty"`
}

// ErrorResponse - тело ответа об ошибке
type ErrorResponse struct {
	Error string `json:"error"`
}

var (
	// ErrBadRequest - тело запроса не удалось разобрать
	ErrBadRequest = errors.New("invalid request")
	// ErrNoSession - в запросе нет cookie сессии
	ErrNoSession = errors.New("no console session")
)
