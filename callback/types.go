package callback

import (
	"context"
	"errors"

	"s3console/session"
)

// Installer - внешнее хранилище сессии, принимающее временные учетные данные.
// Причина отказа для оркестратора непрозрачна.
type Installer interface {
	Install(ctx context.Context, creds session.STSCredentials) error
}

// AuthState - внешний сигнал "глобальная сессия аутентифицирована".
// Оркестратор только читает его; меняет его исключительно хранилище сессии.
type AuthState interface {
	IsAuthenticated() bool
	// LastError возвращает причину, по которой хранилище отвергло установленные
	// учетные данные уже после Install. nil, пока решение не принято.
	LastError() error
	// Watch возвращает канал уведомлений об изменениях и функцию отписки
	Watch() (updates <-chan struct{}, stop func())
}

// NoticeKind - тип сообщения пользователю
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notifier показывает пользователю одно сообщение на завершение входа
type Notifier interface {
	Notify(kind NoticeKind, message string)
}

// Navigator выполняет переход. path всегда либо прошел redirect.Guard,
// либо является маршрутом входа из конфигурации.
type Navigator interface {
	NavigateTo(path string)
}

// Сообщения пользователю
const (
	MessageSuccess = "SSO Login Success"
	MessageFailed  = "SSO Login Failed"
)

// Outcome - итог обработки одного callback
type Outcome struct {
	State  State  // конечное состояние
	Target string // куда выполнен переход; пусто для StateAbandoned
	Err    error  // причина неудачи; nil при успехе
}

// Completed возвращает true, если вход завершен и выполнен переход на целевой путь
func (o Outcome) Completed() bool {
	return o.State == StateNavigated
}

var (
	// ErrMalformedCallback - во фрагменте нет обязательных ключей.
	ErrMalformedCallback = errors.New("malformed sso callback")
	// ErrInstallRejected - хранилище сессии отвергло учетные данные.
	ErrInstallRejected = errors.New("sso credentials rejected")
	// ErrAuthWaitTimeout - сигнал аутентификации не стал true за отведенное время.
	ErrAuthWaitTimeout = errors.New("timed out waiting for authenticated session")
	// ErrAlreadyHandled - этот экземпляр уже обрабатывал callback.
	ErrAlreadyHandled = errors.New("sso callback already handled")
)
