package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"s3console/logger"
)

// State представляет состояние сессии консоли
type State string

const (
	StateAnonymous     State = "ANONYMOUS"     // Учетные данные не установлены или не прошли проверку
	StateVerifying     State = "VERIFYING"     // Учетные данные сохранены, проверка на бэкенде еще идет
	StateAuthenticated State = "AUTHENTICATED" // Остальная часть приложения видит пользователя
	StateExpired       State = "EXPIRED"       // Срок действия временных учетных данных истек
)

// String возвращает строковое представление состояния
func (s State) String() string {
	return string(s)
}

// ToFloat64 возвращает числовое представление состояния для метрик Prometheus
func (s State) ToFloat64() float64 {
	switch s {
	case StateAuthenticated:
		return 1.0
	case StateVerifying:
		return 0.5
	default:
		return 0.0
	}
}

// STSCredentials - временные учетные данные, которые устанавливаются в сессию
type STSCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      string // RFC 3339, пустая строка - без срока действия
}

// String не раскрывает секрет и токен
func (c STSCredentials) String() string {
	return fmt.Sprintf("STSCredentials{AccessKeyID: %s, Expiration: %q}", logger.Mask(c.AccessKeyID), c.Expiration)
}

// parseExpiration разбирает срок действия. Нулевое время означает "без срока".
func parseExpiration(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidExpiration, err)
	}
	return t, nil
}

// BucketLister - часть S3 API, которой достаточно для проверки учетных данных.
// *s3.Client удовлетворяет этому интерфейсу.
type BucketLister interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

// ClientFactory создает S3 клиент для учетных данных сессии
type ClientFactory func(ctx context.Context, cfg *Config, creds STSCredentials) (BucketLister, error)

// Пользовательские ошибки
var (
	// ErrMissingCredentials - не хватает access key, secret key или session token.
	ErrMissingCredentials = errors.New("missing sts credentials")
	// ErrInvalidExpiration - срок действия не в формате RFC 3339.
	ErrInvalidExpiration = errors.New("invalid credentials expiration")
	// ErrCredentialsExpired - учетные данные уже просрочены.
	ErrCredentialsExpired = errors.New("credentials have expired")
	// ErrNotInstalled - в сессии нет проверенных учетных данных.
	ErrNotInstalled = errors.New("session has no authenticated credentials")
	// ErrSessionNotFound - сессия с таким идентификатором не найдена.
	ErrSessionNotFound = errors.New("session not found")
)
