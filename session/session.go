package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"s3console/logger"
)

// Session хранит временные учетные данные одного пользователя консоли и
// публикует сигнал аутентификации. Install только сохраняет локальное
// состояние; сигнал становится true позже, когда проверка на бэкенде завершится.
type Session struct {
	id        string
	cfg       *Config
	newClient ClientFactory
	metrics   *Metrics
	log       *logger.Logger
	signal    *Signal

	// Внутреннее состояние, защищенное мьютексом
	mu          sync.RWMutex
	state       State
	accessKey   string
	expiration  time.Time // нулевое значение - без срока
	client      BucketLister
	lastError   error
	installedAt time.Time
	generation  uint64 // номер установки; устаревшие проверки игнорируются
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New создает пустую сессию. factory может быть nil, тогда используется NewS3Client.
func New(id string, cfg *Config, factory ClientFactory) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if factory == nil {
		factory = NewS3Client
	}

	return &Session{
		id:        id,
		cfg:       cfg,
		newClient: factory,
		metrics:   defaultMetrics(),
		log:       logger.Component("session"),
		signal:    NewSignal(),
		state:     StateAnonymous,
	}, nil
}

// NewS3Client создает S3 клиент, подписывающий запросы временными учетными данными
func NewS3Client(ctx context.Context, cfg *Config, creds STSCredentials) (BucketLister, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.SecretAccessKey,
			creds.SessionToken,
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// ID возвращает идентификатор сессии
func (s *Session) ID() string {
	return s.id
}

// Install сохраняет учетные данные и запускает асинхронную проверку.
// Ошибка означает, что учетные данные отвергнуты и сессия не изменилась.
func (s *Session) Install(ctx context.Context, creds STSCredentials) error {
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" || creds.SessionToken == "" {
		s.metrics.InstallsTotal.WithLabelValues("rejected").Inc()
		return ErrMissingCredentials
	}

	expiration, err := parseExpiration(creds.Expiration)
	if err != nil {
		s.metrics.InstallsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	if !expiration.IsZero() && !time.Now().Before(expiration) {
		s.metrics.InstallsTotal.WithLabelValues("rejected").Inc()
		return ErrCredentialsExpired
	}

	client, err := s.newClient(ctx, s.cfg, creds)
	if err != nil {
		s.metrics.InstallsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel() // предыдущая проверка больше не нужна
	}
	verifyCtx, cancel := context.WithCancel(context.Background())
	s.generation++
	gen := s.generation
	s.cancel = cancel
	s.accessKey = creds.AccessKeyID
	s.expiration = expiration
	s.client = client
	s.lastError = nil
	s.installedAt = time.Now()
	s.setState(StateVerifying)
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.InstallsTotal.WithLabelValues("success").Inc()
	s.log.Info("Installed credentials %s for session %s (expiration: %q)",
		logger.Mask(creds.AccessKeyID), s.id, creds.Expiration)

	go s.verify(verifyCtx, gen, client)
	return nil
}

// verify проверяет учетные данные на бэкенде и публикует результат
func (s *Session) verify(ctx context.Context, gen uint64, client BucketLister) {
	defer s.wg.Done()

	var err error
	result := "skipped"
	if s.cfg.Verify {
		start := time.Now()
		vctx, cancel := context.WithTimeout(ctx, s.cfg.VerifyTimeout)
		_, err = client.ListBuckets(vctx, &s3.ListBucketsInput{})
		cancel()
		s.metrics.VerifyLatency.Observe(time.Since(start).Seconds())
		result = classifyVerifyError(err)
	}
	s.metrics.VerificationsTotal.WithLabelValues(result).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Сессию переустановили или закрыли, пока шла проверка
	if gen != s.generation || s.state != StateVerifying {
		s.log.Debug("Discarding stale verification for session %s", s.id)
		return
	}

	if err != nil {
		s.lastError = err
		s.client = nil
		s.setState(StateAnonymous)
		// Значение сигнала не меняется, но ожидающие должны увидеть LastError
		s.signal.Notify()
		s.log.Warn("Verification failed for session %s (%s): %v", s.id, result, err)
		return
	}

	s.setState(StateAuthenticated)
	s.log.Info("Session %s authenticated as %s", s.id, logger.Mask(s.accessKey))
}

// classifyVerifyError возвращает метку результата проверки
func classifyVerifyError(err error) string {
	if err == nil {
		return "success"
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "InvalidToken", "ExpiredToken", "SignatureDoesNotMatch":
			return "denied"
		}
	}

	// Любой тип в цепочке, который умеет сообщить HTTP-код
	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		switch httpErr.HTTPStatusCode() {
		case http.StatusForbidden, http.StatusUnauthorized:
			return "denied"
		}
	}

	return "error"
}

// setState меняет состояние и синхронизирует сигнал. Вызывается под s.mu.
func (s *Session) setState(state State) {
	if s.state != state {
		s.log.Debug("Session %s state changed: %s -> %s", s.id, s.state, state)
	}
	s.state = state
	s.signal.Set(state == StateAuthenticated)
}

// Expire переводит сессию в EXPIRED, если срок учетных данных истек к моменту now.
// Возвращает true, если сессия просрочена.
func (s *Session) Expire(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateExpired {
		return true
	}
	if s.expiration.IsZero() || now.Before(s.expiration) {
		return false
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.client = nil
	s.setState(StateExpired)
	s.log.Info("Session %s expired at %s", s.id, s.expiration.Format(time.RFC3339))
	return true
}

// Close сбрасывает учетные данные и останавливает незавершенную проверку
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.client = nil
	if s.state != StateExpired {
		s.setState(StateAnonymous)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// IsAuthenticated возвращает текущее значение сигнала аутентификации
func (s *Session) IsAuthenticated() bool {
	return s.signal.Value()
}

// Watch подписывается на изменения сигнала аутентификации
func (s *Session) Watch() (<-chan struct{}, func()) {
	return s.signal.Watch()
}

// State возвращает текущее состояние (потокобезопасно)
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// AccessKey возвращает access key установленных учетных данных
func (s *Session) AccessKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessKey
}

// Expiration возвращает срок действия; нулевое время - без срока
func (s *Session) Expiration() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiration
}

// LastError возвращает ошибку, с которой бэкенд отверг текущие учетные данные.
// nil, пока проверка идет или если она прошла. Install сбрасывает значение.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Client возвращает S3 клиент аутентифицированной сессии
func (s *Session) Client() (BucketLister, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated || s.client == nil {
		return nil, ErrNotInstalled
	}
	return s.client, nil
}
