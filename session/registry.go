package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"s3console/logger"
)

// Registry хранит живые сессии консоли по идентификатору из cookie и
// периодически удаляет сессии с истекшими учетными данными.
type Registry struct {
	cfg      *Config
	factory  ClientFactory
	sessions *gocache.Cache
	metrics  *Metrics
	log      *logger.Logger
	now      func() time.Time

	// Управление жизненным циклом
	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRegistry создает реестр сессий. factory может быть nil.
func NewRegistry(cfg *Config, factory ClientFactory) (*Registry, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	r := &Registry{
		cfg:      cfg,
		factory:  factory,
		sessions: gocache.New(cfg.SessionTTL, cfg.ExpiryCheckInterval),
		metrics:  defaultMetrics(),
		log:      logger.Component("registry"),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	// Сессии, вытесненные по TTL, закрываются, чтобы остановить их проверки
	r.sessions.OnEvicted(func(id string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Close()
		}
		r.metrics.ActiveSessions.Set(float64(r.sessions.ItemCount()))
	})
	return r, nil
}

// NewSession создает сессию с новым идентификатором. Сессия попадает в реестр
// только после Add, то есть после успешного входа.
func (r *Registry) NewSession() (*Session, error) {
	return New(uuid.NewString(), r.cfg, r.factory)
}

// Add сохраняет сессию. Время жизни - SessionTTL, но не дольше срока учетных данных.
func (r *Registry) Add(s *Session) {
	ttl := r.cfg.SessionTTL
	if exp := s.Expiration(); !exp.IsZero() {
		if untilExpiry := exp.Sub(r.now()); untilExpiry < ttl {
			ttl = untilExpiry
		}
	}
	if ttl <= 0 {
		ttl = time.Millisecond
	}

	r.sessions.Set(s.ID(), s, ttl)
	r.metrics.ActiveSessions.Set(float64(r.sessions.ItemCount()))
	r.log.Debug("Registered session %s (ttl: %v)", s.ID(), ttl)
}

// Get возвращает сессию по идентификатору
func (r *Registry) Get(id string) (*Session, error) {
	v, found := r.sessions.Get(id)
	if !found {
		return nil, ErrSessionNotFound
	}
	return v.(*Session), nil
}

// Remove удаляет и закрывает сессию (выход пользователя)
func (r *Registry) Remove(id string) {
	// Delete вызывает OnEvicted, который закрывает сессию
	r.sessions.Delete(id)
	r.log.Debug("Removed session %s", id)
}

// Count возвращает количество сессий в реестре
func (r *Registry) Count() int {
	return r.sessions.ItemCount()
}

// Start запускает фоновую проверку сроков действия
func (r *Registry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("session registry is already running")
	}

	r.wg.Add(1)
	go r.runExpirySweep()

	r.running = true
	r.log.Info("Session registry started (expiry check every %v)", r.cfg.ExpiryCheckInterval)
	return nil
}

// Stop останавливает фоновую проверку
func (r *Registry) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}

	close(r.stopChan)
	r.wg.Wait()

	// Новый канал для возможного повторного запуска
	r.stopChan = make(chan struct{})
	r.running = false
	r.log.Info("Session registry stopped")
	return nil
}

// IsRunning возвращает true, если фоновая проверка запущена
func (r *Registry) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *Registry) runExpirySweep() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.ExpiryCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep(r.now())
		case <-r.stopChan:
			return
		}
	}
}

// sweep удаляет сессии, учетные данные которых истекли к моменту now
func (r *Registry) sweep(now time.Time) int {
	expired := 0
	for id, item := range r.sessions.Items() {
		s, ok := item.Object.(*Session)
		if !ok {
			continue
		}
		if s.Expire(now) {
			r.sessions.Delete(id)
			r.metrics.ExpiredTotal.Inc()
			expired++
		}
	}
	if expired > 0 {
		r.log.Info("Dropped %d expired sessions", expired)
	}
	return expired
}
