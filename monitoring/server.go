package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"s3console/logger"
)

const (
	healthLivePath  = "/health/live"
	healthReadyPath = "/health/ready"
)

// ReadinessFunc сообщает, готов ли сервис. nil - готов.
type ReadinessFunc func() error

var errShuttingDown = errors.New("shutting down")

// Server представляет HTTP сервер для экспорта метрик Prometheus
type Server struct {
	config       *Config
	readiness    ReadinessFunc
	metrics      *Metrics
	log          *logger.Logger
	server       *http.Server
	shuttingDown atomic.Bool

	// Канал для остановки периодической проверки готовности
	stopChecks chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewServer создает новый сервер метрик. readiness может быть nil.
func NewServer(config *Config, readiness ReadinessFunc) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	return &Server{
		config:     config,
		readiness:  readiness,
		metrics:    defaultMetrics(),
		log:        logger.Component("monitoring"),
		stopChecks: make(chan struct{}),
	}
}

// Handler возвращает мультиплексор с метриками и health check эндпоинтами
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.config.MetricsPath, promhttp.Handler())
	mux.HandleFunc(healthLivePath, s.liveHealthHandler)
	mux.HandleFunc(healthReadyPath, s.readyHealthHandler)
	return mux
}

// Start запускает HTTP сервер для метрик
func (s *Server) Start() error {
	if !s.config.Enabled {
		s.log.Info("Monitoring is disabled, skipping metrics server start")
		return nil
	}

	s.log.Info("Starting metrics server on %s", s.config.ListenAddress)

	s.server = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	if s.config.EnableReadinessChecks {
		s.wg.Add(1)
		go s.runReadinessChecks()
	}

	// Запускаем сервер в отдельной горутине
	go func() {
		s.log.Info("Metrics server listening on %s%s", s.config.ListenAddress, s.config.MetricsPath)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Metrics server failed: %v", err)
		}
	}()

	return nil
}

// SetShuttingDown переводит /health/ready в 503 до остановки сервера
func (s *Server) SetShuttingDown() {
	s.shuttingDown.Store(true)
	s.metrics.Ready.Set(0)
}

// Stop останавливает HTTP сервер метрик
func (s *Server) Stop(ctx context.Context) error {
	if !s.config.Enabled || s.server == nil {
		return nil
	}

	s.log.Info("Stopping metrics server...")
	s.SetShuttingDown()

	s.stopOnce.Do(func() { close(s.stopChecks) })
	s.wg.Wait()

	return s.server.Shutdown(ctx)
}

// runReadinessChecks обновляет s3console_ready, даже если /health/ready никто не опрашивает
func (s *Server) runReadinessChecks() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ReadinessInterval)
	defer ticker.Stop()

	s.checkReadiness()
	for {
		select {
		case <-ticker.C:
			if err := s.checkReadiness(); err != nil && !errors.Is(err, errShuttingDown) {
				s.log.Warn("Readiness check failed: %v", err)
			}
		case <-s.stopChecks:
			return
		}
	}
}

// checkReadiness вызывает ReadinessFunc и обновляет метрики
func (s *Server) checkReadiness() error {
	if s.shuttingDown.Load() {
		s.metrics.Ready.Set(0)
		return errShuttingDown
	}

	if s.readiness != nil {
		if err := s.readiness(); err != nil {
			s.metrics.Ready.Set(0)
			s.metrics.ReadinessChecks.WithLabelValues("failed").Inc()
			return err
		}
	}

	s.metrics.Ready.Set(1)
	s.metrics.ReadinessChecks.WithLabelValues("ok").Inc()
	return nil
}

// liveHealthHandler обрабатывает запросы /health/live
func (s *Server) liveHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}

// readyHealthHandler обрабатывает запросы /health/ready
func (s *Server) readyHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := s.checkReadiness(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":%q}`, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}
