package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"s3console/callback"
	"s3console/logger"
)

// Gateway - HTTP-сервер консоли: список провайдеров, начало входа,
// завершение callback, информация о сессии и выход.
type Gateway struct {
	config         Config
	callbackConfig callback.Config
	providers      ProviderSource
	sessions       SessionStore
	router         chi.Router
	responseWriter *ResponseWriter
	metrics        *Metrics
	log            *logger.Logger

	mu     sync.Mutex
	server *http.Server
}

// New создает новый экземпляр сервера консоли. callbackConfig может быть nil.
func New(config Config, callbackConfig *callback.Config, providers ProviderSource, sessions SessionStore) (*Gateway, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid console config: %w", err)
	}
	if callbackConfig == nil {
		callbackConfig = callback.DefaultConfig()
	}
	if err := callbackConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid callback config: %w", err)
	}
	if providers == nil || sessions == nil {
		return nil, errors.New("console requires a provider source and a session store")
	}

	gw := &Gateway{
		config:         config,
		callbackConfig: *callbackConfig,
		providers:      providers,
		sessions:       sessions,
		responseWriter: NewResponseWriter(),
		metrics:        defaultMetrics(),
		log:            logger.Component("console"),
	}
	gw.router = gw.routes()
	return gw, nil
}

func (gw *Gateway) routes() chi.Router {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		gw.responseWriter.WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		gw.responseWriter.WriteJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/oidc/providers", gw.handleProviders)
		r.Get("/oidc/login/{providerID}", gw.handleLogin)
		r.Post("/oidc/callback", gw.handleCallback)
		r.Post("/logout", gw.handleLogout)
	})
	r.Get("/api/session", gw.handleSession)

	return r
}

// ServeHTTP реализует интерфейс http.Handler
func (gw *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	gw.log.Info("Incoming request: %s %s", r.Method, r.URL.Path)

	// Контекст маршрута создаем сами, чтобы после обработки прочитать шаблон пути
	rctx := chi.NewRouteContext()
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	gw.router.ServeHTTP(rec, r)

	route := rctx.RoutePattern()
	if route == "" {
		route = "unmatched"
	}
	latency := time.Since(start)
	gw.log.Info("Response sent: %d, %.3f ms", rec.status, float64(latency.Microseconds())/1000.0)

	gw.metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	gw.metrics.RequestLatency.WithLabelValues(r.Method, route).Observe(latency.Seconds())
}

// Start запускает сервер и блокируется до остановки
func (gw *Gateway) Start() error {
	gw.mu.Lock()
	gw.server = &http.Server{
		Addr:         gw.config.ListenAddress,
		Handler:      gw,
		ReadTimeout:  gw.config.ReadTimeout,
		WriteTimeout: gw.config.WriteTimeout,
	}
	server := gw.server
	gw.mu.Unlock()

	gw.log.Info("Starting console server on %s (base path %q)", gw.config.ListenAddress, gw.config.BasePath)

	var err error
	if gw.config.TLSCertFile != "" && gw.config.TLSKeyFile != "" {
		gw.log.Info("Starting HTTPS server with TLS")
		err = server.ListenAndServeTLS(gw.config.TLSCertFile, gw.config.TLSKeyFile)
	} else {
		gw.log.Info("Starting HTTP server")
		err = server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop останавливает сервер
func (gw *Gateway) Stop(ctx context.Context) error {
	gw.mu.Lock()
	server := gw.server
	gw.mu.Unlock()

	if server == nil {
		return nil
	}

	gw.log.Info("Stopping console server...")
	return server.Shutdown(ctx)
}

// statusRecorder запоминает код ответа для метрик
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
