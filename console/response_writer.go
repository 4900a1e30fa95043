package console

import (
	"encoding/json"
	"errors"
	"net/http"

	"s3console/logger"
	"s3console/oidc"
	"s3console/session"
)

// ResponseWriter отвечает за формирование JSON-ответов консоли
type ResponseWriter struct {
	log *logger.Logger
}

// NewResponseWriter создает новый экземпляр writer'а ответов
func NewResponseWriter() *ResponseWriter {
	return &ResponseWriter{log: logger.Component("console")}
}

// WriteJSON записывает значение как JSON с указанным статусом
func (rw *ResponseWriter) WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		rw.log.Debug("Error writing response body: %v", err)
		return err
	}
	return nil
}

// WriteError записывает ошибку в виде {"error": "..."}
func (rw *ResponseWriter) WriteError(w http.ResponseWriter, err error) error {
	status := rw.mapErrorToStatus(err)
	rw.log.Debug("Writing error response: status=%d, err=%v", status, err)
	return rw.WriteJSON(w, status, ErrorResponse{Error: err.Error()})
}

// mapErrorToStatus сопоставляет ошибки с HTTP-статусами
func (rw *ResponseWriter) mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoSession), errors.Is(err, session.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBadRequest), errors.Is(err, oidc.ErrEmptyProviderID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
