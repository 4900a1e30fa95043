package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"s3console/callback"
	"s3console/logger"
	"s3console/redirect"
	"s3console/session"
)

// handleProviders отдает список провайдеров. Недоступный сервер дает пустой список.
func (gw *Gateway) handleProviders(w http.ResponseWriter, r *http.Request) {
	gw.responseWriter.WriteJSON(w, http.StatusOK, gw.providers.FetchProviders(r.Context()))
}

// handleLogin перенаправляет браузер на страницу авторизации провайдера
func (gw *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	// Небезопасный redirect просто не передается провайдеру
	raw := r.URL.Query().Get("redirect")
	redirectAfter, rule := redirect.Check(raw, "")
	if raw != "" && rule != "" {
		gw.log.Debug("Dropping redirect for provider %q (rule: %s)", providerID, rule)
	}

	authorizeURL, err := gw.providers.AuthorizeURL(providerID, redirectAfter)
	if err != nil {
		gw.responseWriter.WriteError(w, err)
		return
	}
	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

type callbackRequest struct {
	Fragment string `json:"fragment"`
}

// readFragment извлекает фрагмент из JSON-тела или формы
func readFragment(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req callbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		return req.Fragment, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return r.PostFormValue("fragment"), nil
}

// handleCallback завершает вход: один оркестратор на запрос, новая сессия
// попадает в реестр только при успешном переходе.
func (gw *Gateway) handleCallback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCallbackBody)
	fragment, err := readFragment(r)
	if err != nil {
		gw.responseWriter.WriteError(w, err)
		return
	}

	s, err := gw.sessions.NewSession()
	if err != nil {
		gw.responseWriter.WriteError(w, err)
		return
	}

	sink := &redirectSink{}
	orch, err := callback.New(&gw.callbackConfig, s, s, sink, sink)
	if err != nil {
		s.Close()
		gw.responseWriter.WriteError(w, err)
		return
	}

	outcome, err := orch.Handle(r.Context(), fragment)
	if err != nil {
		s.Close()
		gw.responseWriter.WriteError(w, err)
		return
	}

	switch outcome.State {
	case callback.StateNavigated:
		gw.sessions.Add(s)
		http.SetCookie(w, gw.sessionCookie(s))
	case callback.StateAbandoned:
		// Клиент ушел, отвечать некому
		s.Close()
		gw.log.Debug("Callback abandoned: %v", outcome.Err)
		return
	default:
		s.Close()
	}

	if sink.kind != "" {
		http.SetCookie(w, flashCookie(sink.kind, sink.message))
	}
	http.Redirect(w, r, redirect.BuildRoute(gw.config.BasePath, sink.path), http.StatusSeeOther)
}

func (gw *Gateway) sessionCookie(s *session.Session) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    s.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   gw.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if exp := s.Expiration(); !exp.IsZero() {
		c.Expires = exp
	}
	return c
}

// lookupSession находит сессию по cookie
func (gw *Gateway) lookupSession(r *http.Request) (*session.Session, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	return gw.sessions.Get(cookie.Value)
}

// handleSession отдает состояние текущей сессии
func (gw *Gateway) handleSession(w http.ResponseWriter, r *http.Request) {
	s, err := gw.lookupSession(r)
	if err != nil {
		gw.responseWriter.WriteError(w, err)
		return
	}

	view := SessionView{
		Authenticated: s.IsAuthenticated(),
		State:         s.State().String(),
		AccessKey:     logger.Mask(s.AccessKey()),
	}
	if exp := s.Expiration(); !exp.IsZero() {
		view.Expiration = exp.UTC().Format(time.RFC3339)
	}
	gw.responseWriter.WriteJSON(w, http.StatusOK, view)
}

// handleLogout удаляет сессию и уводит на страницу входа
func (gw *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	s, err := gw.lookupSession(r)
	switch {
	case err == nil:
		gw.sessions.Remove(s.ID())
		gw.log.Info("Session %s logged out", s.ID())
	case !errors.Is(err, ErrNoSession):
		gw.log.Debug("Logout for unknown session: %v", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   gw.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, redirect.BuildRoute(gw.config.BasePath, gw.callbackConfig.LoginRoute), http.StatusSeeOther)
}
