package console

import (
	"net/http"
	"net/url"
	"strings"

	"s3console/callback"
)

// flashMaxAge - сколько живет cookie с сообщением (секунды)
const flashMaxAge = 60

// redirectSink - Notifier и Navigator одного запроса callback. Оркестратор
// вызывает каждый метод не более одного раза; ответ пишет обработчик.
type redirectSink struct {
	kind    callback.NoticeKind
	message string
	path    string
}

func (s *redirectSink) Notify(kind callback.NoticeKind, message string) {
	s.kind = kind
	s.message = message
}

func (s *redirectSink) NavigateTo(path string) {
	s.path = path
}

// flashCookie кодирует сообщение как "kind:message"
func flashCookie(kind callback.NoticeKind, message string) *http.Cookie {
	return &http.Cookie{
		Name:     FlashCookie,
		Value:    url.QueryEscape(string(kind) + ":" + message),
		Path:     "/",
		MaxAge:   flashMaxAge,
		SameSite: http.SameSiteLaxMode,
	}
}

// ParseFlash разбирает значение cookie console_flash
func ParseFlash(value string) (callback.NoticeKind, string, bool) {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return "", "", false
	}
	kind, message, found := strings.Cut(decoded, ":")
	if !found {
		return "", "", false
	}
	switch callback.NoticeKind(kind) {
	case callback.NoticeSuccess, callback.NoticeError:
		return callback.NoticeKind(kind), message, true
	}
	return "", "", false
}
