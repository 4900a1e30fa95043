package oidc

import (
	"net/url"
	"strconv"
	"strings"

	"s3console/redirect"
)

// RedirectFallback - путь, который получает Credentials.Redirect, если
// переданный провайдером redirect отсутствует или небезопасен
const RedirectFallback = "/"

// ParseCallback разбирает фрагмент URL вида
// #accessKey=...&secretKey=...&sessionToken=...[&expiration=...][&redirect=/path].
//
// Разбор снисходительный, как у URLSearchParams в браузере: ';' - обычный
// символ, некорректная %-последовательность остается как есть. Возвращает false,
// только если фрагмент пуст или в нем нет хотя бы одного из обязательных ключей.
// Вызывающий код обязан трактовать false одинаково, без уточнения причины.
func ParseCallback(fragment string) (Credentials, bool) {
	cleaned := strings.TrimPrefix(fragment, "#")
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return Credentials{}, false
	}

	params := parseFragment(cleaned)

	creds := Credentials{
		AccessKey:    last(params, keyAccessKey),
		SecretKey:    last(params, keySecretKey),
		SessionToken: last(params, keySessionToken),
		Expiration:   last(params, keyExpiration),
	}
	if creds.AccessKey == "" || creds.SecretKey == "" || creds.SessionToken == "" {
		return Credentials{}, false
	}

	creds.Redirect = redirect.Guard(last(params, keyRedirect), RedirectFallback)
	return creds, true
}

// parseFragment делит строку только по '&' и ни на одной паре не падает
func parseFragment(raw string) url.Values {
	values := make(url.Values)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = unescape(key)
		values[key] = append(values[key], unescape(value))
	}
	return values
}

// unescape декодирует '+' и %XX; некорректные последовательности остаются текстом
func unescape(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return strings.ToValidUTF8(decoded, "\uFFFD")
	}

	s = strings.ReplaceAll(s, "+", " ")
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return strings.ToValidUTF8(b.String(), "\uFFFD")
}

// last возвращает последнее значение ключа, как URLSearchParams в браузере при повторной записи
func last(values url.Values, key string) string {
	vs := values[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}
