package redirect

import "strings"

// DefaultBasePath - путь, под которым консоль публикуется на сервере RustFS
const DefaultBasePath = "/rustfs/console"

// LoginPath - путь страницы входа относительно корня приложения
const LoginPath = "/auth/login"

// BuildRoute строит публичный маршрут из пути приложения и базового пути консоли.
// path должен быть уже проверен через Guard или быть константой приложения.
func BuildRoute(basePath, path string) string {
	normalized := strings.TrimPrefix(path, "/")
	base := strings.TrimRight(basePath, "/")
	if base == "" {
		return "/" + normalized
	}
	if normalized == "" {
		return base
	}
	return base + "/" + normalized
}

// LoginRoute возвращает публичный маршрут страницы входа
func LoginRoute(basePath string) string {
	return BuildRoute(basePath, LoginPath)
}
