package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel представляет уровень логирования
type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel парсит строку в LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO // по умолчанию INFO
	}
}

// IsValidLevel сообщает, является ли строка одним из поддерживаемых уровней
func IsValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// Logger представляет логгер с уровнями.
// Логгеры, полученные через Named, разделяют уровень и вывод с родителем,
// поэтому SetGlobalLevel действует и на компонентные логгеры.
type Logger struct {
	level     *atomic.Int32
	logger    *log.Logger
	component string
}

// New создает новый логгер с указанным уровнем
func New(level LogLevel) *Logger {
	return newWithWriter(level, os.Stdout)
}

func newWithWriter(level LogLevel, w io.Writer) *Logger {
	l := &Logger{
		level:  new(atomic.Int32),
		logger: log.New(w, "", log.LstdFlags),
	}
	l.level.Store(int32(level))
	return l
}

// Named возвращает логгер компонента: каждая строка получает префикс [component]
func (l *Logger) Named(component string) *Logger {
	name := component
	if l.component != "" {
		name = l.component + "." + component
	}
	return &Logger{
		level:     l.level,
		logger:    l.logger,
		component: name,
	}
}

// SetLevel устанавливает уровень логирования
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// GetLevel возвращает текущий уровень логирования
func (l *Logger) GetLevel() LogLevel {
	return LogLevel(l.level.Load())
}

// SetOutput перенаправляет вывод логгера (используется в тестах и CLI)
func (l *Logger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// logf выводит сообщение с указанным уровнем
func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	if level < l.GetLevel() {
		return
	}
	prefix := fmt.Sprintf("[%s] ", level.String())
	if l.component != "" {
		prefix += "[" + l.component + "] "
	}
	l.logger.Printf(prefix+format, args...)
}

// Debug выводит отладочное сообщение
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(DEBUG, format, args...)
}

// Info выводит информационное сообщение
func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(INFO, format, args...)
}

// Warn выводит предупреждение
func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(WARN, format, args...)
}

// Error выводит сообщение об ошибке
func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(ERROR, format, args...)
}

// Mask скрывает секрет для вывода в лог: остаются только первые 4 символа.
// Короткие значения скрываются полностью.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

// Глобальный логгер
var globalLogger = New(INFO)

// SetGlobalLevel устанавливает уровень для глобального логгера
func SetGlobalLevel(level LogLevel) {
	globalLogger.SetLevel(level)
}

// GetGlobalLevel возвращает уровень глобального логгера
func GetGlobalLevel() LogLevel {
	return globalLogger.GetLevel()
}

// SetGlobalOutput перенаправляет вывод глобального логгера и всех компонентных логгеров
func SetGlobalOutput(w io.Writer) {
	globalLogger.SetOutput(w)
}

// Component возвращает именованный логгер поверх глобального
func Component(name string) *Logger {
	return globalLogger.Named(name)
}

// Глобальные функции для удобства
func Debug(format string, args ...interface{}) {
	globalLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	globalLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	globalLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	globalLogger.Error(format, args...)
}
