// Package redirect проверяет пути для перенаправления, пришедшие извне,
// и строит маршруты консоли.
//
// Результат Guard можно напрямую отдавать в заголовок Location или в любую
// другую точку полной навигации браузера: все правила консервативны и
// отклоняют значение при любой двусмысленности.
package redirect

import (
	"regexp"
	"strings"
)

// Rule - одно правило отклонения. Rejects возвращает true, если кандидат
// должен быть заменен на fallback. Кандидат уже обрезан по пробелам.
type Rule struct {
	Name    string
	Rejects func(candidate string) bool
}

var (
	schemePrefix    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)
	leadingSlashes  = regexp.MustCompile(`^[\\/]{2,}`)
	scriptURIPrefix = regexp.MustCompile(`(?i)^\s*(javascript|data)\s*:`)
)

// DefaultRules - упорядоченный список правил, применяемый функцией Guard.
// Новые правила добавляются сюда, оркестратор их не знает.
var DefaultRules = []Rule{
	{
		// Пустая строка
		Name:    "empty",
		Rejects: func(c string) bool { return c == "" },
	},
	{
		// Браузер выбрасывает \t и \n при разборе URL: /\t/evil.com становится //evil.com
		Name:    "control-char",
		Rejects: hasControlChar,
	},
	{
		// Абсолютный URL со схемой: https://evil.com, mailto:x
		Name:    "scheme",
		Rejects: schemePrefix.MatchString,
	},
	{
		// //evil.com, \\evil.com, \/evil.com
		Name:    "protocol-relative",
		Rejects: leadingSlashes.MatchString,
	},
	{
		// \evil.com браузеры превращают в //evil.com
		Name:    "leading-backslash",
		Rejects: func(c string) bool { return strings.HasPrefix(c, `\`) },
	},
	{
		Name:    "script-uri",
		Rejects: scriptURIPrefix.MatchString,
	},
	{
		Name:    "not-rooted",
		Rejects: func(c string) bool { return !strings.HasPrefix(c, "/") },
	},
	{
		// /../evil.com, /a/../../etc/passwd
		Name:    "traversal",
		Rejects: hasTraversalSegment,
	},
}

func hasControlChar(c string) bool {
	return strings.IndexFunc(c, func(r rune) bool { return r < 0x20 || r == 0x7f }) >= 0
}

func hasTraversalSegment(c string) bool {
	for _, segment := range strings.Split(c, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

// Pipeline - конвейер правил проверки пути перенаправления.
type Pipeline struct {
	rules []Rule
}

// NewPipeline создает Pipeline с заданным набором правил. Без правил используется DefaultRules.
func NewPipeline(rules ...Rule) *Pipeline {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Pipeline{rules: copied}
}

// Check возвращает безопасный путь и имя сработавшего правила.
// Если путь принят, rule пустой.
func (g *Pipeline) Check(candidate, fallback string) (safe string, rule string) {
	trimmed := strings.TrimSpace(candidate)
	for _, r := range g.rules {
		if r.Rejects(trimmed) {
			return fallback, r.Name
		}
	}
	return trimmed, ""
}

// Safe возвращает candidate (без пробелов по краям), если он прошел все правила, иначе fallback.
func (g *Pipeline) Safe(candidate, fallback string) string {
	safe, _ := g.Check(candidate, fallback)
	return safe
}

var defaultPipeline = NewPipeline()

// Guard - функция без побочных эффектов и ошибок: всегда возвращает либо
// проверенный относительный путь, либо fallback.
func Guard(candidate, fallback string) string {
	return defaultPipeline.Safe(candidate, fallback)
}

// Check - как Guard, но дополнительно сообщает имя правила, отклонившего путь.
func Check(candidate, fallback string) (safe string, rule string) {
	return defaultPipeline.Check(candidate, fallback)
}
