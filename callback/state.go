package callback

import "fmt"

// State - состояние оркестратора
type State string

const (
	StateIdle                State = "idle"
	StateInstalling          State = "installing"
	StateInstalled           State = "installed"
	StateNavigated           State = "navigated"             // конечное: вход завершен
	StateFailed              State = "failed"
	StateNavigatedToFallback State = "navigated_to_fallback" // конечное: переход на страницу входа
	StateAbandoned           State = "abandoned"             // конечное: контекст отменен, эффектов нет
)

// String возвращает строковое представление состояния
func (s State) String() string {
	return string(s)
}

// Terminal сообщает, является ли состояние конечным
func (s State) Terminal() bool {
	switch s {
	case StateNavigated, StateNavigatedToFallback, StateAbandoned:
		return true
	default:
		return false
	}
}

// transitions - допустимые переходы конечного автомата
var transitions = map[State][]State{
	StateIdle:       {StateInstalling},
	StateInstalling: {StateInstalled, StateFailed, StateAbandoned},
	StateInstalled:  {StateNavigated, StateFailed, StateAbandoned},
	StateFailed:     {StateNavigatedToFallback},
}

// canTransition проверяет переход по таблице
func canTransition(from, to State) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transitionError - попытка недопустимого перехода (ошибка программирования)
type transitionError struct {
	from, to State
}

func (e *transitionError) Error() string {
	return fmt.Sprintf("invalid callback state transition: %s -> %s", e.from, e.to)
}
