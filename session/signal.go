package session

import "sync"

// Signal - наблюдаемая булева ячейка "пользователь аутентифицирован".
// Подписчики получают уведомление только при изменении значения; несколько
// изменений подряд могут слиться в одно уведомление, поэтому после
// уведомления значение нужно перечитать через Value.
type Signal struct {
	mu       sync.Mutex
	value    bool
	nextID   int
	watchers map[int]chan struct{}
}

// NewSignal создает сигнал со значением false
func NewSignal() *Signal {
	return &Signal{watchers: make(map[int]chan struct{})}
}

// Value возвращает текущее значение
func (s *Signal) Value() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set меняет значение и уведомляет подписчиков, если оно изменилось
func (s *Signal) Set(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value == v {
		return
	}
	s.value = v
	s.notifyLocked()
}

// Notify будит подписчиков, не меняя значение. Нужен, когда у источника
// изменилось что-то помимо значения, например проверка завершилась отказом.
func (s *Signal) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyLocked()
}

func (s *Signal) notifyLocked() {
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
			// Уведомление уже ждет чтения
		}
	}
}

// Watch подписывается на изменения. stop нужно вызвать, когда подписка больше не нужна;
// повторный вызов stop безопасен.
func (s *Signal) Watch() (updates <-chan struct{}, stop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// watcherCount используется в тестах
func (s *Signal) watcherCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}
