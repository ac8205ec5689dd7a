package presence

import "sync"

// Tracker - процессный реестр живых соединений: identityID -> множество
// connectionID. Идентичность онлайн, пока множество непустое; пустые
// множества не хранятся (запись удаляется). Единственное разделяемое
// мутабельное состояние процесса; все операции O(1) под одним мьютексом.
//
// Источник правды только о presence, ни о чем durable. Создается на
// старте процесса и передается зависимостям явно.
type Tracker struct {
	mu          sync.RWMutex
	connections map[string]map[string]struct{}
}

// NewTracker создает пустой реестр.
func NewTracker() *Tracker {
	return &Tracker{
		connections: make(map[string]map[string]struct{}),
	}
}

// MarkOnline регистрирует соединение идентичности.
// Повторная регистрация того же connID - no-op.
func (t *Tracker) MarkOnline(identityID, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.connections[identityID]
	if !ok {
		set = make(map[string]struct{})
		t.connections[identityID] = set
	}
	set[connID] = struct{}{}
}

// MarkOffline снимает соединение. Возвращает true, если у идентичности
// остались другие живые соединения. Когда множество пустеет, запись
// удаляется целиком.
func (t *Tracker) MarkOffline(identityID, connID string) (stillOnline bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.connections[identityID]
	if !ok {
		return false
	}

	delete(set, connID)
	if len(set) == 0 {
		delete(t.connections, identityID)
		return false
	}
	return true
}

// IsOnline сообщает, есть ли у идентичности хотя бы одно живое соединение.
func (t *Tracker) IsOnline(identityID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.connections[identityID]) > 0
}

// ConnectionsFor возвращает копию множества соединений идентичности.
// Пустой срез - идентичность оффлайн.
func (t *Tracker) ConnectionsFor(identityID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	set, ok := t.connections[identityID]
	if !ok {
		return nil
	}

	conns := make([]string, 0, len(set))
	for connID := range set {
		conns = append(conns, connID)
	}
	return conns
}

// OnlineCount возвращает число идентичностей онлайн.
// Дешевый счетчик благодаря инварианту "нет пустых множеств".
func (t *Tracker) OnlineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.connections)
}
