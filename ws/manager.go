package ws

import (
	"sync"

	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/presence"
)

// Manager ведет реестр живых соединений и комнат-тредов и реализует
// notifier.LivePusher. Комната существует, пока в ней есть хотя бы один
// подписчик; членство в комнате не переживает reconnect.
//
// Дисциплина блокировок: запись в send-каналы только под RLock, закрытие
// каналов только под полным Lock. Это исключает send-on-closed без
// дополнительного состояния на клиенте.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // identityID -> соединения
	rooms   map[string]map[*Client]struct{} // conversationID -> подписчики

	tracker *presence.Tracker
}

func NewManager(tracker *presence.Tracker) *Manager {
	return &Manager{
		clients: make(map[string]map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		tracker: tracker,
	}
}

// Register добавляет соединение и отмечает идентичность онлайн.
func (m *Manager) Register(c *Client) {
	m.mu.Lock()
	set, ok := m.clients[c.identity.ID]
	if !ok {
		set = make(map[*Client]struct{})
		m.clients[c.identity.ID] = set
	}
	set[c] = struct{}{}
	count := len(set)
	m.mu.Unlock()

	m.tracker.MarkOnline(c.identity.ID, c.connID)
	logger.WSLog("connected", c.identity.ID, c.connID, "connections", count)
}

// Unregister снимает соединение: выход из всех комнат, закрытие
// send-канала, снятие отметки presence. Идемпотентен.
func (m *Manager) Unregister(c *Client) {
	m.mu.Lock()
	set, ok := m.clients[c.identity.ID]
	if !ok {
		m.mu.Unlock()
		return
	}
	if _, member := set[c]; !member {
		m.mu.Unlock()
		return
	}

	delete(set, c)
	if len(set) == 0 {
		delete(m.clients, c.identity.ID)
	}

	for conversationID := range c.rooms {
		if room, ok := m.rooms[conversationID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(m.rooms, conversationID)
			}
		}
	}

	close(c.send)
	m.mu.Unlock()

	stillOnline := m.tracker.MarkOffline(c.identity.ID, c.connID)
	logger.WSLog("disconnected", c.identity.ID, c.connID, "still_online", stillOnline)
}

// JoinRoom подписывает соединение на тред. Права проверяет вызывающий.
func (m *Manager) JoinRoom(c *Client, conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[conversationID]
	if !ok {
		room = make(map[*Client]struct{})
		m.rooms[conversationID] = room
	}
	room[c] = struct{}{}
	c.rooms[conversationID] = struct{}{}
}

func (m *Manager) LeaveRoom(c *Client, conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[conversationID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(m.rooms, conversationID)
		}
	}
	delete(c.rooms, conversationID)
}

// PushToIdentity шлет событие на все соединения идентичности.
// Возвращает false, если ни одно соединение не приняло кадр.
func (m *Manager) PushToIdentity(identityID, event string, payload interface{}) bool {
	frame := Frame{Event: event, Data: payload}

	m.mu.RLock()
	defer m.mu.RUnlock()

	delivered := false
	for c := range m.clients[identityID] {
		if c.trySend(frame) {
			delivered = true
		}
	}
	return delivered
}

// PushToConversation шлет событие всем подписчикам треда, кроме excludeID.
func (m *Manager) PushToConversation(conversationID, excludeID, event string, payload interface{}) {
	frame := Frame{Event: event, Data: payload}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for c := range m.rooms[conversationID] {
		if c.identity.ID == excludeID {
			continue
		}
		c.trySend(frame)
	}
}

// ClientCount возвращает число живых соединений (все идентичности).
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, set := range m.clients {
		total += len(set)
	}
	return total
}
