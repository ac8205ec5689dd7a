package ws

import (
	"fmt"
	"testing"

	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(identityID, connID string) *Client {
	return &Client{
		connID: connID,
		identity: &models.Identity{
			ID:          identityID,
			DisplayName: "client " + identityID,
			Role:        models.RoleAdvisor,
			Tag:         models.TagAccount,
		},
		send:  make(chan Frame, 8),
		rooms: make(map[string]struct{}),
	}
}

func drainFrames(c *Client) []Frame {
	var frames []Frame
	for {
		select {
		case frame := <-c.send:
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

func TestManager_RegisterUnregister(t *testing.T) {
	tracker := presence.NewTracker()
	m := NewManager(tracker)

	c1 := newTestClient("id-1", "c1")
	c2 := newTestClient("id-1", "c2")

	m.Register(c1)
	m.Register(c2)
	assert.Equal(t, 2, m.ClientCount())
	assert.True(t, tracker.IsOnline("id-1"))

	// Снятие одного соединения не гасит presence
	m.Unregister(c1)
	assert.Equal(t, 1, m.ClientCount())
	assert.True(t, tracker.IsOnline("id-1"))

	m.Unregister(c2)
	assert.Equal(t, 0, m.ClientCount())
	assert.False(t, tracker.IsOnline("id-1"))
}

func TestManager_UnregisterIdempotent(t *testing.T) {
	tracker := presence.NewTracker()
	m := NewManager(tracker)

	c := newTestClient("id-1", "c1")
	m.Register(c)
	m.Unregister(c)

	// Повторный вызов не должен паниковать на закрытом канале
	m.Unregister(c)
	assert.Equal(t, 0, m.ClientCount())

	ghost := newTestClient("ghost", "g1")
	m.Unregister(ghost)
	assert.Equal(t, 0, m.ClientCount())
}

func TestManager_PushToIdentity(t *testing.T) {
	m := NewManager(presence.NewTracker())

	c1 := newTestClient("id-1", "c1")
	c2 := newTestClient("id-1", "c2")
	other := newTestClient("id-2", "c3")
	m.Register(c1)
	m.Register(c2)
	m.Register(other)

	delivered := m.PushToIdentity("id-1", "notification:new", map[string]string{"title": "hello"})
	assert.True(t, delivered)

	// Кадр приходит на все соединения идентичности, чужие не затронуты
	frames1 := drainFrames(c1)
	require.Len(t, frames1, 1)
	assert.Equal(t, "notification:new", frames1[0].Event)

	frames2 := drainFrames(c2)
	require.Len(t, frames2, 1)

	assert.Empty(t, drainFrames(other))

	// Для оффлайн-идентичности доставка не подтверждается
	assert.False(t, m.PushToIdentity("nobody", "notification:new", nil))
}

func TestManager_Rooms(t *testing.T) {
	m := NewManager(presence.NewTracker())

	a := newTestClient("id-a", "c1")
	b := newTestClient("id-b", "c2")
	outsider := newTestClient("id-c", "c3")
	m.Register(a)
	m.Register(b)
	m.Register(outsider)

	m.JoinRoom(a, "conv-1")
	m.JoinRoom(b, "conv-1")

	// Отправитель исключается из fan-out комнаты
	m.PushToConversation("conv-1", "id-a", EventTyping, typingEvent{
		ConversationID: "conv-1",
		IdentityID:     "id-a",
	})

	assert.Empty(t, drainFrames(a))
	assert.Empty(t, drainFrames(outsider))

	frames := drainFrames(b)
	require.Len(t, frames, 1)
	assert.Equal(t, EventTyping, frames[0].Event)

	// После выхода из комнаты кадры не приходят
	m.LeaveRoom(b, "conv-1")
	m.PushToConversation("conv-1", "id-a", EventTyping, nil)
	assert.Empty(t, drainFrames(b))
}

func TestManager_UnregisterLeavesRooms(t *testing.T) {
	m := NewManager(presence.NewTracker())

	a := newTestClient("id-a", "c1")
	b := newTestClient("id-b", "c2")
	m.Register(a)
	m.Register(b)
	m.JoinRoom(a, "conv-1")
	m.JoinRoom(b, "conv-1")

	m.Unregister(b)

	// Комната очищена от снятого соединения, кадр уходит только живым
	m.PushToConversation("conv-1", "", EventTyping, nil)
	assert.Len(t, drainFrames(a), 1)

	// Последний подписчик ушел - комната удаляется целиком
	m.Unregister(a)
	m.PushToConversation("conv-1", "", EventTyping, nil)
}

func TestManager_ConcurrentRegisterPush(t *testing.T) {
	m := NewManager(presence.NewTracker())

	const clients = 8
	done := make(chan struct{})

	// У каждого клиента своя идентичность: кадры не копятся в чужих
	// буферах, пока их владелец занят
	for i := 0; i < clients; i++ {
		c := newTestClient(fmt.Sprintf("id-%d", i), fmt.Sprintf("c%d", i))
		m.Register(c)
		go func(c *Client) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				m.PushToIdentity(c.identity.ID, "tick", j)
				drainFrames(c)
			}
			m.Unregister(c)
		}(c)
	}

	for i := 0; i < clients; i++ {
		<-done
	}
	assert.Equal(t, 0, m.ClientCount())
}
