package notifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"mentorhub_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(recipientID string) Event {
	return Event{
		Recipient: &models.Identity{
			ID:          recipientID,
			DisplayName: "Test advisor",
			Role:        models.RoleAdvisor,
			Tag:         models.TagAccount,
			PushEnabled: true,
		},
		Type:    models.NotificationTypeChatMessage,
		Title:   "New message",
		Message: "hello",
	}
}

// fakePusher записывает вызовы живого канала
type fakePusher struct {
	mu       sync.Mutex
	identity []string
	rooms    []string
	verdict  bool
}

func (p *fakePusher) PushToIdentity(identityID, event string, payload interface{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identity = append(p.identity, identityID+":"+event)
	return p.verdict
}

func (p *fakePusher) PushToConversation(conversationID, excludeID, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = append(p.rooms, conversationID+":"+excludeID+":"+event)
}

func TestDispatcher_NotifyNeverBlocks(t *testing.T) {
	// Воркер намеренно не запущен: очередь никто не разгребает
	d := &dispatcher{
		queue: make(chan Event, 2),
		done:  make(chan struct{}),
	}

	start := time.Now()
	for i := 0; i < 10; i++ {
		d.Notify(testEvent("adv-1"))
	}
	elapsed := time.Since(start)

	// Лишние события отброшены, вызывающий ни разу не ждал
	assert.Len(t, d.queue, 2)
	assert.Less(t, elapsed, time.Second)
}

func TestDispatcher_NotifyWithoutRecipient(t *testing.T) {
	d := &dispatcher{
		queue: make(chan Event, 2),
		done:  make(chan struct{}),
	}

	d.Notify(Event{Type: models.NotificationTypeSystem})
	assert.Len(t, d.queue, 0)
}

func TestDispatcher_CloseIdempotent(t *testing.T) {
	d := &dispatcher{
		queue: make(chan Event, 4),
		done:  make(chan struct{}),
	}
	go d.run()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, d.Close(ctx))
	require.NoError(t, d.Close(ctx))

	// После останова Notify становится no-op, а не паникой
	// на закрытом канале
	d.Notify(testEvent("adv-1"))
}

func TestDispatcher_CloseRespectsContext(t *testing.T) {
	// Воркер не запущен: done никогда не закроется
	d := &dispatcher{
		queue: make(chan Event, 1),
		done:  make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcher_LivePusherWiring(t *testing.T) {
	d := &dispatcher{
		queue: make(chan Event, 1),
		done:  make(chan struct{}),
	}

	// До подключения шлюза живой канал недоступен
	assert.False(t, d.PushLive("adv-1", EventNotificationNew, nil))
	d.PushRoom("conv-1", "adv-1", EventReceive, nil)

	pusher := &fakePusher{verdict: true}
	d.SetLivePusher(pusher)

	assert.True(t, d.PushLive("adv-1", EventNotificationNew, nil))
	d.PushRoom("conv-1", "adv-1", EventReceive, nil)

	assert.Equal(t, []string{"adv-1:" + EventNotificationNew}, pusher.identity)
	assert.Equal(t, []string{"conv-1:adv-1:" + EventReceive}, pusher.rooms)

	// Вердикт шлюза пробрасывается как есть
	pusher.verdict = false
	assert.False(t, d.PushLive("adv-1", EventNotificationNew, nil))
}

func TestDispatcher_BuildNotification(t *testing.T) {
	d := &dispatcher{}

	sender := &models.Identity{ID: "stu-1", Role: models.RoleStudent, Tag: models.TagStudent}
	event := testEvent("adv-1")
	event.Sender = sender
	event.EntityType = "conversation"
	event.EntityID = "conv-1"
	event.Data = map[string]interface{}{"conversationId": "conv-1", "count": 3}

	n := d.buildNotification(event)

	require.NotNil(t, n.RecipientID)
	assert.Equal(t, "adv-1", *n.RecipientID)
	assert.Equal(t, models.TagAccount, n.RecipientTag)
	require.NotNil(t, n.SenderID)
	assert.Equal(t, "stu-1", *n.SenderID)
	assert.Equal(t, models.DeliveryPending, n.DeliveryStatus)
	assert.True(t, n.HasDedupKey())

	// Пустой приоритет добивается до normal
	assert.Equal(t, models.PriorityNormal, n.Priority)

	// Без корреляции с сущностью дедуп-ключа нет
	bare := d.buildNotification(testEvent("adv-1"))
	assert.False(t, bare.HasDedupKey())

	// Во внешний push уходят только строковые значения
	flat := flattenEventData(event)
	assert.Equal(t, map[string]string{"conversationId": "conv-1"}, flat)
}
