package notifier

import (
	"mentorhub_backend/internal/models"
)

// Имена исходящих real-time событий. Используются и диспетчером,
// и ws-шлюзом, чтобы форматы на проводе не расходились.
const (
	EventReceive             = "receive"
	EventNewMessage          = "newMessage"
	EventNotificationNew     = "notification:new"
	EventNotificationPending = "notification:pending"
)

// Event описывает доменное событие, из которого диспетчер строит
// durable-уведомление и выбирает канал доставки.
type Event struct {
	Recipient *models.Identity
	Sender    *models.Identity

	Type       string
	Title      string
	Message    string
	Link       string
	EntityType string
	EntityID   string
	Priority   models.NotificationPriority
	Data       map[string]interface{}

	// Dedup включает подавление повторов по ключу
	// (получатель, тип, сущность) в пределах окна дедупликации.
	Dedup bool

	// SkipPush отключает эскалацию во внешний push-канал,
	// например для замьюченных диалогов.
	SkipPush bool
}

// LivePusher доставляет события живым соединениям. Реализуется ws-шлюзом;
// интерфейс объявлен здесь, чтобы разорвать цикл пакетов.
type LivePusher interface {
	// PushToIdentity шлет событие на все соединения идентичности.
	// Возвращает false, если ни одно соединение не приняло событие.
	PushToIdentity(identityID, event string, payload interface{}) bool

	// PushToConversation шлет событие всем подписчикам треда, кроме excludeID.
	PushToConversation(conversationID, excludeID, event string, payload interface{})
}
