package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/presence"
	"mentorhub_backend/internal/push"
	"mentorhub_backend/internal/repositories"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Config содержит настройки диспетчера уведомлений
type Config struct {
	DedupWindow  time.Duration
	CatchupLimit int
	QueueSize    int
}

// Dispatcher принимает доменные события и доставляет уведомления:
// durable-запись всегда, живое соединение если получатель онлайн,
// внешний push как эскалация для оффлайна.
type Dispatcher interface {
	// Notify ставит событие в очередь доставки. Не блокирует:
	// при переполненной очереди событие отбрасывается с warn-логом.
	Notify(event Event)

	// CatchUp доставляет идентичности недоставленные уведомления,
	// накопившиеся пока она была оффлайн. Вызывается шлюзом на новом
	// соединении. Для admin выборка ограничена системными типами.
	CatchUp(identityID string, role models.UserRole)

	// PushLive шлет событие на личный канал идентичности, минуя очередь
	// и durable-хранилище. Для эфемерных событий вроде newMessage.
	PushLive(identityID, event string, payload interface{}) bool

	// PushRoom шлет событие подписчикам треда, кроме excludeID.
	PushRoom(conversationID, excludeID, event string, payload interface{})

	// SetLivePusher подключает ws-шлюз. Вызывается один раз при сборке
	// приложения, после создания шлюза.
	SetLivePusher(p LivePusher)

	// Close останавливает воркер, дождавшись обработки очереди
	// или истечения контекста.
	Close(ctx context.Context) error
}

type dispatcher struct {
	db               *gorm.DB
	notificationRepo repositories.NotificationRepository
	deviceTokenRepo  repositories.DeviceTokenRepository
	tracker          *presence.Tracker
	pushProvider     push.Provider

	dedupWindow  time.Duration
	catchupLimit int

	queue chan Event
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
	pusher LivePusher
}

// NewDispatcher создает диспетчер и запускает его воркер
func NewDispatcher(
	db *gorm.DB,
	notificationRepo repositories.NotificationRepository,
	deviceTokenRepo repositories.DeviceTokenRepository,
	tracker *presence.Tracker,
	pushProvider push.Provider,
	cfg Config,
) Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 60 * time.Second
	}
	if cfg.CatchupLimit <= 0 {
		cfg.CatchupLimit = 20
	}

	d := &dispatcher{
		db:               db,
		notificationRepo: notificationRepo,
		deviceTokenRepo:  deviceTokenRepo,
		tracker:          tracker,
		pushProvider:     pushProvider,
		dedupWindow:      cfg.DedupWindow,
		catchupLimit:     cfg.CatchupLimit,
		queue:            make(chan Event, cfg.QueueSize),
		done:             make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) SetLivePusher(p LivePusher) {
	d.mu.Lock()
	d.pusher = p
	d.mu.Unlock()
}

func (d *dispatcher) Notify(event Event) {
	if event.Recipient == nil {
		logger.Warn("notify called without recipient", "type", event.Type)
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queue <- event:
	default:
		logger.Warn("notification queue full, dropping event",
			"type", event.Type,
			"recipientId", event.Recipient.ID,
		)
	}
}

func (d *dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	close(d.queue)
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		d.process(event)
	}
}

// Сигнальная ошибка: запись подавлена дедуп-окном, это не сбой
var errDeduplicated = errors.New("notification deduplicated")

// process пишет durable-запись (с дедупликацией) и выбирает канал доставки
func (d *dispatcher) process(event Event) {
	notification := d.buildNotification(event)

	err := d.db.Transaction(func(tx *gorm.DB) error {
		if event.Dedup && notification.HasDedupKey() {
			since := time.Now().Add(-d.dedupWindow)
			exists, err := d.notificationRepo.ExistsRecent(
				tx, *notification.RecipientID, notification.Type,
				notification.EntityType, notification.EntityID, since,
			)
			if err != nil {
				return err
			}
			if exists {
				return errDeduplicated
			}
		}
		return d.notificationRepo.Create(tx, notification)
	})
	if errors.Is(err, errDeduplicated) {
		logger.Debug("notification suppressed by dedup window",
			"recipientId", *notification.RecipientID,
			"type", notification.Type,
			"entityId", notification.EntityID,
		)
		return
	}
	if err != nil {
		logger.Error("failed to persist notification", "error", err, "type", notification.Type)
		return
	}

	d.deliver(notification, event)
}

func (d *dispatcher) deliver(notification *models.Notification, event Event) {
	recipientID := *notification.RecipientID

	if d.tracker.IsOnline(recipientID) {
		if d.PushLive(recipientID, EventNotificationNew, notification) {
			if err := d.notificationRepo.MarkDelivered(d.db, []string{notification.ID}); err != nil {
				logger.Error("failed to mark notification delivered", "error", err)
			}
			logger.DeliveryLog("socket", recipientID, notification.Type, nil)
			return
		}
		// Онлайн, но доставить не вышло: оставляем pending для catch-up
		// и пробуем push
		if err := d.notificationRepo.MarkDeliveryFailed(d.db, notification.ID); err != nil {
			logger.Error("failed to mark notification failed", "error", err)
		}
	}

	d.escalatePush(recipientID, notification, event)
}

// escalatePush шлет внешний push на все устройства получателя.
// Статус доставки не меняется: durable-уведомление остается pending,
// пока клиент не получит его по живому каналу.
func (d *dispatcher) escalatePush(recipientID string, notification *models.Notification, event Event) {
	if event.SkipPush || d.pushProvider == nil {
		return
	}
	if event.Recipient != nil && !event.Recipient.PushEnabled {
		return
	}

	tokens, err := d.deviceTokenRepo.FindForIdentity(d.db, recipientID)
	if err != nil {
		logger.Error("failed to load device tokens", "error", err, "recipientId", recipientID)
		return
	}

	for _, token := range tokens {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := d.pushProvider.Send(ctx, token.Token, &push.Notification{
			Title: notification.Title,
			Body:  notification.Message,
			Data:  flattenEventData(event),
		})
		cancel()

		if errors.Is(err, push.ErrInvalidToken) {
			if delErr := d.deviceTokenRepo.DeleteByToken(d.db, token.Token); delErr != nil {
				logger.Warn("failed to prune invalid device token", "error", delErr)
			}
			continue
		}
		logger.DeliveryLog("push", recipientID, notification.Type, err)
	}
}

func (d *dispatcher) CatchUp(identityID string, role models.UserRole) {
	var types []string
	if role == models.RoleAdmin {
		types = []string{models.NotificationTypeSystem, models.NotificationTypeAnnouncement}
	}

	pending, err := d.notificationRepo.FindUndelivered(d.db, identityID, types, d.catchupLimit)
	if err != nil {
		logger.Error("catch-up query failed", "error", err, "identityId", identityID)
		return
	}
	if len(pending) == 0 {
		return
	}

	// Выборка приходит свежими вперед - клиенту отдаем хронологию
	for i, j := 0, len(pending)-1; i < j; i, j = i+1, j-1 {
		pending[i], pending[j] = pending[j], pending[i]
	}

	if !d.PushLive(identityID, EventNotificationPending, pending) {
		return
	}

	ids := make([]string, len(pending))
	for i := range pending {
		ids[i] = pending[i].ID
	}
	if err := d.notificationRepo.MarkDelivered(d.db, ids); err != nil {
		logger.Error("failed to mark catch-up batch delivered", "error", err)
		return
	}
	logger.Debug("catch-up delivered", "identityId", identityID, "count", len(pending))
}

func (d *dispatcher) PushLive(identityID, event string, payload interface{}) bool {
	d.mu.RLock()
	pusher := d.pusher
	d.mu.RUnlock()

	if pusher == nil {
		return false
	}
	return pusher.PushToIdentity(identityID, event, payload)
}

func (d *dispatcher) PushRoom(conversationID, excludeID, event string, payload interface{}) {
	d.mu.RLock()
	pusher := d.pusher
	d.mu.RUnlock()

	if pusher == nil {
		return
	}
	pusher.PushToConversation(conversationID, excludeID, event, payload)
}

func (d *dispatcher) buildNotification(event Event) *models.Notification {
	recipientID := event.Recipient.ID
	notification := &models.Notification{
		RecipientID:    &recipientID,
		RecipientTag:   event.Recipient.Tag,
		Type:           event.Type,
		Title:          event.Title,
		Message:        event.Message,
		Link:           event.Link,
		EntityType:     event.EntityType,
		EntityID:       event.EntityID,
		Priority:       event.Priority,
		DeliveryStatus: models.DeliveryPending,
	}
	if notification.Priority == "" {
		notification.Priority = models.PriorityNormal
	}
	if event.Sender != nil {
		senderID := event.Sender.ID
		notification.SenderID = &senderID
	}
	if len(event.Data) > 0 {
		if raw, err := json.Marshal(event.Data); err == nil {
			notification.Data = datatypes.JSON(raw)
		}
	}
	return notification
}

func flattenEventData(event Event) map[string]string {
	if len(event.Data) == 0 {
		return nil
	}
	flat := make(map[string]string, len(event.Data))
	for k, v := range event.Data {
		if s, ok := v.(string); ok {
			flat[k] = s
		}
	}
	return flat
}
