package ws

import (
	"encoding/json"
	"net/http"
	"strings"

	"mentorhub_backend/internal/auth"
	"mentorhub_backend/internal/config"
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/notifier"
	"mentorhub_backend/internal/services"
	"mentorhub_backend/internal/services/dto"
	"mentorhub_backend/pkg/apperrors"
	"mentorhub_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

// Handler принимает WebSocket-соединения и диспетчеризует входящие
// события на сервисы. Каждое действие заново проверяет права через
// сервисный слой: join не выдает долгосрочных полномочий.
type Handler struct {
	manager         *Manager
	identityService services.IdentityService
	chatService     services.ChatService
	dispatcher      notifier.Dispatcher

	upgrader       websocket.Upgrader
	maxMessageSize int
	sendBufferSize int
}

func NewHandler(
	manager *Manager,
	identityService services.IdentityService,
	chatService services.ChatService,
	dispatcher notifier.Dispatcher,
) *Handler {
	cfg := config.GetConfig()
	return &Handler{
		manager:         manager,
		identityService: identityService,
		chatService:     chatService,
		dispatcher:      dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WS.ReadBufferSize,
			WriteBufferSize: cfg.WS.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // продакшн: проверка origin
			},
		},
		maxMessageSize: cfg.WS.MaxMessageSize,
		sendBufferSize: cfg.WS.SendBufferSize,
	}
}

// ServeWS выполняет handshake: токен из query `token` (браузер не может
// выставить Authorization на upgrade-запросе) или из заголовка; JWT
// проверяется, идентичность резолвится, соединение регистрируется.
// Любой сбой закрывает соединение без частичного состояния.
func (h *Handler) ServeWS(c *gin.Context) {
	tokenStr := bearerToken(c)
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}

	claims, err := auth.ParseToken(tokenStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	db := dbFrom(c)
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database is not available"})
		return
	}

	identity, active, err := h.identityService.ResolveTagged(db, claims.IdentityID, claims.IdentityTag)
	if err != nil || !active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		connID:   uuid.NewString(),
		identity: identity,
		conn:     conn,
		send:     make(chan Frame, h.sendBufferSize),
		rooms:    make(map[string]struct{}),
		manager:  h.manager,
		gateway:  h,
		db:       db,
	}

	h.manager.Register(client)

	go client.writePump()
	go client.readPump()

	// Недоставленные уведомления догоняют новое соединение
	go h.dispatcher.CatchUp(identity.ID, identity.Role)
}

func (h *Handler) handleEvent(c *Client, envelope Envelope) {
	switch envelope.Action {
	case ActionJoin:
		h.handleJoin(c, envelope.Data)
	case ActionLeave:
		h.handleLeave(c, envelope.Data)
	case ActionSend:
		h.handleSend(c, envelope.Data)
	case ActionMarkRead:
		h.handleMarkRead(c, envelope.Data)
	case ActionTyping:
		h.handleTyping(c, envelope.Data)
	default:
		c.sendError(envelope.Action, "Unknown action")
	}
}

func (h *Handler) handleJoin(c *Client, data json.RawMessage) {
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		c.sendError(ActionJoin, "conversationId is required")
		return
	}

	if _, err := h.chatService.GetConversation(c.db, c.identity, payload.ConversationID); err != nil {
		c.sendError(ActionJoin, errorMessage(err))
		return
	}

	h.manager.JoinRoom(c, payload.ConversationID)
	logger.WSLog("join", c.identity.ID, c.connID, "conversation_id", payload.ConversationID)
	c.trySend(Frame{Event: EventJoined, Data: joinPayload{ConversationID: payload.ConversationID}})
}

func (h *Handler) handleLeave(c *Client, data json.RawMessage) {
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		c.sendError(ActionLeave, "conversationId is required")
		return
	}

	h.manager.LeaveRoom(c, payload.ConversationID)
	c.trySend(Frame{Event: EventLeft, Data: joinPayload{ConversationID: payload.ConversationID}})
}

func (h *Handler) handleSend(c *Client, data json.RawMessage) {
	var payload sendPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		c.sendError(ActionSend, "conversationId is required")
		return
	}

	req := &dto.SendMessageRequest{
		Content:     payload.Content,
		MessageType: models.MessageType(payload.MessageType),
	}

	message, err := h.chatService.SendMessage(c.db, c.identity, payload.ConversationID, req)
	if err != nil {
		c.sendError(ActionSend, errorMessage(err))
		return
	}

	// Комната и личный канал получателя получают событие через fan-out
	// сервиса; отправителю возвращается персистентное сообщение как ack
	c.trySend(Frame{Event: EventSent, Data: message})
}

func (h *Handler) handleMarkRead(c *Client, data json.RawMessage) {
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		c.sendError(ActionMarkRead, "conversationId is required")
		return
	}

	resp, err := h.chatService.MarkRead(c.db, c.identity, payload.ConversationID)
	if err != nil {
		c.sendError(ActionMarkRead, errorMessage(err))
		return
	}

	c.trySend(Frame{Event: EventRead, Data: resp})
}

func (h *Handler) handleTyping(c *Client, data json.RawMessage) {
	var payload typingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		c.sendError(ActionTyping, "conversationId is required")
		return
	}

	if _, err := h.chatService.GetConversation(c.db, c.identity, payload.ConversationID); err != nil {
		c.sendError(ActionTyping, errorMessage(err))
		return
	}

	// typing живет только в комнате, durable-слой не трогаем
	h.manager.PushToConversation(payload.ConversationID, c.identity.ID, EventTyping, typingEvent{
		ConversationID: payload.ConversationID,
		IdentityID:     c.identity.ID,
		DisplayName:    c.identity.DisplayName,
	})
}

func bearerToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func dbFrom(c *gin.Context) *gorm.DB {
	val, ok := c.Get(string(contextkeys.DBContextKey))
	if !ok {
		return nil
	}
	db, _ := val.(*gorm.DB)
	return db
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal error"
}
