package ws

import "encoding/json"

// Входящие действия клиента. Каждое действие перепроверяет членство
// в треде через сервисы: join не дает долгосрочных прав.
const (
	ActionJoin     = "join"
	ActionLeave    = "leave"
	ActionSend     = "send"
	ActionMarkRead = "markRead"
	ActionTyping   = "typing"
)

// Исходящие события соединения (сверх событий диспетчера).
const (
	EventJoined = "joined"
	EventLeft   = "left"
	EventSent   = "sent"
	EventRead   = "read"
	EventTyping = "typing"
	EventError  = "error"
)

// Envelope - конверт входящего события: {"action": ..., "data": {...}}
type Envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Frame - конверт исходящего события: {"event": ..., "data": {...}}
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type joinPayload struct {
	ConversationID string `json:"conversationId"`
}

type sendPayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	MessageType    string `json:"messageType"`
}

type typingPayload struct {
	ConversationID string `json:"conversationId"`
}

// typingEvent ретранслируется подписчикам комнаты, durable-слой не участвует
type typingEvent struct {
	ConversationID string `json:"conversationId"`
	IdentityID     string `json:"identityId"`
	DisplayName    string `json:"displayName"`
}

type errorPayload struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}
