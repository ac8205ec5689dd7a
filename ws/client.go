package ws

import (
	"encoding/json"
	"time"

	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/models"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client - одно WebSocket-соединение аутентифицированной идентичности.
// У идентичности может быть несколько клиентов одновременно (вкладки,
// устройства); каждому выдается свой connID.
type Client struct {
	connID   string
	identity *models.Identity

	conn *websocket.Conn
	send chan Frame

	// комнаты этого соединения; мутируется только под mu менеджера
	rooms map[string]struct{}

	manager *Manager
	gateway *Handler
	db      *gorm.DB
}

// readPump читает входящие конверты и передает их шлюзу.
// Единственный читатель соединения.
func (c *Client) readPump() {
	defer func() {
		c.manager.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(c.gateway.maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WSLog("read_error", c.identity.ID, c.connID, "error", err.Error())
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			c.sendError("", "Malformed event envelope")
			continue
		}

		c.gateway.handleEvent(c, envelope)
	}
}

// writePump сериализует запись: кадры из send-канала и пинги.
// Единственный писатель соединения.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend кладет кадр в буфер соединения без блокировки. Переполненный
// буфер означает безнадежно отстающего клиента: кадр отбрасывается,
// соединение закрывается, пампы доделают остальное.
func (c *Client) trySend(frame Frame) bool {
	select {
	case c.send <- frame:
		return true
	default:
		logger.WSLog("send_buffer_full", c.identity.ID, c.connID, "event", frame.Event)
		c.conn.Close()
		return false
	}
}

func (c *Client) sendError(action, message string) {
	c.trySend(Frame{Event: EventError, Data: errorPayload{Action: action, Message: message}})
}
