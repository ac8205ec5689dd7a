package handlers

import (
	"net/http"

	"mentorhub_backend/internal/middleware"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/services"
	"mentorhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	*BaseHandler
	chatService services.ChatService
}

func NewChatHandler(base *BaseHandler, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		BaseHandler: base,
		chatService: chatService,
	}
}

func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	conversations := rg.Group("/conversations")
	conversations.Use(authMW)
	{
		conversations.GET("", h.ListConversations)
		conversations.POST("", h.StartConversation)
		conversations.GET("/:conversationId", h.GetConversation)
		conversations.GET("/:conversationId/messages", h.ListMessages)
		conversations.POST("/:conversationId/messages", h.SendMessage)
		conversations.POST("/:conversationId/read", h.MarkRead)
		conversations.POST("/:conversationId/mute", h.Mute)
		conversations.DELETE("/:conversationId/mute", h.Unmute)
	}

	messages := rg.Group("/messages")
	messages.Use(authMW)
	{
		messages.DELETE("/:messageId", h.DeleteMessage)
	}

	admin := rg.Group("/admin/conversations")
	admin.Use(authMW, middleware.RoleMiddleware(models.RoleAdmin))
	{
		admin.PUT("/:conversationId/active", h.SetConversationActive)
	}
}

func (h *ChatHandler) StartConversation(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var req dto.StartConversationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	conversation, err := h.chatService.StartOrGet(db, identity, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	response, err := h.chatService.ListConversations(db, identity)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	conversationID := c.Param("conversationId")

	conversation, err := h.chatService.GetConversation(db, identity, conversationID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)
	conversationID := c.Param("conversationId")

	message, err := h.chatService.SendMessage(db, identity, conversationID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var criteria dto.MessageCriteria
	if !h.BindAndValidate_Query(c, &criteria) {
		return
	}

	db := h.GetDB(c)
	conversationID := c.Param("conversationId")

	response, err := h.chatService.ListMessages(db, identity, conversationID, criteria)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	conversationID := c.Param("conversationId")

	response, err := h.chatService.MarkRead(db, identity, conversationID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatHandler) Mute(c *gin.Context) {
	h.setMuted(c, true)
}

func (h *ChatHandler) Unmute(c *gin.Context) {
	h.setMuted(c, false)
}

func (h *ChatHandler) setMuted(c *gin.Context, muted bool) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	conversationID := c.Param("conversationId")

	if err := h.chatService.Mute(db, identity, conversationID, muted); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Mute state updated"})
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	messageID := c.Param("messageId")

	if err := h.chatService.DeleteMessage(db, identity, messageID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}

func (h *ChatHandler) SetConversationActive(c *gin.Context) {
	var req dto.SetActiveRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)
	conversationID := c.Param("conversationId")

	if err := h.chatService.SetConversationActive(db, conversationID, *req.Active); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation status updated"})
}
