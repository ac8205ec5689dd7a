package handlers

import (
	"net/http"

	"mentorhub_backend/internal/middleware"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/services"
	"mentorhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// ChatRequestHandler обслуживает workflow одобрения reviewer-student чатов:
// студент создает запрос, его advisor одобряет или отклоняет.
type ChatRequestHandler struct {
	*BaseHandler
	chatRequestService services.ChatRequestService
}

func NewChatRequestHandler(base *BaseHandler, chatRequestService services.ChatRequestService) *ChatRequestHandler {
	return &ChatRequestHandler{
		BaseHandler:        base,
		chatRequestService: chatRequestService,
	}
}

func (h *ChatRequestHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	requests := rg.Group("/chat-requests")
	requests.Use(authMW)
	{
		requests.POST("", middleware.RoleMiddleware(models.RoleStudent), h.Create)
		requests.GET("", h.List)
		requests.GET("/:requestId", h.Get)
		requests.POST("/:requestId/approve", middleware.RoleMiddleware(models.RoleAdvisor), h.Approve)
		requests.POST("/:requestId/reject", middleware.RoleMiddleware(models.RoleAdvisor), h.Reject)
	}
}

func (h *ChatRequestHandler) Create(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var req dto.CreateChatRequestRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	request, err := h.chatRequestService.Create(db, identity, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

func (h *ChatRequestHandler) List(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var criteria dto.ChatRequestCriteria
	if !h.BindAndValidate_Query(c, &criteria) {
		return
	}

	db := h.GetDB(c)

	response, err := h.chatRequestService.List(db, identity, criteria)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ChatRequestHandler) Get(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	requestID := c.Param("requestId")

	request, err := h.chatRequestService.Get(db, identity, requestID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func (h *ChatRequestHandler) Approve(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	requestID := c.Param("requestId")

	request, err := h.chatRequestService.Approve(db, identity, requestID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func (h *ChatRequestHandler) Reject(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	// Тело с причиной опционально
	var req dto.RejectChatRequestRequest
	if c.Request.ContentLength > 0 {
		if !h.BindAndValidate_JSON(c, &req) {
			return
		}
	}

	db := h.GetDB(c)
	requestID := c.Param("requestId")

	request, err := h.chatRequestService.Reject(db, identity, requestID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}
