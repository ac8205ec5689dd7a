package handlers

import (
	"net/http"

	"mentorhub_backend/internal/middleware"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/services"
	"mentorhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// ReviewHandler обслуживает ревью-сессии и их тред сообщений.
type ReviewHandler struct {
	*BaseHandler
	reviewService services.ReviewService
	chatService   services.ChatService
}

func NewReviewHandler(base *BaseHandler, reviewService services.ReviewService, chatService services.ChatService) *ReviewHandler {
	return &ReviewHandler{
		BaseHandler:   base,
		reviewService: reviewService,
		chatService:   chatService,
	}
}

func (h *ReviewHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	reviews := rg.Group("/reviews")
	reviews.Use(authMW)
	{
		reviews.GET("", h.List)
		reviews.POST("", middleware.RequireRoles(models.RoleAdvisor, models.RoleAdmin), h.Schedule)
		reviews.GET("/:sessionId", h.Get)
		reviews.POST("/:sessionId/cancel", middleware.RequireRoles(models.RoleAdvisor, models.RoleAdmin), h.Cancel)
		reviews.POST("/:sessionId/complete", h.Complete)

		reviews.GET("/:sessionId/messages", h.ListMessages)
		reviews.POST("/:sessionId/messages", h.SendMessage)
	}
}

func (h *ReviewHandler) Schedule(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var req dto.ScheduleReviewRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	session, err := h.reviewService.Schedule(db, identity, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *ReviewHandler) List(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var criteria dto.ReviewSessionCriteria
	if !h.BindAndValidate_Query(c, &criteria) {
		return
	}

	db := h.GetDB(c)

	response, err := h.reviewService.List(db, identity, criteria)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ReviewHandler) Get(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	sessionID := c.Param("sessionId")

	session, err := h.reviewService.Get(db, identity, sessionID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *ReviewHandler) Cancel(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	sessionID := c.Param("sessionId")

	session, err := h.reviewService.Cancel(db, identity, sessionID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *ReviewHandler) Complete(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	sessionID := c.Param("sessionId")

	session, err := h.reviewService.Complete(db, identity, sessionID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *ReviewHandler) ListMessages(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var criteria dto.MessageCriteria
	if !h.BindAndValidate_Query(c, &criteria) {
		return
	}

	db := h.GetDB(c)
	sessionID := c.Param("sessionId")

	response, err := h.chatService.ListSessionMessages(db, identity, sessionID, criteria)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ReviewHandler) SendMessage(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)
	sessionID := c.Param("sessionId")

	message, err := h.chatService.SendSessionMessage(db, identity, sessionID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}
