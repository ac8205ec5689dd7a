package handlers

import (
	"net/http"

	"mentorhub_backend/internal/services"
	"mentorhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// DeviceHandler регистрирует устройства для внешнего push-канала.
type DeviceHandler struct {
	*BaseHandler
	deviceService services.DeviceService
}

func NewDeviceHandler(base *BaseHandler, deviceService services.DeviceService) *DeviceHandler {
	return &DeviceHandler{
		BaseHandler:   base,
		deviceService: deviceService,
	}
}

func (h *DeviceHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	devices := rg.Group("/devices")
	devices.Use(authMW)
	{
		devices.POST("", h.Register)
		devices.DELETE("/:token", h.Unregister)
		devices.PUT("/push", h.SetPushEnabled)
	}
}

func (h *DeviceHandler) Register(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var req dto.RegisterDeviceRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	if err := h.deviceService.Register(db, identity, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Device registered"})
}

func (h *DeviceHandler) Unregister(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	token := c.Param("token")

	if err := h.deviceService.Unregister(db, identity, token); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Device removed"})
}

func (h *DeviceHandler) SetPushEnabled(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var req dto.PushEnabledRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	if err := h.deviceService.SetPushEnabled(db, identity, req.Enabled); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Push preference updated"})
}
