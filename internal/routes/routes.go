package routes

import (
	"net/http"

	"mentorhub_backend/internal/handlers"
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
// authMW строится один раз при сборке приложения и переиспользуется
// всеми защищенными группами.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.Handler,
	authMW gin.HandlerFunc,
) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := ginRouter.Group("/api/v1")
	{
		appHandlers.AuthHandler.RegisterRoutes(api, authMW)
		appHandlers.UserHandler.RegisterRoutes(api, authMW)
		appHandlers.ContactHandler.RegisterRoutes(api, authMW)
		appHandlers.ChatHandler.RegisterRoutes(api, authMW)
		appHandlers.ChatRequestHandler.RegisterRoutes(api, authMW)
		appHandlers.NotificationHandler.RegisterRoutes(api, authMW)
		appHandlers.ReviewHandler.RegisterRoutes(api, authMW)
		appHandlers.DeviceHandler.RegisterRoutes(api, authMW)
	}

	// WebSocket аутентифицируется в собственном handshake (токен в query
	// или заголовке): браузерный клиент не может выставить Authorization
	// на upgrade-запросе
	ginRouter.GET("/ws", wsHandler.ServeWS)
	logger.Info("WebSocket route /ws registered")
}
