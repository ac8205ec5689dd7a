package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	UserHandler         *UserHandler
	ContactHandler      *ContactHandler
	ChatHandler         *ChatHandler
	ChatRequestHandler  *ChatRequestHandler
	NotificationHandler *NotificationHandler
	ReviewHandler       *ReviewHandler
	DeviceHandler       *DeviceHandler
}
