package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentorhub_backend/database"
	"mentorhub_backend/internal/config"
	"mentorhub_backend/internal/email"
	"mentorhub_backend/internal/handlers"
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/middleware"
	"mentorhub_backend/internal/notifier"
	"mentorhub_backend/internal/presence"
	"mentorhub_backend/internal/push"
	"mentorhub_backend/internal/repositories"
	"mentorhub_backend/internal/routes"
	"mentorhub_backend/internal/services"
	"mentorhub_backend/internal/validator"
	"mentorhub_backend/internal/workers"
	"mentorhub_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// App собирает долгоживущие компоненты приложения. Run держит их,
// чтобы корректно остановить при завершении сервера.
type App struct {
	Router       *gin.Engine
	Services     *services.ServiceContainer
	Dispatcher   notifier.Dispatcher
	PushProvider push.Provider
	Retention    *workers.RetentionWorker
}

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("AutoMigrate failed", "error", err)
	}
	logger.Info("Database migrated")

	application := Build(cfg, gormDB)

	// Первый админ. SeedAdmin сам пропускает, если учетные данные
	// не заданы или админ уже есть.
	if err := application.Services.AuthService.SeedAdmin(gormDB, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, cfg.Seed.AdminName); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    address,
		Handler: application.Router,
	}

	go func() {
		logger.Info(fmt.Sprintf("Server starting on %s", address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application.Retention.Start(ctx)

	<-ctx.Done()
	stop()

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	// Диспетчер закрываем после HTTP-сервера: обработчики больше не
	// публикуют события, очередь доезжает до конца.
	if err := application.Dispatcher.Close(shutdownCtx); err != nil {
		logger.Error("Dispatcher shutdown error", "error", err)
	}
	if err := application.Services.EmailService.Close(); err != nil {
		logger.Error("Email provider close error", "error", err)
	}
	if err := application.PushProvider.Close(); err != nil {
		logger.Error("Push provider close error", "error", err)
	}
	logger.Info("Server stopped")
}

// Build поднимает весь граф зависимостей: репозитории, провайдеры
// доставки, диспетчер уведомлений, сервисы, ws-шлюз и маршруты.
func Build(cfg *config.Config, gormDB *gorm.DB) *App {
	// 1. Репозитории
	userRepo := repositories.NewUserRepository()
	studentRepo := repositories.NewStudentRepository()
	refreshTokenRepo := repositories.NewRefreshTokenRepository()
	deviceTokenRepo := repositories.NewDeviceTokenRepository()
	chatRepo := repositories.NewChatRepository()
	chatRequestRepo := repositories.NewChatRequestRepository()
	notificationRepo := repositories.NewNotificationRepository()
	reviewRepo := repositories.NewReviewRepository()

	// 2. Провайдеры доставки и presence
	tracker := presence.NewTracker()
	emailProvider := initializeEmailProvider(cfg)
	pushProvider := initializePushProvider(cfg)

	dispatcher := notifier.NewDispatcher(
		gormDB,
		notificationRepo,
		deviceTokenRepo,
		tracker,
		pushProvider,
		notifier.Config{
			DedupWindow:  time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
			CatchupLimit: cfg.Notifications.CatchupLimit,
			QueueSize:    cfg.Notifications.QueueSize,
		},
	)

	// 3. Сервисы
	identityService := services.NewIdentityService(userRepo, studentRepo, chatRequestRepo, tracker)
	authService := services.NewAuthService(userRepo, studentRepo, refreshTokenRepo, emailProvider)
	userService := services.NewUserService(userRepo, studentRepo, refreshTokenRepo)
	chatService := services.NewChatService(chatRepo, chatRequestRepo, reviewRepo, identityService, tracker, dispatcher)
	chatRequestService := services.NewChatRequestService(chatRequestRepo, studentRepo, userRepo, dispatcher, emailProvider)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, studentRepo, dispatcher)
	reviewService := services.NewReviewService(reviewRepo, studentRepo, userRepo, dispatcher, emailProvider)
	deviceService := services.NewDeviceService(deviceTokenRepo, userRepo, studentRepo)

	serviceContainer := &services.ServiceContainer{
		IdentityService:     identityService,
		AuthService:         authService,
		UserService:         userService,
		ChatService:         chatService,
		ChatRequestService:  chatRequestService,
		NotificationService: notificationService,
		ReviewService:       reviewService,
		DeviceService:       deviceService,
		EmailService:        emailProvider,
	}

	// 4. WebSocket-шлюз. Менеджер подключается к диспетчеру как
	// live-канал доставки.
	wsManager := ws.NewManager(tracker)
	dispatcher.SetLivePusher(wsManager)
	wsHandler := ws.NewHandler(wsManager, identityService, chatService, dispatcher)

	// 5. Хэндлеры и маршруты
	appHandlers := initializeHandlers(serviceContainer)
	authMW := middleware.AuthMiddleware(identityService)

	ginRouter := initializeGinRouter(cfg, gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler, authMW)

	retention := workers.NewRetentionWorker(
		gormDB, refreshTokenRepo, notificationRepo,
		cfg.Notifications.RetentionDays,
	)

	return &App{
		Router:       ginRouter,
		Services:     serviceContainer,
		Dispatcher:   dispatcher,
		PushProvider: pushProvider,
		Retention:    retention,
	}
}

func initializeHandlers(svc *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, svc.AuthService, svc.IdentityService),
		UserHandler:         handlers.NewUserHandler(baseHandler, svc.UserService, svc.AuthService),
		ContactHandler:      handlers.NewContactHandler(baseHandler, svc.IdentityService),
		ChatHandler:         handlers.NewChatHandler(baseHandler, svc.ChatService),
		ChatRequestHandler:  handlers.NewChatRequestHandler(baseHandler, svc.ChatRequestService),
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, svc.NotificationService),
		ReviewHandler:       handlers.NewReviewHandler(baseHandler, svc.ReviewService, svc.ChatService),
		DeviceHandler:       handlers.NewDeviceHandler(baseHandler, svc.DeviceService),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	// DBMiddleware стоит на всем движке: auth-middleware резолвит
	// идентичность через соединение из контекста.
	router.Use(middleware.DBMiddleware(db))
	return router
}

func initializeEmailProvider(cfg *config.Config) email.Provider {
	if cfg.Email.SMTPHost == "" || cfg.Email.SMTPUsername == "" {
		logger.Warn("SMTP is not configured, outgoing emails are dropped")
		return email.NewNoopProvider()
	}

	provider, err := email.NewGomailProvider(&email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	})
	if err != nil {
		logger.Fatal("Failed to initialize email provider", "error", err)
	}
	logger.Info("Email provider initialized", "host", cfg.Email.SMTPHost)
	return provider
}

func initializePushProvider(cfg *config.Config) push.Provider {
	if !cfg.Push.Enabled {
		logger.Warn("Push delivery is disabled, offline escalations are dropped")
		return push.NewNoopProvider()
	}

	provider, err := push.NewHTTPProvider(&push.HTTPConfig{
		Endpoint:  cfg.Push.Endpoint,
		ServerKey: cfg.Push.ServerKey,
		Timeout:   time.Duration(cfg.Push.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		logger.Fatal("Failed to initialize push provider", "error", err)
	}
	logger.Info("Push provider initialized", "endpoint", cfg.Push.Endpoint)
	return provider
}
