package workers

import (
	"context"
	"time"

	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/repositories"

	"gorm.io/gorm"
)

// RetentionWorker чистит накопившийся мусор: истекшие refresh-токены
// и старые уведомления. Работает на собственном соединении, вне
// request-скоупа.
type RetentionWorker struct {
	db               *gorm.DB
	refreshTokenRepo repositories.RefreshTokenRepository
	notificationRepo repositories.NotificationRepository

	notificationDays int
}

func NewRetentionWorker(
	db *gorm.DB,
	refreshTokenRepo repositories.RefreshTokenRepository,
	notificationRepo repositories.NotificationRepository,
	notificationDays int,
) *RetentionWorker {
	if notificationDays <= 0 {
		notificationDays = 90
	}
	return &RetentionWorker{
		db:               db,
		refreshTokenRepo: refreshTokenRepo,
		notificationRepo: notificationRepo,
		notificationDays: notificationDays,
	}
}

// Start запускает фоновые задачи очистки
func (w *RetentionWorker) Start(ctx context.Context) {
	// Истекшие refresh-токены каждый час
	go w.cleanExpiredTokens(ctx)

	// Старые уведомления раз в сутки
	go w.cleanOldNotifications(ctx)
}

func (w *RetentionWorker) cleanExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Retention worker stopped")
			return
		case <-ticker.C:
			if err := w.refreshTokenRepo.CleanExpired(w.db); err != nil {
				logger.Error("Failed to clean expired refresh tokens", "error", err)
			}
		}
	}
}

func (w *RetentionWorker) cleanOldNotifications(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.notificationRepo.CleanOld(w.db, w.notificationDays); err != nil {
				logger.Error("Failed to clean old notifications", "error", err)
			}
		}
	}
}
