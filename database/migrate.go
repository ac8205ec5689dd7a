package database

import (
	"fmt"

	"mentorhub_backend/internal/config"
	"mentorhub_backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var gormDB *gorm.DB

// ConnectGorm инициализирует GORM с DSN из config.yaml
func ConnectGorm() (*gorm.DB, error) {
	if gormDB != nil {
		return gormDB, nil
	}

	cfg := config.GetConfig()
	dsn := cfg.Database.DSN

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	gormDB = db
	return db, nil
}

// AutoMigrate выполняет миграцию всех моделей. Порядок учитывает
// внешние ключи: сначала коллекции идентичностей, затем зависимые таблицы.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Student{},
		&models.RefreshToken{},
		&models.DeviceToken{},
		&models.Conversation{},
		&models.Message{},
		&models.ChatRequest{},
		&models.Notification{},
		&models.ReviewSession{},
	)
}
