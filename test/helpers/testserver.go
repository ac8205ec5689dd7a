package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mentorhub_backend/database"
	"mentorhub_backend/internal/app"
	"mentorhub_backend/internal/config"
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// TestServer держит собранное приложение и подключение к тестовой БД.
// Запросы гоняются in-process через Router.ServeHTTP, а не через httptest.Server:
// так тест может подложить свою транзакцию в контекст запроса, и DBMiddleware
// выполнит хэндлер поверх нее вместо общего пула.
type TestServer struct {
	App *app.App
	DB  *gorm.DB
}

// NewTestServer подключается к тестовой БД, прогоняет миграции и собирает приложение
func NewTestServer(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	// Конфиг сам берет DATABASE_URL (уже с 'mentorhub_test') из os.Getenv()
	config.LoadConfig()
	cfg := config.GetConfig()
	logger.Init(cfg.Server.Env)
	dsn := cfg.Database.DSN

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("Не удалось подключиться к тестовой БД (%s): %v", dsn, err)
	}

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Не удалось выполнить AutoMigrate для тестовой БД: %v", err)
	}

	application := app.Build(cfg, db)

	log.Printf("Тестовое приложение собрано, тестовая БД (%s) настроена.", dsn)

	return &TestServer{
		App: application,
		DB:  db,
	}
}

// Close останавливает фоновые воркеры и закрывает соединение с БД
func (ts *TestServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts.App.Dispatcher.Close(ctx)

	sqlDB, _ := ts.DB.DB()
	sqlDB.Close()
}

// ClearTables очищает все таблицы приложения.
func (ts *TestServer) ClearTables() {
	log.Println("--- ОЧИСТКА ТАБЛИЦ ---")

	err := ts.DB.Exec("TRUNCATE TABLE users, students, refresh_tokens, device_tokens, conversations, messages, chat_requests, notifications, review_sessions RESTART IDENTITY CASCADE").Error
	if err != nil {
		log.Fatalf("Не удалось очистить таблицы: %v", err)
	}
}

// BeginTransaction открывает транзакцию для одного теста.
// Все изменения теста живут внутри нее и откатываются в RollbackTransaction,
// поэтому параллельные тесты не видят данных друг друга.
func (ts *TestServer) BeginTransaction(t *testing.T) *gorm.DB {
	tx := ts.DB.Begin()
	if tx.Error != nil {
		t.Fatalf("Не удалось открыть транзакцию: %v", tx.Error)
	}
	return tx
}

// RollbackTransaction откатывает транзакцию теста
func (ts *TestServer) RollbackTransaction(t *testing.T, tx *gorm.DB) {
	if err := tx.Rollback().Error; err != nil {
		t.Logf("Ошибка отката транзакции: %v", err)
	}
}

// SendRequest выполняет запрос к приложению внутри транзакции tx.
// Транзакция кладется в контекст запроса под contextkeys.DBContextKey,
// DBMiddleware находит ее там и отдает хэндлерам вместо пула.
func (ts *TestServer) SendRequest(t *testing.T, tx *gorm.DB, method, path, token string, body interface{}) (*http.Response, string) {
	var reqBody io.Reader = nil
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Ошибка кодирования JSON для запроса: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tx != nil {
		req = req.WithContext(context.WithValue(req.Context(), contextkeys.DBContextKey, tx))
	}

	rec := httptest.NewRecorder()
	ts.App.Router.ServeHTTP(rec, req)

	res := rec.Result()
	resBodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("Ошибка чтения тела ответа: %v", err)
	}
	defer res.Body.Close()

	return res, string(resBodyBytes)
}
