package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret     string `yaml:"secret"`
		AccessTTL  int    `yaml:"access_ttl"`  // минуты
		RefreshTTL int    `yaml:"refresh_ttl"` // часы
	} `yaml:"jwt"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
	} `yaml:"email"`

	Push struct {
		Enabled   bool   `yaml:"enabled"`
		Endpoint  string `yaml:"endpoint"`
		ServerKey string `yaml:"server_key"`
		TimeoutMS int    `yaml:"timeout_ms"`
	} `yaml:"push"`

	Notifications struct {
		DedupWindowSeconds int `yaml:"dedup_window_seconds"`
		CatchupLimit       int `yaml:"catchup_limit"`
		QueueSize          int `yaml:"queue_size"`
		RetentionDays      int `yaml:"retention_days"`
	} `yaml:"notifications"`

	WS struct {
		ReadBufferSize  int `yaml:"read_buffer_size"`
		WriteBufferSize int `yaml:"write_buffer_size"`
		SendBufferSize  int `yaml:"send_buffer_size"`
		MaxMessageSize  int `yaml:"max_message_size"`
	} `yaml:"ws"`

	Seed struct {
		AdminEmail    string `yaml:"admin_email"`
		AdminPassword string `yaml:"admin_password"`
		AdminName     string `yaml:"admin_name"`
	} `yaml:"seed"`
}

var AppConfig *Config

// LoadConfig загружает конфигурацию из config.yaml или из переменных
// окружения (режим без файла — переключается по наличию DATABASE_URL).
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")
	serverEnv := os.Getenv("SERVER_ENV")
	portStr := os.Getenv("SERVER_PORT")
	jwtSecret := os.Getenv("JWT_SECRET")

	if dbURL == "" {
		log.Println("Загрузка из config.yaml")

		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	log.Println("✅ Загрузка конфигурации из ПЕРЕМЕННЫХ ОКРУЖЕНИЯ")

	cfg.Database.DSN = dbURL
	cfg.Server.Env = serverEnv
	cfg.Server.Port, _ = strconv.Atoi(portStr)
	cfg.JWT.Secret = jwtSecret
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "test-secret"
	}

	cfg.Email.SMTPHost = "smtp.test.com"
	cfg.Email.SMTPPort = 587
	cfg.Email.FromEmail = "no-reply@mentorhub.test"
	cfg.Email.FromName = "MentorHub"

	cfg.Push.Enabled = false

	cfg.Seed.AdminEmail = os.Getenv("SEED_ADMIN_EMAIL")
	cfg.Seed.AdminPassword = os.Getenv("SEED_ADMIN_PASSWORD")

	applyDefaults(&cfg)
	AppConfig = &cfg
}

// applyDefaults проставляет значения по умолчанию для незаполненных полей.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.JWT.AccessTTL == 0 {
		cfg.JWT.AccessTTL = 60 // минут
	}
	if cfg.JWT.RefreshTTL == 0 {
		cfg.JWT.RefreshTTL = 24 * 7 // часов
	}
	if cfg.Push.TimeoutMS == 0 {
		cfg.Push.TimeoutMS = 5000
	}
	if cfg.Notifications.DedupWindowSeconds == 0 {
		cfg.Notifications.DedupWindowSeconds = 60
	}
	if cfg.Notifications.CatchupLimit == 0 {
		cfg.Notifications.CatchupLimit = 20
	}
	if cfg.Notifications.QueueSize == 0 {
		cfg.Notifications.QueueSize = 256
	}
	if cfg.Notifications.RetentionDays == 0 {
		cfg.Notifications.RetentionDays = 90
	}
	if cfg.WS.ReadBufferSize == 0 {
		cfg.WS.ReadBufferSize = 1024
	}
	if cfg.WS.WriteBufferSize == 0 {
		cfg.WS.WriteBufferSize = 1024
	}
	if cfg.WS.SendBufferSize == 0 {
		cfg.WS.SendBufferSize = 64
	}
	if cfg.WS.MaxMessageSize == 0 {
		cfg.WS.MaxMessageSize = 8192
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
