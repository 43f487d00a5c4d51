package config

import (
	"flag"
	"regexp"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Database & auth
	DatabaseDSN string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`

	// HTTP
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Storage
	UploadDir   string `env:"UPLOAD_DIR"`
	UploadMaxMB int    `env:"UPLOAD_MAX_MB"`

	// Bootstrap
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Derived
	ServerURL string `env:"-"`
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// флаги работают ТОЛЬКО если переменные из env не заданы
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (postgres DSN или путь к sqlite-файлу)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "адрес сервера в формате host:port")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS")
	flag.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "корневой каталог физического хранилища")
	flag.IntVar(&cfg.UploadMaxMB, "upload-max-mb", cfg.UploadMaxMB, "максимальный размер загружаемого файла, МБ")
	flag.StringVar(&cfg.AdminPassword, "admin-password", cfg.AdminPassword, "пароль администратора при первом запуске")

	flag.Parse()

	// Defaults
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "neoshare.db"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 100
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin123"
	}

	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8080"
	}

	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	return cfg
}
