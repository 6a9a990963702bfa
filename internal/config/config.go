package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Режимы хранения
const (
	ModeDatabase = "database"
	ModeSQLite   = "sqlite"
	ModeFile     = "file"
	ModeMemory   = "in-memory"
)

// Config хранит конфигурацию сервера
type Config struct {
	ServerAddress    string `json:"server_address"`
	BaseURL          string `json:"base_url"`
	FileStoragePath  string `json:"file_storage_path"`
	DatabaseDSN      string `json:"database_dsn"`
	SQLiteDSN        string `json:"sqlite_dsn"`
	PgMigrationsPath string `json:"pg_migrations_path"`
	EnableHTTPS      bool   `json:"enable_https"`
	TLSCertPath      string `json:"tls_cert_path"`
	TLSKeyPath       string `json:"tls_key_path"`
	GRPCAddress      string `json:"grpc_address"`
	LogLevel         string `json:"log_level"`

	JWTSecret         string        `json:"jwt_secret"`
	SessionTTL        time.Duration `json:"-"`
	OAuthClientID     string        `json:"oauth_client_id"`
	OAuthClientSecret string        `json:"oauth_client_secret"`
	OAuthRedirectURL  string        `json:"oauth_redirect_url"`
	OAuthUserInfoURL  string        `json:"oauth_userinfo_url"`
	FrontendURL       string        `json:"frontend_url"`

	ObjectStorageDir string `json:"object_storage_dir"`
	QRRenderer       string `json:"qr_renderer"`
	QREndpoint       string `json:"qr_endpoint"`
	QRSize           int    `json:"qr_size"`

	GeoEndpoint string        `json:"geo_endpoint"`
	GeoTimeout  time.Duration `json:"-"`

	CacheBackend     string        `json:"cache_backend"`
	CacheTTL         time.Duration `json:"-"`
	RedisAddr        string        `json:"redis_addr"`
	RedisPassword    string        `json:"redis_password"`
	ClickDedupWindow time.Duration `json:"-"`

	// RateLimitRPS лимит запросов в секунду с одного IP на создание ссылок и переходы; 0 отключает.
	RateLimitRPS   float64 `json:"rate_limit_rps"`
	RateLimitBurst int     `json:"rate_limit_burst"`

	// TrustProxyHeaders брать IP клиента из X-Forwarded-For / X-Real-IP; только за своим прокси.
	TrustProxyHeaders bool `json:"trust_proxy_headers"`

	Mode string `json:"-"`
}

// jsonKeys соответствие полей JSON-файла переменным окружения.
var jsonKeys = map[string]string{
	"server_address":      "SERVER_ADDRESS",
	"base_url":            "BASE_URL",
	"file_storage_path":   "FILE_STORAGE_PATH",
	"database_dsn":        "DATABASE_DSN",
	"sqlite_dsn":          "SQLITE_DSN",
	"pg_migrations_path":  "PG_MIGRATIONS_PATH",
	"enable_https":        "ENABLE_HTTPS",
	"tls_cert_path":       "TLS_CERT_PATH",
	"tls_key_path":        "TLS_KEY_PATH",
	"grpc_address":        "GRPC_ADDRESS",
	"log_level":           "LOG_LEVEL",
	"jwt_secret":          "JWT_SECRET",
	"session_ttl":         "SESSION_TTL",
	"oauth_client_id":     "OAUTH_CLIENT_ID",
	"oauth_client_secret": "OAUTH_CLIENT_SECRET",
	"oauth_redirect_url":  "OAUTH_REDIRECT_URL",
	"oauth_userinfo_url":  "OAUTH_USERINFO_URL",
	"frontend_url":        "FRONTEND_URL",
	"object_storage_dir":  "OBJECT_STORAGE_DIR",
	"qr_renderer":         "QR_RENDERER",
	"qr_endpoint":         "QR_ENDPOINT",
	"qr_size":             "QR_SIZE",
	"geo_endpoint":        "GEO_ENDPOINT",
	"geo_timeout":         "GEO_TIMEOUT",
	"cache_backend":       "CACHE_BACKEND",
	"cache_ttl":           "CACHE_TTL",
	"redis_addr":          "REDIS_ADDR",
	"redis_password":      "REDIS_PASSWORD",
	"click_dedup_window":  "CLICK_DEDUP_WINDOW",
	"rate_limit_rps":      "RATE_LIMIT_RPS",
	"rate_limit_burst":    "RATE_LIMIT_BURST",
	"trust_proxy_headers": "TRUST_PROXY_HEADERS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDRESS", "localhost:8080") // Значения по умолчанию
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("FILE_STORAGE_PATH", "")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SQLITE_DSN", "")
	v.SetDefault("PG_MIGRATIONS_PATH", "")
	v.SetDefault("ENABLE_HTTPS", false)
	v.SetDefault("TLS_CERT_PATH", "cert.pem")
	v.SetDefault("TLS_KEY_PATH", "key.pem")
	v.SetDefault("GRPC_ADDRESS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("OAUTH_CLIENT_ID", "")
	v.SetDefault("OAUTH_CLIENT_SECRET", "")
	v.SetDefault("OAUTH_REDIRECT_URL", "")
	v.SetDefault("OAUTH_USERINFO_URL", "https://api.github.com/user")
	v.SetDefault("FRONTEND_URL", "/dashboard")
	v.SetDefault("OBJECT_STORAGE_DIR", "qr-storage")
	v.SetDefault("QR_RENDERER", "remote")
	v.SetDefault("QR_ENDPOINT", "https://api.qrserver.com/v1/create-qr-code/")
	v.SetDefault("QR_SIZE", 180)
	v.SetDefault("GEO_ENDPOINT", "https://ipapi.co")
	v.SetDefault("GEO_TIMEOUT", "2s")
	v.SetDefault("CACHE_BACKEND", "ristretto")
	v.SetDefault("CACHE_TTL", "1h")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("CLICK_DEDUP_WINDOW", "0s")
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("TRUST_PROXY_HEADERS", false)
}

// NewConfig инициализирует конфигурацию из .env, окружения, JSON-файла и аргументов командной строки
func NewConfig() (*Config, error) {
	// .env не переопределяет уже заданные переменные окружения
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	return Load(os.Args[1:])
}

// Load собирает конфигурацию. Приоритет: флаги, окружение, JSON-файл, значения по умолчанию.
func Load(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	fs := flag.NewFlagSet("shortener", flag.ContinueOnError)
	serverAddress := fs.String("a", "", "server address")
	baseURL := fs.String("b", "", "base URL")
	fileStoragePath := fs.String("f", "", "file storage path (JSON lines)")
	databaseDSN := fs.String("d", "", "PostgreSQL DSN")
	sqliteDSN := fs.String("l", "", "SQLite or libSQL DSN")
	enableHTTPS := fs.Bool("s", false, "enable HTTPS")
	tlsCertPath := fs.String("cert", "", "path to TLS certificate")
	tlsKeyPath := fs.String("key", "", "path to TLS key")
	grpcAddress := fs.String("g", "", "gRPC health server address")
	configPath := fs.String("c", "", "path to JSON config file")
	fs.StringVar(configPath, "config", "", "path to JSON config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Загружаем JSON-конфигурацию (если указана)
	if *configPath == "" {
		*configPath = os.Getenv("CONFIG")
	}
	if *configPath != "" {
		if err := applyJSON(v, *configPath); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		ServerAddress:     v.GetString("SERVER_ADDRESS"),
		BaseURL:           v.GetString("BASE_URL"),
		FileStoragePath:   v.GetString("FILE_STORAGE_PATH"),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		SQLiteDSN:         v.GetString("SQLITE_DSN"),
		PgMigrationsPath:  v.GetString("PG_MIGRATIONS_PATH"),
		EnableHTTPS:       v.GetBool("ENABLE_HTTPS"),
		TLSCertPath:       v.GetString("TLS_CERT_PATH"),
		TLSKeyPath:        v.GetString("TLS_KEY_PATH"),
		GRPCAddress:       v.GetString("GRPC_ADDRESS"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		SessionTTL:        v.GetDuration("SESSION_TTL"),
		OAuthClientID:     v.GetString("OAUTH_CLIENT_ID"),
		OAuthClientSecret: v.GetString("OAUTH_CLIENT_SECRET"),
		OAuthRedirectURL:  v.GetString("OAUTH_REDIRECT_URL"),
		OAuthUserInfoURL:  v.GetString("OAUTH_USERINFO_URL"),
		FrontendURL:       v.GetString("FRONTEND_URL"),
		ObjectStorageDir:  v.GetString("OBJECT_STORAGE_DIR"),
		QRRenderer:        v.GetString("QR_RENDERER"),
		QREndpoint:        v.GetString("QR_ENDPOINT"),
		QRSize:            v.GetInt("QR_SIZE"),
		GeoEndpoint:       v.GetString("GEO_ENDPOINT"),
		GeoTimeout:        v.GetDuration("GEO_TIMEOUT"),
		CacheBackend:      v.GetString("CACHE_BACKEND"),
		CacheTTL:          v.GetDuration("CACHE_TTL"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		ClickDedupWindow:  v.GetDuration("CLICK_DEDUP_WINDOW"),
		RateLimitRPS:      v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:    v.GetInt("RATE_LIMIT_BURST"),
		TrustProxyHeaders: v.GetBool("TRUST_PROXY_HEADERS"),
	}

	// Флаги важнее переменных окружения
	override := func(flagVal string, target *string) {
		if flagVal != "" {
			*target = flagVal
		}
	}
	override(*serverAddress, &cfg.ServerAddress)
	override(*baseURL, &cfg.BaseURL)
	override(*fileStoragePath, &cfg.FileStoragePath)
	override(*databaseDSN, &cfg.DatabaseDSN)
	override(*sqliteDSN, &cfg.SQLiteDSN)
	override(*tlsCertPath, &cfg.TLSCertPath)
	override(*tlsKeyPath, &cfg.TLSKeyPath)
	override(*grpcAddress, &cfg.GRPCAddress)
	if *enableHTTPS {
		cfg.EnableHTTPS = true
	}

	cfg.Mode = cfg.detectMode()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}
	return cfg, nil
}

// applyJSON кладёт значения из файла под переменные окружения.
func applyJSON(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("не удалось прочитать JSON-файл конфигурации %q: %w", path, err)
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("ошибка разбора JSON-файла конфигурации: %w", err)
	}
	for k, val := range raw {
		if key, ok := jsonKeys[k]; ok {
			v.SetDefault(key, val)
		}
	}
	return nil
}

// Определяем режим работы
func (cfg *Config) detectMode() string {
	switch {
	case cfg.DatabaseDSN != "":
		return ModeDatabase
	case cfg.SQLiteDSN != "":
		return ModeSQLite
	case cfg.FileStoragePath != "":
		return ModeFile
	default:
		return ModeMemory
	}
}

// Validate проверяет корректность конфигурации
func (cfg *Config) Validate() error {
	if cfg.ServerAddress == "" {
		return errors.New("адрес сервера не может быть пустым")
	}
	if cfg.BaseURL == "" {
		return errors.New("базовый URL не может быть пустым")
	}
	if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("некорректный базовый URL %q", cfg.BaseURL)
	}
	if cfg.EnableHTTPS && (cfg.TLSCertPath == "" || cfg.TLSKeyPath == "") {
		return errors.New("для HTTPS нужны сертификат и ключ")
	}
	switch cfg.QRRenderer {
	case "remote", "local":
	default:
		return fmt.Errorf("неизвестный QR_RENDERER %q", cfg.QRRenderer)
	}
	switch cfg.CacheBackend {
	case "ristretto", "none":
	case "redis":
		if cfg.RedisAddr == "" {
			return errors.New("для CACHE_BACKEND=redis нужен REDIS_ADDR")
		}
	default:
		return fmt.Errorf("неизвестный CACHE_BACKEND %q", cfg.CacheBackend)
	}
	if cfg.ClickDedupWindow < 0 {
		return errors.New("CLICK_DEDUP_WINDOW не может быть отрицательным")
	}
	if cfg.RateLimitRPS < 0 || (cfg.RateLimitRPS > 0 && cfg.RateLimitBurst < 1) {
		return errors.New("некорректные RATE_LIMIT_RPS или RATE_LIMIT_BURST")
	}
	if cfg.ObjectStorageDir == "" {
		return errors.New("каталог хранилища объектов не может быть пустым")
	}
	return nil
}

// Fields поля для лога при старте; секреты не выводятся.
func (cfg *Config) Fields() []zap.Field {
	return []zap.Field{
		zap.String("server_address", cfg.ServerAddress),
		zap.String("base_url", cfg.BaseURL),
		zap.String("mode", cfg.Mode),
		zap.String("file_storage_path", cfg.FileStoragePath),
		zap.Bool("database", cfg.DatabaseDSN != ""),
		zap.Bool("enable_https", cfg.EnableHTTPS),
		zap.String("grpc_address", cfg.GRPCAddress),
		zap.String("qr_renderer", cfg.QRRenderer),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.Duration("click_dedup_window", cfg.ClickDedupWindow),
		zap.Float64("rate_limit_rps", cfg.RateLimitRPS),
		zap.Bool("trust_proxy_headers", cfg.TrustProxyHeaders),
	}
}
