package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lemonade/internal/backend"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Load reads .env into the process environment. A missing file only logs.
func Load(logger *zap.Logger) {
	if err := godotenv.Load(".env"); err != nil {
		logger.Info("⚠️ no .env file found, using system environment")
		return
	}
	logger.Info("✅ .env loaded")
}

// ==================== SERVER ====================

type Scylla struct {
	Hosts    []string
	Keyspace string
	Username string
	Password string
	Timeout  time.Duration
	NumConns int
}

type Minio struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Server struct {
	Env            string
	LogLevel       string
	Port           string
	AllowedOrigins []string

	// StoreBackend is "scylla", or "memory" for local development.
	StoreBackend string

	Scylla Scylla

	RedisAddr     string
	RedisPassword string

	ElasticURL      string
	ElasticUser     string
	ElasticPassword string
	ProductIndex    string

	Minio Minio
	SMTP  SMTP

	ShopName  string
	MpesaTill string
	AdminKey  string

	ProductCacheTTL time.Duration
	OrderRateLimit  int
	APIRateLimit    int
	RateWindow      time.Duration
}

// ServerFromEnv reads the backend settings from the environment.
func ServerFromEnv() Server {
	return Server{
		Env:            getenv("APP_ENV", "development"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		Port:           getenv("PORT", "3000"),
		AllowedOrigins: splitList(getenv("CORS_ORIGINS", "*")),
		StoreBackend:   getenv("STORE_BACKEND", "scylla"),
		Scylla: Scylla{
			Hosts:    splitList(getenv("SCYLLA_HOSTS", "127.0.0.1")),
			Keyspace: getenv("SCYLLA_KEYSPACE", "lemonade"),
			Username: os.Getenv("SCYLLA_USERNAME"),
			Password: os.Getenv("SCYLLA_PASSWORD"),
			Timeout:  getDuration("SCYLLA_TIMEOUT", 5*time.Second),
			NumConns: getInt("SCYLLA_NUM_CONNS", 4),
		},
		RedisAddr:       getenv("REDIS_HOST", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		ElasticURL:      getenv("ELASTIC_URL", "http://localhost:9200"),
		ElasticUser:     os.Getenv("ELASTIC_USER"),
		ElasticPassword: os.Getenv("ELASTIC_PASSWORD"),
		ProductIndex:    getenv("ELASTIC_PRODUCT_INDEX", "products"),
		Minio: Minio{
			Endpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getenv("MINIO_BUCKET", "lemonade-products"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
			PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		},
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("SMTP_FROM", "orders@lemonade.local"),
		},
		ShopName:        getenv("SHOP_NAME", "Lemonade"),
		MpesaTill:       os.Getenv("MPESA_TILL_NUMBER"),
		AdminKey:        os.Getenv("ADMIN_API_KEY"),
		ProductCacheTTL: getDuration("PRODUCT_CACHE_TTL", 5*time.Minute),
		OrderRateLimit:  getInt("ORDER_RATE_LIMIT", 5),
		APIRateLimit:    getInt("API_RATE_LIMIT", 120),
		RateWindow:      getDuration("RATE_WINDOW", time.Minute),
	}
}

// MailEnabled reports whether order confirmations can be sent.
func (s Server) MailEnabled() bool {
	return s.SMTP.Host != ""
}

// ==================== STOREFRONT ====================

const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Storage struct {
	Backend     string `yaml:"backend"`
	Dir         string `yaml:"dir"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// Storefront configures the line-command storefront.
type Storefront struct {
	Env            string        `yaml:"env"`
	LogLevel       string        `yaml:"log_level"`
	BaseURLs       []string      `yaml:"base_urls"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AdminKey       string        `yaml:"admin_key"`
	Storage        Storage       `yaml:"storage"`
}

// DefaultStorefront keeps state under ~/.lemonade and talks to the local
// development server.
func DefaultStorefront() Storefront {
	dir := ".lemonade"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".lemonade")
	}
	return Storefront{
		Env:            "development",
		LogLevel:       "warn",
		BaseURLs:       []string{backend.LocalBaseURL},
		RequestTimeout: 10 * time.Second,
		Storage: Storage{
			Backend:     StorageFile,
			Dir:         dir,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "storefront:",
		},
	}
}

// LoadStorefront starts from the defaults, applies the YAML file at path
// when path is set, then environment overrides. The local development
// server always ends the candidate list.
func LoadStorefront(path string) (Storefront, error) {
	cfg := DefaultStorefront()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("LEMONADE_BASE_URLS"); v != "" {
		cfg.BaseURLs = splitList(v)
	}
	if v := os.Getenv("LEMONADE_STORAGE"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("LEMONADE_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("LEMONADE_REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("LEMONADE_ADMIN_KEY"); v != "" {
		cfg.AdminKey = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.BaseURLs = withLocalFallback(cfg.BaseURLs)
	return cfg, cfg.Validate()
}

func (s Storefront) Validate() error {
	switch s.Storage.Backend {
	case StorageFile:
		if s.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the file backend")
		}
	case StorageRedis:
		if s.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis backend")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", s.Storage.Backend)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	return nil
}

func withLocalFallback(urls []string) []string {
	out := make([]string, 0, len(urls)+1)
	for _, u := range urls {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u != "" && u != backend.LocalBaseURL {
			out = append(out, u)
		}
	}
	return append(out, backend.LocalBaseURL)
}

// ==================== HELPERS ====================

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
