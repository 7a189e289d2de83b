package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	JWTSecret  string
	BcryptCost int

	StoreBackend string
	UsersBackend string
	MongoURI     string
	MongoDB      string
	PostgresDSN  string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	CORSOrigins []string
}

// Backends accepted by STORE_BACKEND and USERS_BACKEND.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = gotenv.Load()

	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		AppEnv:         strings.ToLower(getenv("APP_ENV", "development")),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		JWTSecret:      getenv("JWT_SECRET", ""),
		StoreBackend:   getenv("STORE_BACKEND", BackendMongo),
		UsersBackend:   getenv("USERS_BACKEND", BackendMongo),
		MongoURI:       getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getenv("MONGO_DB", "expense_tracker"),
		PostgresDSN:    getenv("POSTGRES_DSN", ""),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "expense-receipts"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",
		CORSOrigins:    splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
	}

	cost, err := strconv.Atoi(getenv("BCRYPT_COST", "10"))
	if err != nil {
		return nil, fmt.Errorf("BCRYPT_COST: %w", err)
	}
	cfg.BcryptCost = cost

	ttl, err := time.ParseDuration(getenv("CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = ttl

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	switch c.StoreBackend {
	case BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND %q is not supported", c.StoreBackend)
	}
	switch c.UsersBackend {
	case BackendMongo:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when USERS_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("USERS_BACKEND %q is not supported", c.UsersBackend)
	}
	return nil
}

// CacheEnabled reports whether the Redis list cache should be wired.
func (c *Config) CacheEnabled() bool { return c.RedisAddr != "" }

// ReceiptsEnabled reports whether MinIO receipt storage should be wired.
func (c *Config) ReceiptsEnabled() bool { return c.MinioEndpoint != "" }

// Production is true when APP_ENV=production.
func (c *Config) Production() bool { return c.AppEnv == "production" }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
