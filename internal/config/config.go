package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App           AppConfig
	Storage       StorageConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Logger        LoggerConfig
	Auth          AuthConfig
	LLM           LLMConfig
	PII           PIIConfig
	SLA           SLAConfig
	Notification  NotificationConfig
	ReferenceData string
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StorageConfig selects the message and ticket store.
type StorageConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines staff authentication parameters. AccessCodeHash is a
// bcrypt hash of the shared office access code; empty disables login.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AccessCodeHash        string
	BcryptCost            int
}

// LLMConfig configures the classification fallback.
type LLMConfig struct {
	Enabled         bool
	BaseURL         string
	Model           string
	APIKey          string
	TimeoutSeconds  int
	Threshold       float64
	CacheTTLMinutes int
}

// PIIConfig configures the masking failure policy.
type PIIConfig struct {
	FailClosed bool
}

// SLAConfig configures the violation monitor.
type SLAConfig struct {
	MonitorEnabled     bool
	MonitorCron        string
	UpcomingWindowHour int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	threshold, err := strconv.ParseFloat(getEnv("LLM_CONFIDENCE_THRESHOLD", "0.7"), 64)
	if err != nil || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("invalid LLM_CONFIDENCE_THRESHOLD: %q", os.Getenv("LLM_CONFIDENCE_THRESHOLD"))
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ai-secretary"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageMemory)),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			AccessCodeHash:        os.Getenv("AUTH_STAFF_ACCESS_CODE_HASH"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		LLM: LLMConfig{
			Enabled:         getEnvAsBool("LLM_ENABLED", true),
			BaseURL:         getEnv("LLM_BASE_URL", "http://localhost:11434/v1"),
			Model:           getEnv("LLM_MODEL", "mistral"),
			APIKey:          getEnv("LLM_API_KEY", "ollama"),
			TimeoutSeconds:  getEnvAsInt("LLM_TIMEOUT_SECONDS", 30),
			Threshold:       threshold,
			CacheTTLMinutes: getEnvAsInt("LLM_CACHE_TTL_MINUTES", 60),
		},
		PII: PIIConfig{
			FailClosed: getEnvAsBool("PII_FAIL_CLOSED", false),
		},
		SLA: SLAConfig{
			MonitorEnabled:     getEnvAsBool("SLA_MONITOR_ENABLED", true),
			MonitorCron:        getEnv("SLA_MONITOR_CRON", "@every 5m"),
			UpcomingWindowHour: getEnvAsInt("SLA_UPCOMING_WINDOW_HOURS", 24),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		ReferenceData: os.Getenv("REFERENCE_DATA_FILE"),
	}

	switch cfg.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if cfg.Postgres.DSN == "" {
			return nil, fmt.Errorf("STORAGE_DRIVER=postgres requires POSTGRES_DSN")
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: %q", cfg.Storage.Driver)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout bounds a single fallback call.
func (l LLMConfig) Timeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long fallback results stay cached.
func (l LLMConfig) CacheTTL() time.Duration {
	return time.Duration(l.CacheTTLMinutes) * time.Minute
}

// UpcomingWindow returns the look-ahead for deadline reports.
func (s SLAConfig) UpcomingWindow() time.Duration {
	if s.UpcomingWindowHour <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.UpcomingWindowHour) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
