package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported values for DATABASE_DRIVER
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Supported values for AUTH_MODE
const (
	AuthModeAuth0 = "auth0"
	AuthModeLocal = "local"
)

// Supported values for TRADE_TRANSITIONS
const (
	TransitionsPermissive = "permissive"
	TransitionsStrict     = "strict"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string
	DatabaseDriver     string
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	Port               string
	GoEnv              string
	AuthMode           string
	Auth0Domain        string
	Auth0Audience      string
	Auth0Scope         string
	JWTSecret          string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	UploadDir          string
	AvatarDir          string
	PublicBaseURL      string
	RedisAddr          string
	LockTTL            time.Duration
	LockWait           time.Duration
	KafkaBrokers       []string
	KafkaTradeTopic    string
	OTLPEndpoint       string
	TradeTransitions   string
	CORSAllowedOrigins []string
	LogLevel           string
}

var current *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// Deployed environments set variables directly
		if err := godotenv.Load(); err != nil {
			slog.Info("no .env file found, using system environment variables")
		}
	} else {
		slog.Info("loaded configuration", "file", envFile)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	SetConfig(cfg)
	return cfg, nil
}

// FromEnv builds a Config from the current process environment without
// reading any .env file.
func FromEnv() *Config {
	driver := strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres))
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" && driver == DriverSQLite {
		databaseURL = "barter.db"
	}

	return &Config{
		DatabaseURL:        databaseURL,
		DatabaseDriver:     driver,
		DBMaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 2),
		Port:               getEnv("PORT", "8080"),
		GoEnv:              getEnv("GO_ENV", "development"),
		AuthMode:           strings.ToLower(getEnv("AUTH_MODE", AuthModeAuth0)),
		Auth0Domain:        getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:      getEnv("AUTH0_AUDIENCE", ""),
		Auth0Scope:         getEnv("AUTH0_SCOPE", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
		AvatarDir:          getEnv("AVATAR_DIR", "./assets/avatars"),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		LockTTL:            getEnvDuration("LOCK_TTL", 10*time.Second),
		LockWait:           getEnvDuration("LOCK_WAIT", 5*time.Second),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTradeTopic:    getEnv("KAFKA_TRADE_TOPIC", "trade-events"),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TradeTransitions:   strings.ToLower(getEnv("TRADE_TRANSITIONS", TransitionsPermissive)),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.AuthMode {
	case AuthModeAuth0:
		if c.Auth0Domain == "" || c.Auth0Audience == "" {
			return fmt.Errorf("AUTH0_DOMAIN and AUTH0_AUDIENCE are required when AUTH_MODE=auth0")
		}
	case AuthModeLocal:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=local")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.AuthMode)
	}

	if c.TradeTransitions != TransitionsPermissive && c.TradeTransitions != TransitionsStrict {
		return fmt.Errorf("unsupported TRADE_TRANSITIONS %q", c.TradeTransitions)
	}

	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// UsesS3 reports whether uploaded images go to S3 rather than local disk.
func (c *Config) UsesS3() bool {
	return c.AWSS3Bucket != ""
}

// GetConfig returns the configuration set by Load or SetConfig
func GetConfig() *Config {
	return current
}

// SetConfig replaces the process configuration (primarily for testing)
func SetConfig(cfg *Config) {
	current = cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", raw)
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", raw)
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
