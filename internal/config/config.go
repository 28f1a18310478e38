package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap" // Use logger for loading errors
)

const (
	defaultJWTSecret = "default-secret"
	defaultAdminPIN  = "1234"
)

// Config holds all configuration for the application
type Config struct {
	AppEnv           string
	AppName          string
	Port             string
	Prefork          bool
	CORSAllowOrigins string
	CORSAllowMethods string
	CORSAllowHeaders string
	JWTSecret        string
	JWTExpires       time.Duration

	AdminPIN         string // plain PIN, hashed at startup when AdminPINHash is empty
	AdminPINHash     string // bcrypt hash
	AdminMaxAttempts int
	AdminLockout     time.Duration

	StoreDriver        string // sqlite, duckdb or memory
	StoreDBDir         string
	StoreDBName        string
	StoreInitTimeout   time.Duration
	StoreRetryAttempts int
	StoreRetryDelay    time.Duration

	LogFilePath       string
	LogLevel          string
	RecordLogLevel    string // minimum level persisted to the log store
	LogRotateInterval int    // Hour
	LogMaxSize        int    // MB
	LogMaxBackups     int
	LogMaxAge         int // Days
	LogCompress       bool
	RequestDebugLog   bool

	LogRetentionDays     int
	LogMaxEntries        int
	LogRetentionInterval time.Duration
}

// LoadConfig reads configuration from environment variables or .env file
func LoadConfig(logger *zap.Logger) (*Config, error) { // logger can be nil here
	loadEnvFile(logger)

	cfg := &Config{
		AppEnv:     getEnv("APP_ENV", "local"),
		AppName:    getEnv("APP_NAME", "go-logstore"),
		Port:       getEnv("PORT", "3000"),
		Prefork:    getEnvAsBool("PREFORK", false),
		JWTSecret:  getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpires: time.Duration(getEnvAsInt("JWT_EXPIRES_MINUTES", 60)) * time.Minute,

		AdminPIN:         getEnv("ADMIN_PIN", ""),
		AdminPINHash:     getEnv("ADMIN_PIN_HASH", ""),
		AdminMaxAttempts: getEnvAsInt("ADMIN_MAX_ATTEMPTS", 3),
		AdminLockout:     time.Duration(getEnvAsInt("ADMIN_LOCKOUT_MINUTES", 15)) * time.Minute,

		// --- Load Store Settings ---
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		StoreDBDir:         getEnv("STORE_DB_DIR", "./data"),
		StoreDBName:        getEnv("STORE_DB_NAME", "logstore.db"),
		StoreInitTimeout:   time.Duration(getEnvAsInt("STORE_INIT_TIMEOUT_SECONDS", 30)) * time.Second,
		StoreRetryAttempts: getEnvAsInt("STORE_RETRY_ATTEMPTS", 0),
		StoreRetryDelay:    time.Duration(getEnvAsInt("STORE_RETRY_DELAY_MS", 100)) * time.Millisecond,
		// --- End Load Store Settings ---

		LogFilePath:       getEnv("LOG_FILE_PATH", "./logs/app.log"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		RecordLogLevel:    strings.ToLower(getEnv("RECORD_LOG_LEVEL", "info")),
		LogRotateInterval: getEnvAsInt("LOG_ROTATE_INTERVAL", 1),
		LogMaxSize:        getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups:     getEnvAsInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:         getEnvAsInt("LOG_MAX_AGE", 30),
		LogCompress:       getEnvAsBool("LOG_COMPRESS", false),
		RequestDebugLog:   getEnvAsBool("REQUEST_DEBUG_LOG", false),

		// --- Load CORS Settings ---
		// Default AllowOrigins to "*" for local, empty for others (forcing explicit setting)
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", func() string {
			if getEnv("APP_ENV", "local") == "local" || getEnv("APP_ENV", "local") == "development" {
				return "*" // Be permissive in local/dev
			}
			return "" // Force setting in prod/other envs
		}()),
		CORSAllowMethods: getEnv("CORS_ALLOW_METHODS", "GET,POST,HEAD,DELETE"),
		CORSAllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Type,Accept,Authorization"),
		// --- End Load CORS ---

		// --- Load Retention Settings ---
		LogRetentionDays:     getEnvAsInt("LOG_RETENTION_DAYS", 30),
		LogMaxEntries:        getEnvAsInt("LOG_MAX_ENTRIES", 10000),
		LogRetentionInterval: time.Duration(getEnvAsInt("LOG_RETENTION_INTERVAL_MINUTES", 60)) * time.Minute,
		// --- End Load Retention Settings ---
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "dpanic": true, "panic": true, "fatal": true}
	if !validLevels[cfg.LogLevel] {
		if logger != nil {
			logger.Warn("Invalid LOG_LEVEL specified, defaulting to 'info'", zap.String("invalidLevel", cfg.LogLevel))
		}
		cfg.LogLevel = "info"
	}
	if !validLevels[cfg.RecordLogLevel] {
		if logger != nil {
			logger.Warn("Invalid RECORD_LOG_LEVEL specified, defaulting to 'info'", zap.String("invalidLevel", cfg.RecordLogLevel))
		}
		cfg.RecordLogLevel = "info"
	}

	switch cfg.StoreDriver {
	case "sqlite", "sqlite3", "duckdb", "memory", "none", "disabled":
	default:
		return nil, fmt.Errorf("STORE_DRIVER %q is not supported (sqlite, duckdb, memory)", cfg.StoreDriver)
	}
	if cfg.AdminMaxAttempts < 1 {
		return nil, fmt.Errorf("ADMIN_MAX_ATTEMPTS must be at least 1, got %d", cfg.AdminMaxAttempts)
	}
	if cfg.StoreRetryAttempts < 0 {
		cfg.StoreRetryAttempts = 0
	}

	if cfg.JWTSecret == defaultJWTSecret {
		if logger != nil {
			logger.Warn("JWT_SECRET is using the default value. Please set a strong secret in production.")
		}
	}
	if cfg.AdminPIN == "" && cfg.AdminPINHash == "" {
		if cfg.AppEnv != "local" && cfg.AppEnv != "development" {
			return nil, fmt.Errorf("ADMIN_PIN or ADMIN_PIN_HASH must be set in production environments")
		}
		if logger != nil {
			logger.Warn("ADMIN_PIN is not set, using the default PIN. Set ADMIN_PIN_HASH in production.")
		}
		cfg.AdminPIN = defaultAdminPIN
	}
	// Add warning for default/empty CORS origins in production
	if cfg.AppEnv != "local" && cfg.AppEnv != "development" && (cfg.CORSAllowOrigins == "*" || cfg.CORSAllowOrigins == "") {
		if logger != nil {
			logger.Warn("CORS_ALLOW_ORIGINS is set to '*' or is empty in a non-local/dev environment. This is insecure. Set specific origins for production.")
		}
		return nil, fmt.Errorf("CORS_ALLOW_ORIGINS must be set explicitly in production environments")
	}

	return cfg, nil
}

func loadEnvFile(logger *zap.Logger) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "local" // Default to local if not set
	}

	envFileName := fmt.Sprintf(".env.%s", appEnv)
	if _, err := os.Stat(envFileName); err == nil {
		if err := godotenv.Load(envFileName); err != nil {
			if logger != nil {
				logger.Warn("Error loading .env file, continuing with environment variables", zap.String("file", envFileName), zap.Error(err))
			}
		} else if logger != nil {
			logger.Info("Loaded configuration", zap.String("file", envFileName))
		}
		return
	}
	if appEnv != "local" {
		if logger != nil {
			logger.Warn("No specific .env file found for environment, relying on environment variables or defaults", zap.String("environment", appEnv))
		}
		return
	}
	if logger != nil {
		logger.Warn(".env.local not found, relying on environment variables or defaults")
	}
}

// Helper function to get env var or default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get env var as int or default
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// Helper function to get env var as bool or default
func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
