package utils

import (
	"fmt"

	"go-logstore/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TraceConfigDetails(logger *zap.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		fmt.Println("[WARN] logger or config is nil in TraceConfigDetails")
		return
	}
	fields := []zapcore.Field{
		zap.String("AppEnv", cfg.AppEnv),
		zap.String("AppName", cfg.AppName),
		zap.String("Port", cfg.Port),
		zap.Bool("Prefork", cfg.Prefork),
		zap.String("JWTSecret", MaskSecret(cfg.JWTSecret, "default-secret")),
		zap.Duration("JWTExpires", cfg.JWTExpires),
		zap.String("AdminPIN", MaskSecret(cfg.AdminPIN, "1234")),
		zap.Bool("AdminPINHash_Set", cfg.AdminPINHash != ""),
		zap.Int("AdminMaxAttempts", cfg.AdminMaxAttempts),
		zap.Duration("AdminLockout", cfg.AdminLockout),
		zap.String("Store_Driver", cfg.StoreDriver),
		zap.String("Store_Location", DescribeStoreLocation(cfg.StoreDriver, cfg.StoreDBDir, cfg.StoreDBName)),
		zap.Duration("Store_InitTimeout", cfg.StoreInitTimeout),
		zap.Int("Store_RetryAttempts", cfg.StoreRetryAttempts),
		zap.Duration("Store_RetryDelay", cfg.StoreRetryDelay),
		zap.String("LogFilePath", cfg.LogFilePath),
		zap.String("LogLevel", cfg.LogLevel),
		zap.String("RecordLogLevel", cfg.RecordLogLevel),
		zap.Int("LogRotateIntervalHours", cfg.LogRotateInterval),
		zap.Int("LogMaxSizeMB", cfg.LogMaxSize),
		zap.Int("LogMaxBackups", cfg.LogMaxBackups),
		zap.Int("LogMaxAgeDays", cfg.LogMaxAge),
		zap.Bool("LogCompress", cfg.LogCompress),
		zap.Int("Retention_Days", cfg.LogRetentionDays),
		zap.Int("Retention_MaxEntries", cfg.LogMaxEntries),
		zap.Duration("Retention_Interval", cfg.LogRetentionInterval),
		zap.String("CORS_AllowOrigins", cfg.CORSAllowOrigins),
		zap.String("CORS_AllowMethods", cfg.CORSAllowMethods),
		zap.String("CORS_AllowHeaders", cfg.CORSAllowHeaders),
	}
	logger.Debug("Loaded application configuration details", fields...)
}
