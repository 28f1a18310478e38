package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go-logstore/internal/config"
	"go-logstore/internal/database"
	"go-logstore/internal/handlers"
	"go-logstore/internal/logging"
	"go-logstore/internal/repositories"
	"go-logstore/internal/services"

	"go.uber.org/zap"
)

// OpenStore builds the gateway named by the configuration and the log store
// façade over it. Initialization continues in the background.
func OpenStore(cfg *config.Config, logger *zap.Logger) (*repositories.HybridLogRepository, error) {
	gw, err := database.New(cfg.StoreDriver, cfg.StoreDBDir, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Opening log store",
		zap.String("driver", gw.Driver()),
		zap.String("platform", gw.Platform()),
		zap.String("path", filepath.Join(cfg.StoreDBDir, cfg.StoreDBName)),
	)
	return repositories.NewHybridLogRepository(gw, logger, repositories.DurableOptions{
		Name:          cfg.StoreDBName,
		InitTimeout:   cfg.StoreInitTimeout,
		RetryAttempts: cfg.StoreRetryAttempts,
		RetryDelay:    cfg.StoreRetryDelay,
	}), nil
}

// AppComponents holds the initialized components like handlers, processors, and repositories.
type AppComponents struct {
	LogRepo            *repositories.HybridLogRepository
	AdminService       services.AdminService
	LogHandler         *handlers.LogHandler
	AdminHandler       *handlers.AdminHandler
	HealthHandler      *handlers.HealthHandler
	RetentionProcessor *logging.RetentionProcessor
}

// InitializeAppComponents creates and wires up services, handlers and
// processors over an already opened log store.
func InitializeAppComponents(
	cfg *config.Config,
	fileLogger *zap.Logger,
	recordLogger *zap.Logger,
	logRepo *repositories.HybridLogRepository,
) (*AppComponents, error) {
	fileLogger.Info("Initializing application components: Services, Handlers, Processors...")

	// --- 1. Initialize Services ---
	pinHash, err := services.AdminPINHash(cfg.AdminPIN, cfg.AdminPINHash)
	if err != nil {
		return nil, fmt.Errorf("admin PIN: %w", err)
	}
	adminService := services.NewAdminService(services.AdminConfig{
		PINHash:     pinHash,
		MaxAttempts: cfg.AdminMaxAttempts,
		Lockout:     cfg.AdminLockout,
		JWTSecret:   cfg.JWTSecret,
		JWTExpires:  cfg.JWTExpires,
	}, fileLogger, recordLogger)
	fileLogger.Info("Services initialized.")

	// --- 2. Initialize Handlers ---
	logHandler := handlers.NewLogHandler(logRepo)
	adminHandler := handlers.NewAdminHandler(adminService)
	healthHandler := handlers.NewHealthHandler(logRepo)
	fileLogger.Info("Handlers initialized.")

	// --- 3. Initialize Processors ---
	retention := logging.NewRetentionProcessor(RetentionPolicyFromConfig(cfg), logRepo, fileLogger)
	fileLogger.Info("Processors initialized.")

	fileLogger.Info("Application components initialization complete.")
	return &AppComponents{
		LogRepo:            logRepo,
		AdminService:       adminService,
		LogHandler:         logHandler,
		AdminHandler:       adminHandler,
		HealthHandler:      healthHandler,
		RetentionProcessor: retention,
	}, nil
}

// RetentionPolicyFromConfig maps the retention settings onto a policy.
func RetentionPolicyFromConfig(cfg *config.Config) logging.RetentionPolicy {
	policy := logging.RetentionPolicy{
		MaxEntries: cfg.LogMaxEntries,
		Interval:   cfg.LogRetentionInterval,
	}
	if cfg.LogRetentionDays > 0 {
		policy.MaxAge = time.Duration(cfg.LogRetentionDays) * 24 * time.Hour
	}
	return policy
}

// WaitForStore blocks until the store settles or ctx ends and logs the outcome.
func WaitForStore(ctx context.Context, repo *repositories.HybridLogRepository, logger *zap.Logger) {
	state, err := repo.WaitReady(ctx)
	status := repo.CurrentBackend()
	if err != nil {
		logger.Warn("Log store still initializing, serving from memory meanwhile",
			zap.String("state", state.String()), zap.Error(err))
		return
	}
	logger.Info("Log store settled",
		zap.String("backend", status.Backend),
		zap.String("state", status.State),
		zap.String("platform", status.Platform),
	)
}
