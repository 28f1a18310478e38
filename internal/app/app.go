package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go-logstore/internal/bootstrap"
	"go-logstore/internal/config"
	"go-logstore/internal/logging"
	"go-logstore/internal/middleware"
	"go-logstore/internal/repositories"
	routes "go-logstore/internal/routes"
	"go-logstore/internal/utils"

	"github.com/DeRuina/timberjack"
	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Run initializes and starts the application
func Run() error {
	// <<<< Record start time for App initialization
	initAppStartTime := time.Now()

	// --- 1. Load Configuration ---
	tempConfigLogger, _ := zap.NewProduction(zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	defer tempConfigLogger.Sync()

	cfg, err := config.LoadConfig(tempConfigLogger)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// --- 2. Create SHARED File Writer/Syncer for timberjack ---
	fileSyncer, err := newFileSyncer(cfg)
	if err != nil {
		return err
	}

	// --- 3. File/Console logger ---
	fileLogger := logging.NewFileLogger(cfg, fileSyncer)
	fileLogger.Info("======================================================================================")
	fileLogger.Info("File/Console application logger initialized",
		zap.String("environment", cfg.AppEnv),
		zap.String("configuredLevel", cfg.LogLevel),
		zap.String("logFile", cfg.LogFilePath),
	)
	utils.TraceConfigDetails(fileLogger, cfg)

	// --- 4. Open the log store; it serves from memory until the durable engine settles ---
	logRepo, err := bootstrap.OpenStore(cfg, fileLogger)
	if err != nil {
		fileLogger.Error("Failed to open log store", zap.Error(err))
		return err
	}

	// --- 5. Record logger writing into the store, one session per process ---
	recordLogger, err := logging.NewRecordLogger(cfg, logRepo, fileLogger, uuid.NewString())
	if err != nil {
		_ = logRepo.Close()
		return err
	}
	logging.SetGlobalLoggers(fileLogger, recordLogger)
	fileLogger.Info("Global application loggers (file/console and record) have been set.")

	// --- 6. Initialize Fiber App ---
	fileLogger.Info("Initializing Fiber application...")
	appFiber := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		Prefork:      cfg.Prefork,
		ErrorHandler: newErrorHandler(cfg),
	})

	// --- 7. Initialize Remaining Application Components (Bootstrap) ---
	components, err := bootstrap.InitializeAppComponents(cfg, fileLogger, recordLogger, logRepo)
	if err != nil {
		_ = logRepo.Close()
		fileLogger.Error("Failed to initialize application components", zap.Error(err))
		return err
	}

	// --- 8. Register Middleware ---
	registerMiddleware(appFiber, cfg, fileLogger, recordLogger)

	// --- 9. Setup Application Routes ---
	routes.SetupRoutes(appFiber, cfg, fileLogger, components)

	// --- 10. Start Retention Processor (only in the master process) ---
	if !fiber.IsChild() {
		fileLogger.Info("Master process starting RetentionProcessor...", zap.Int("pid", os.Getpid()))
		components.RetentionProcessor.Start()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreInitTimeout+time.Second)
			defer cancel()
			bootstrap.WaitForStore(ctx, logRepo, fileLogger)
			recordLogger.Info("Log store session started",
				zap.String("backend", logRepo.CurrentBackend().Backend),
				zap.String(logging.FieldTag, "lifecycle"),
			)
		}()
	} else {
		fileLogger.Info("Child process will not start its own RetentionProcessor instance.", zap.Int("pid", os.Getpid()))
	}

	// --- 11. Start Server & Graceful Shutdown ---
	serverCtx, cancelServerCtx := context.WithCancel(context.Background())
	defer cancelServerCtx()
	serverStopped := make(chan struct{})

	// <<<< Calculate initialization duration >>>>
	initAppDurationMs := time.Since(initAppStartTime).Milliseconds()

	go func() {
		defer close(serverStopped)
		listenAddr := ":" + cfg.Port
		fileLogger.Info(fmt.Sprintf("Completed initialization application in %d ms.", initAppDurationMs))
		fileLogger.Info("Starting Fiber server...",
			zap.String("address", listenAddr),
			zap.Bool("prefork_enabled", appFiber.Config().Prefork),
			zap.Int("pid", os.Getpid()),
			zap.String("app_env", cfg.AppEnv),
		)

		if err := appFiber.Listen(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fileLogger.Error("Server listener failed", zap.String("address", listenAddr), zap.Error(err))
			cancelServerCtx()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	select {
	case s := <-sig:
		fileLogger.Info("Shutdown signal received.", zap.String("signal", s.String()))
	case <-serverCtx.Done():
		fileLogger.Info("Server context cancelled, initiating shutdown.")
	}

	fileLogger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancelShutdown()

	if !fiber.IsChild() {
		fileLogger.Info("Master process stopping RetentionProcessor...", zap.Int("pid", os.Getpid()))
		components.RetentionProcessor.Stop()
	}

	if err := appFiber.ShutdownWithContext(shutdownCtx); err != nil {
		fileLogger.Error("Fiber server shutdown failed", zap.Error(err))
	} else {
		fileLogger.Info("Fiber server gracefully stopped.")
	}
	<-serverStopped
	fileLogger.Info("HTTP listener goroutine stopped.")

	closeStore(logRepo, fileLogger)
	syncLogger(fileLogger)
	fmt.Println("[INFO] Application shutdown complete.")
	return nil
}

func newFileSyncer(cfg *config.Config) (zapcore.WriteSyncer, error) {
	logDir := filepath.Dir(cfg.LogFilePath)
	if logDir != "." && logDir != "/" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to ensure log directory %s exists: %w", logDir, err)
		}
	}
	timberJackLogger := &timberjack.Logger{
		Filename:         cfg.LogFilePath,
		MaxSize:          cfg.LogMaxSize,
		MaxBackups:       cfg.LogMaxBackups,
		MaxAge:           cfg.LogMaxAge,
		Compress:         cfg.LogCompress,
		LocalTime:        true,
		RotationInterval: time.Duration(cfg.LogRotateInterval) * time.Hour,
	}
	fmt.Fprintf(os.Stderr, "[INFO] Shared file syncer created for path: %s with MaxSize: %d MB, RotateInterval: %d hours\n", cfg.LogFilePath, cfg.LogMaxSize, cfg.LogRotateInterval)
	return zapcore.AddSync(timberJackLogger), nil
}

func newErrorHandler(cfg *config.Config) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		lg := middleware.GetRequestFileLogger(c)
		code := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) && e != nil {
			code = e.Code
		}
		fields := []zap.Field{
			zap.Int("status", code),
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.String("ip", c.IP()),
			zap.Error(err),
		}
		if reqID := middleware.GetRequestID(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		if code == fiber.StatusNotFound {
			lg.Warn("Resource not found", fields...)
		} else {
			lg.Error("Generic ErrorHandler", fields...)
		}
		resp := fiber.Map{"error": "An unexpected error occurred"}
		if code < fiber.StatusInternalServerError && e != nil {
			resp["error"] = e.Message
		} else if cfg.AppEnv != "production" && err != nil {
			resp["detail"] = err.Error()
		}
		return c.Status(code).JSON(resp)
	}
}

func registerMiddleware(appFiber *fiber.App, cfg *config.Config, fileLogger, recordLogger *zap.Logger) {
	appFiber.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.LogLevel == "debug",
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			middleware.GetRequestFileLogger(c).Error("Panic recovered", zap.Any("panic_value", e))
		},
	}))
	fileLogger.Info("Configuring CORS", zap.String("origins", cfg.CORSAllowOrigins), zap.String("methods", cfg.CORSAllowMethods), zap.String("headers", cfg.CORSAllowHeaders))
	appFiber.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: cfg.CORSAllowMethods,
		AllowHeaders: cfg.CORSAllowHeaders,
	}))
	appFiber.Use(middleware.RequestLoggers(fileLogger, recordLogger))
	if cfg.RequestDebugLog || cfg.LogLevel == "debug" {
		appFiber.Use(middleware.RequestDebugLogger())
	}
	appFiber.Use(fiberzap.New(fiberzap.Config{
		Logger: fileLogger,
		Fields: []string{"status", "method", "url", "ip", "latency", "error"},
		FieldsFunc: func(c *fiber.Ctx) []zap.Field {
			fields := []zap.Field{zap.String("log_type", "access")}
			if reqID := middleware.GetRequestID(c); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
			return fields
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
	}))
}

func closeStore(repo *repositories.HybridLogRepository, logger *zap.Logger) {
	if err := repo.Close(); err != nil {
		logger.Error("Error closing log store", zap.Error(err))
		return
	}
	logger.Info("Log store closed.")
}

func syncLogger(fileLogger *zap.Logger) {
	fileLogger.Info("Syncing file/console logger before shutdown...")
	if errSync := fileLogger.Sync(); errSync != nil {
		errMsg := errSync.Error()
		if strings.Contains(errMsg, "handle is invalid") || strings.Contains(errMsg, "sync /dev/stdout") {
			// expected when stdout isn't available at exit
			return
		}
		fmt.Fprintf(os.Stderr, "[WARN] Error syncing file/console logger: %v\n", errSync)
	}
}
