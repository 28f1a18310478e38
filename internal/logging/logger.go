package logging

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go-logstore/internal/config"
	"go-logstore/internal/models"
	"go-logstore/internal/repositories"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field keys the record core lifts out of the data payload.
const (
	FieldSessionID = "session_id"
	FieldUserID    = "user_id"
	FieldTag       = "tag"
)

var (
	globalFileLogger   *zap.Logger
	globalRecordLogger *zap.Logger // Can be a Nop logger
	globalLoggersMu    sync.RWMutex
)

// AppLoggers holds the different logger instances for the application.
type AppLoggers struct {
	File   *zap.Logger // console + rotating file; used by the store itself
	Record *zap.Logger // persists entries into the log store
}

// Custom level encoder function
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

// Custom level encoder function with color for console
func customColorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var colorPrefix, colorSuffix string
	switch level {
	case zapcore.DebugLevel:
		colorPrefix = "\x1b[35m" // Magenta
		colorSuffix = "\x1b[0m"
	case zapcore.InfoLevel:
		colorPrefix = "\x1b[32m" // Green
		colorSuffix = "\x1b[0m"
	case zapcore.WarnLevel:
		colorPrefix = "\x1b[33m" // Yellow
		colorSuffix = "\x1b[0m"
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		colorPrefix = "\x1b[31m" // Red
		colorSuffix = "\x1b[0m"
	}
	enc.AppendString(colorPrefix + "[" + level.CapitalString() + "]" + colorSuffix)
}

// CreateFileConsoleEncoderConfigs sets up the encoder configurations.
func CreateFileConsoleEncoderConfigs() (zapcore.EncoderConfig, zapcore.EncoderConfig) {
	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeLevel = customColorLevelEncoder
	consoleEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	fileEncoderCfg := zap.NewProductionEncoderConfig()
	fileEncoderCfg.EncodeLevel = customLevelEncoder
	fileEncoderCfg.TimeKey = "timestamp"
	fileEncoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	fileEncoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	return consoleEncoderCfg, fileEncoderCfg
}

// NewFileLogger builds the console + file logger. fileSyncer may be nil for
// console-only output (the CLI uses that).
func NewFileLogger(cfg *config.Config, fileSyncer zapcore.WriteSyncer) *zap.Logger {
	var fileLogLevel zapcore.Level
	if err := fileLogLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Invalid LOG_LEVEL '%s' for file/console logger, defaulting to info: %v\n", cfg.LogLevel, err)
		fileLogLevel = zapcore.InfoLevel
	}

	consoleEncoderCfg, fileEncoderCfg := CreateFileConsoleEncoderConfigs()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderCfg), zapcore.Lock(os.Stdout), fileLogLevel),
	}
	if fileSyncer != nil {
		// plain-text file output keeps the bracketed levels
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoderCfg), fileSyncer, fileLogLevel))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// InitializeLoggers creates the file/console application logger and the
// record logger that writes into repo. sessionID is attached to every record.
func InitializeLoggers(cfg *config.Config, repo repositories.LogRepository, fileSyncer zapcore.WriteSyncer, sessionID string) (*AppLoggers, error) {
	appLoggers := &AppLoggers{File: NewFileLogger(cfg, fileSyncer)}
	appLoggers.File.Info("======================================================================================")
	appLoggers.File.Info("File/Console application logger initialized",
		zap.String("environment", cfg.AppEnv),
		zap.String("configuredLevel", cfg.LogLevel),
		zap.String("logFile", cfg.LogFilePath),
	)

	record, err := NewRecordLogger(cfg, repo, appLoggers.File, sessionID)
	if err != nil {
		return nil, err
	}
	appLoggers.Record = record
	return appLoggers, nil
}

// NewRecordLogger builds the logger that persists entries into repo. A nil
// repo yields a Nop logger.
func NewRecordLogger(cfg *config.Config, repo repositories.LogRepository, fileLogger *zap.Logger, sessionID string) (*zap.Logger, error) {
	if repo == nil {
		fileLogger.Info("Record logger is disabled: no log store configured.")
		return zap.NewNop(), nil
	}

	var recordLevel zapcore.Level
	if err := recordLevel.UnmarshalText([]byte(cfg.RecordLogLevel)); err != nil {
		return nil, fmt.Errorf("invalid RECORD_LOG_LEVEL %q: %w", cfg.RecordLogLevel, err)
	}
	record := zap.New(NewRepositoryCore(recordLevel, repo), zap.AddCaller()).
		Named(cfg.AppName).
		With(zap.String(FieldSessionID, sessionID))
	fileLogger.Info("Record logger initialized",
		zap.String("effectiveLevel", recordLevel.String()),
		zap.String("sessionId", sessionID),
	)
	return record, nil
}

// --- Log store zap core ---

// repositoryCore implements zapcore.Core and persists entries as log records.
type repositoryCore struct {
	zapcore.LevelEnabler
	repo   repositories.LogRepository
	fields []zapcore.Field // Fields added via logger.With()
}

// NewRepositoryCore creates a core that saves every enabled entry through repo.
// The logger name becomes the record tag unless a "tag" field overrides it;
// "session_id" and "user_id" fields fill the correlation ids and every other
// field lands in the data payload.
func NewRepositoryCore(enab zapcore.LevelEnabler, repo repositories.LogRepository) zapcore.Core {
	return &repositoryCore{
		LevelEnabler: enab,
		repo:         repo,
	}
}

func (c *repositoryCore) With(fields []zapcore.Field) zapcore.Core {
	clone := c.clone()
	clone.fields = append(clone.fields, fields...)
	return clone
}

func (c *repositoryCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write uses MapObjectEncoder to correctly extract and marshal custom fields.
func (c *repositoryCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	mapEncoder := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(mapEncoder)
	}
	for _, field := range fields {
		field.AddTo(mapEncoder)
	}

	entry := models.LogEntry{
		Level:     RecordLevel(ent.Level),
		Message:   ent.Message,
		Tag:       ent.LoggerName,
		Timestamp: ent.Time.UnixMilli(),
	}
	data := mapEncoder.Fields
	entry.SessionID = popString(data, FieldSessionID)
	entry.UserID = popString(data, FieldUserID)
	if tag := popString(data, FieldTag); tag != "" {
		entry.Tag = tag
	}
	if ent.Caller.Defined {
		data["caller"] = ent.Caller.TrimmedPath()
	}
	if ent.Stack != "" {
		data["stacktrace"] = ent.Stack
	}

	normalized, err := models.NormalizeData(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to marshal fields for log record: %v\n", err)
		normalized = map[string]any{"marshal_error": err.Error()}
	}
	entry.Data = normalized

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.repo.Save(ctx, entry); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to save log record: %v\n", err)
	}
	return nil
}

func (c *repositoryCore) Sync() error {
	return nil
}

func (c *repositoryCore) clone() *repositoryCore {
	return &repositoryCore{
		LevelEnabler: c.LevelEnabler,
		repo:         c.repo,
		fields:       append([]zapcore.Field(nil), c.fields...),
	}
}

// RecordLevel maps a zap level onto the log record severity vocabulary.
func RecordLevel(l zapcore.Level) string {
	switch {
	case l <= zapcore.DebugLevel:
		return models.LevelDebug
	case l == zapcore.InfoLevel:
		return models.LevelInfo
	case l == zapcore.WarnLevel:
		return models.LevelWarn
	case l == zapcore.ErrorLevel:
		return models.LevelError
	default:
		return models.LevelFatal
	}
}

func popString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	delete(m, key)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// --- Global Logger Access ---

// SetGlobalLoggers sets the global logger instances.
func SetGlobalLoggers(fileLogger, recordLogger *zap.Logger) {
	globalLoggersMu.Lock()
	defer globalLoggersMu.Unlock()
	globalFileLogger = fileLogger
	if recordLogger != nil {
		globalRecordLogger = recordLogger
	} else {
		globalRecordLogger = zap.NewNop() // Ensure it's not nil
	}
}

// GetFileLogger returns the initialized global file/console logger.
func GetFileLogger() *zap.Logger {
	globalLoggersMu.RLock()
	l := globalFileLogger
	globalLoggersMu.RUnlock()

	if l == nil {
		fallbackLogger, _ := zap.NewProduction()
		fallbackLogger.Warn("Global file/console logger accessed before being set!")
		return fallbackLogger
	}
	return l
}

// GetRecordLogger returns the global logger that writes into the log store.
// Returns a Nop logger if it was never initialized.
func GetRecordLogger() *zap.Logger {
	globalLoggersMu.RLock()
	l := globalRecordLogger
	globalLoggersMu.RUnlock()

	if l == nil {
		return zap.NewNop()
	}
	return l
}
