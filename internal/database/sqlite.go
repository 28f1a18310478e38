package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite Driver
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite",
	lastInsertID: func(string) string {
		return "SELECT last_insert_rowid() AS id"
	},
	changesQuery: "SELECT changes() AS count",
}

// SQLiteGateway opens SQLite database files under a directory.
type SQLiteGateway struct {
	dir    string
	logger *zap.Logger
}

// NewSQLiteGateway creates a gateway rooted at dir.
func NewSQLiteGateway(dir string, logger *zap.Logger) *SQLiteGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteGateway{dir: dir, logger: logger}
}

func (g *SQLiteGateway) Driver() string   { return DriverSQLite }
func (g *SQLiteGateway) Platform() string { return currentPlatform() }

// Open opens (creating if needed) the named database file. The directory is
// created when missing. MemoryName opens a private in-memory database.
func (g *SQLiteGateway) Open(ctx context.Context, name string) (Handle, error) {
	dsn := "file::memory:"
	if name != MemoryName {
		path := filepath.Join(g.dir, name)
		if err := ensureDir(filepath.Dir(path), g.logger); err != nil {
			return nil, err
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	g.logger.Debug("Opening SQLite database", zap.String("dsn", dsn))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		g.logger.Error("Failed to open SQLite database", zap.String("dsn", dsn), zap.Error(err))
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", dsn, err)
	}

	h := newSQLHandle(db, sqliteDialect, g.logger)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		g.logger.Error("Failed to ping SQLite database after open", zap.Error(err))
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	g.logger.Debug("SQLite database ready", zap.String("dsn", dsn))
	return h, nil
}

// ensureDir creates dir (and parents) when it does not exist yet.
func ensureDir(dir string, logger *zap.Logger) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	_, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		logger.Info("Database directory does not exist, creating...", zap.String("path", dir))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("Failed to create database directory", zap.String("path", dir), zap.Error(err))
			return fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	case err != nil:
		logger.Error("Failed to check status of database directory", zap.String("path", dir), zap.Error(err))
		return fmt.Errorf("failed to check status of db directory %s: %w", dir, err)
	}
	return nil
}
