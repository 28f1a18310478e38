package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"
)

// DuckDB has no rowid helper; tables it serves take their ids from a
// sequence named <table>_id_seq.
var duckdbDialect = dialect{
	name: "duckdb",
	lastInsertID: func(table string) string {
		return fmt.Sprintf("SELECT currval('%s_id_seq') AS id", table)
	},
}

// DuckDBGateway opens DuckDB database files under a directory.
type DuckDBGateway struct {
	dir    string
	logger *zap.Logger
}

// NewDuckDBGateway creates a gateway rooted at dir.
func NewDuckDBGateway(dir string, logger *zap.Logger) *DuckDBGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuckDBGateway{dir: dir, logger: logger}
}

func (g *DuckDBGateway) Driver() string   { return DriverDuckDB }
func (g *DuckDBGateway) Platform() string { return currentPlatform() }

// Open opens the named DuckDB file. MemoryName (or "") opens an in-memory database.
func (g *DuckDBGateway) Open(ctx context.Context, name string) (Handle, error) {
	dsn := ""
	if name != MemoryName && name != "" {
		dsn = filepath.Join(g.dir, name)
		if err := ensureDir(filepath.Dir(dsn), g.logger); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		g.logger.Error("Failed to open DuckDB database", zap.String("path", dsn), zap.Error(err))
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	h := newSQLHandle(db, duckdbDialect, g.logger)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return h, nil
}
