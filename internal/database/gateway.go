package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Driver names understood by New.
const (
	DriverSQLite   = "sqlite"
	DriverDuckDB   = "duckdb"
	DriverDisabled = "memory"
)

// MemoryName asks a gateway for a private in-process database instead of a file.
const MemoryName = ":memory:"

var (
	// ErrUnknownDriver is returned by New for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown database driver")
	// ErrGatewayDisabled is returned by DisabledGateway.Open.
	ErrGatewayDisabled = errors.New("durable storage is disabled")
	// ErrHandleClosed is returned by operations on a closed handle.
	ErrHandleClosed = errors.New("database handle is closed")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Row is one result row keyed by column name.
type Row map[string]any

// Gateway opens durable database handles for one embedded engine.
type Gateway interface {
	// Driver names the engine ("sqlite", "duckdb", "memory").
	Driver() string
	// Platform identifies the runtime the engine is running on.
	Platform() string
	// Open acquires a handle to the named database.
	Open(ctx context.Context, name string) (Handle, error)
}

// Handle executes statements against one open database. Implementations
// serialize access through a single connection.
type Handle interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	// LastInsertID returns the id generated by the most recent insert into table.
	LastInsertID(ctx context.Context, table string) (int64, error)
	// Changes returns the number of rows touched by the most recent statement.
	Changes(ctx context.Context) (int64, error)
	Close() error
}

// New returns the gateway for driver. dir is the directory database files
// are created in.
func New(driver, dir string, logger *zap.Logger) (Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "sqlite3":
		return NewSQLiteGateway(dir, logger), nil
	case DriverDuckDB:
		return NewDuckDBGateway(dir, logger), nil
	case DriverDisabled, "none", "disabled":
		return NewDisabledGateway(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func currentPlatform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// dialect captures the per-engine differences a sqlHandle needs.
type dialect struct {
	name string
	// lastInsertID builds the query returning the last generated id for table.
	lastInsertID func(table string) string
	// changesQuery is run by Changes; when empty the rows-affected count of
	// the last Exec is reported instead.
	changesQuery string
}

// sqlHandle is a Handle over database/sql restricted to one connection.
type sqlHandle struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger

	mu           sync.Mutex
	closed       bool
	lastAffected int64
}

func newSQLHandle(db *sql.DB, d dialect, logger *zap.Logger) *sqlHandle {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &sqlHandle{db: db, dialect: d, logger: logger}
}

func (h *sqlHandle) Exec(ctx context.Context, query string, args ...any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandleClosed
	}
	res, err := h.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s exec: %w", h.dialect.name, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		h.lastAffected = n
	} else {
		h.lastAffected = 0
	}
	return nil
}

func (h *sqlHandle) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	return h.queryLocked(ctx, query, args...)
}

func (h *sqlHandle) queryLocked(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", h.dialect.name, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s columns: %w", h.dialect.name, err)
	}
	out := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s scan: %w", h.dialect.name, err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[strings.ToLower(c)] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows err: %w", h.dialect.name, err)
	}
	return out, nil
}

func (h *sqlHandle) LastInsertID(ctx context.Context, table string) (int64, error) {
	if !identRe.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrHandleClosed
	}
	rows, err := h.queryLocked(ctx, h.dialect.lastInsertID(table))
	if err != nil {
		return 0, err
	}
	return firstInt(rows, "id")
}

func (h *sqlHandle) Changes(ctx context.Context) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrHandleClosed
	}
	if h.dialect.changesQuery == "" {
		return h.lastAffected, nil
	}
	rows, err := h.queryLocked(ctx, h.dialect.changesQuery)
	if err != nil {
		return 0, err
	}
	return firstInt(rows, "count")
}

func (h *sqlHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.db.Close()
}

func firstInt(rows []Row, col string) (int64, error) {
	if len(rows) == 0 {
		return 0, fmt.Errorf("no rows returned for %s", col)
	}
	n, ok := AsInt64(rows[0][col])
	if !ok {
		return 0, fmt.Errorf("column %s is %T, not an integer", col, rows[0][col])
	}
	return n, nil
}

// AsInt64 converts the integer representations drivers return.
func AsInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case int:
		return int64(t), true
	case int16:
		return int64(t), true
	case int8:
		return int64(t), true
	case uint64:
		return int64(t), true
	case uint32:
		return int64(t), true
	case float64:
		return int64(t), true
	case []byte:
		var n int64
		if _, err := fmt.Sscan(string(t), &n); err != nil {
			return 0, false
		}
		return n, true
	case string:
		var n int64
		if _, err := fmt.Sscan(t, &n); err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// AsString converts the text representations drivers return. NULL is "".
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
