package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go-logstore/internal/database"
	"go-logstore/internal/metrics"
	"go-logstore/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const logsTable = "logs"

// State is the lifecycle state of a DurableLogRepository.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateDegraded
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// DurableOptions tunes a DurableLogRepository.
type DurableOptions struct {
	// Name is the database name handed to Gateway.Open.
	Name string
	// InitTimeout bounds the probe and schema setup.
	InitTimeout time.Duration
	// RetryAttempts is how many extra times a failed durable operation is
	// retried before falling back to memory. Zero falls back on the first error.
	RetryAttempts int
	RetryDelay    time.Duration
}

func (o DurableOptions) withDefaults() DurableOptions {
	if o.Name == "" {
		o.Name = "logstore.db"
	}
	if o.InitTimeout <= 0 {
		o.InitTimeout = 30 * time.Second
	}
	if o.RetryAttempts < 0 {
		o.RetryAttempts = 0
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	return o
}

// DurableLogRepository runs the repository contract against a gateway
// handle. Until the startup probe finishes, and for good if it fails, every
// call is served by the in-memory store; once ready, any failed call is
// re-run against the in-memory store.
type DurableLogRepository struct {
	gw     database.Gateway
	memory *MemoryLogRepository
	logger *zap.Logger
	opts   DurableOptions
	schema schemaDialect

	state  atomic.Int32
	handle database.Handle // written once, before state becomes Ready
	probe  ProbeResult     // written once, before ready is closed
	ready  chan struct{}

	// serializes the two-statement write sequences (insert+id, delete+changes)
	writeMu sync.Mutex
	closeMu sync.Mutex
}

// NewDurableLogRepository starts probing gw in the background and returns
// immediately. memory may be nil, in which case a private store is created.
func NewDurableLogRepository(gw database.Gateway, memory *MemoryLogRepository, logger *zap.Logger, opts DurableOptions) *DurableLogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if memory == nil {
		memory = NewMemoryLogRepository()
	}
	r := &DurableLogRepository{
		gw:     gw,
		memory: memory,
		logger: logger.With(zap.String("component", "durable_log_store"), zap.String("driver", gw.Driver())),
		opts:   opts.withDefaults(),
		schema: schemaFor(gw.Driver()),
		ready:  make(chan struct{}),
	}
	metrics.StoreState.Set(float64(StateUninitialized))
	go r.initialize()
	return r
}

func (r *DurableLogRepository) initialize() {
	defer close(r.ready)

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.InitTimeout)
	defer cancel()

	r.probe = Probe(ctx, r.gw, r.opts.Name)
	if !r.probe.Success {
		r.degrade("capability probe failed", r.probe.Err)
		return
	}

	h, err := r.gw.Open(ctx, r.opts.Name)
	if err != nil {
		r.degrade("open failed", err)
		return
	}
	for _, stmt := range r.schema.ddl {
		if err := h.Exec(ctx, stmt); err != nil {
			_ = h.Close()
			r.degrade("schema setup failed", err)
			return
		}
	}

	r.handle = h
	r.state.Store(int32(StateReady))
	metrics.StoreState.Set(float64(StateReady))
	r.logger.Info("Durable log store ready",
		zap.String("platform", r.probe.Platform),
		zap.String("database", r.opts.Name),
		zap.Duration("probe_duration", r.probe.Duration),
	)
}

func (r *DurableLogRepository) degrade(reason string, err error) {
	r.state.Store(int32(StateDegraded))
	metrics.StoreState.Set(float64(StateDegraded))
	r.logger.Warn("Durable log store unavailable, using in-memory storage",
		zap.String("reason", reason),
		zap.String("platform", r.gw.Platform()),
		zap.Error(err),
	)
}

// State reports the current lifecycle state.
func (r *DurableLogRepository) State() State {
	return State(r.state.Load())
}

// Driver names the gateway engine.
func (r *DurableLogRepository) Driver() string {
	return r.gw.Driver()
}

// Platform identifies the runtime reported by the gateway.
func (r *DurableLogRepository) Platform() string {
	return r.gw.Platform()
}

// ProbeResult returns the startup probe outcome; ok is false while the probe
// is still running.
func (r *DurableLogRepository) ProbeResult() (ProbeResult, bool) {
	select {
	case <-r.ready:
		return r.probe, true
	default:
		return ProbeResult{}, false
	}
}

// WaitReady blocks until initialization settles or ctx is done, and returns
// the state at that point. Operations never need it: they fall back while
// initialization is pending.
func (r *DurableLogRepository) WaitReady(ctx context.Context) (State, error) {
	select {
	case <-r.ready:
		return r.State(), nil
	case <-ctx.Done():
		return r.State(), ctx.Err()
	}
}

// Close releases the durable handle. Later calls are served from memory.
func (r *DurableLogRepository) Close() error {
	<-r.ready
	r.closeMu.Lock()
	defer r.closeMu.Unlock()
	prev := State(r.state.Swap(int32(StateClosed)))
	metrics.StoreState.Set(float64(StateClosed))
	if prev == StateReady && r.handle != nil {
		return r.handle.Close()
	}
	return nil
}

func (r *DurableLogRepository) Save(ctx context.Context, entry models.LogEntry) (int64, error) {
	if err := entry.Validate(); err != nil {
		return 0, err
	}
	data, err := models.EncodeData(entry.Data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrInvalidEntry, err)
	}
	return execute(ctx, r, "save",
		func(ctx context.Context, h database.Handle) (int64, error) {
			r.writeMu.Lock()
			defer r.writeMu.Unlock()
			// steps retry on their own so a landed INSERT is never re-issued
			_, err := retryStep(ctx, r, "save", func(ctx context.Context) (struct{}, error) {
				return struct{}{}, h.Exec(ctx,
					`INSERT INTO logs (level, message, data, tag, timestamp, session_id, user_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
					entry.Level, entry.Message, data, entry.Tag, entry.Timestamp, entry.SessionID, entry.UserID,
				)
			})
			if err != nil {
				return 0, err
			}
			return retryStep(ctx, r, "save", func(ctx context.Context) (int64, error) {
				return h.LastInsertID(ctx, logsTable)
			})
		},
		func(ctx context.Context) (int64, error) { return r.memory.Save(ctx, entry) },
	)
}

func (r *DurableLogRepository) FindByID(ctx context.Context, id int64) (*models.LogEntry, error) {
	return execute(ctx, r, "find_by_id",
		func(ctx context.Context, h database.Handle) (*models.LogEntry, error) {
			rows, err := retryStep(ctx, r, "find_by_id", func(ctx context.Context) ([]database.Row, error) {
				return h.Query(ctx, `SELECT * FROM logs WHERE id = ?`, id)
			})
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				return nil, nil
			}
			e := r.rowToEntry(rows[0])
			return &e, nil
		},
		func(ctx context.Context) (*models.LogEntry, error) { return r.memory.FindByID(ctx, id) },
	)
}

func (r *DurableLogRepository) Query(ctx context.Context, opts models.QueryOptions) ([]models.LogEntry, error) {
	return execute(ctx, r, "query",
		func(ctx context.Context, h database.Handle) ([]models.LogEntry, error) {
			query, args := buildSelect(opts, r.schema)
			rows, err := retryStep(ctx, r, "query", func(ctx context.Context) ([]database.Row, error) {
				return h.Query(ctx, query, args...)
			})
			if err != nil {
				return nil, err
			}
			out := make([]models.LogEntry, 0, len(rows))
			for _, row := range rows {
				out = append(out, r.rowToEntry(row))
			}
			return out, nil
		},
		func(ctx context.Context) ([]models.LogEntry, error) { return r.memory.Query(ctx, opts) },
	)
}

func (r *DurableLogRepository) Clear(ctx context.Context) error {
	_, err := execute(ctx, r, "clear",
		func(ctx context.Context, h database.Handle) (struct{}, error) {
			r.writeMu.Lock()
			defer r.writeMu.Unlock()
			return retryStep(ctx, r, "clear", func(ctx context.Context) (struct{}, error) {
				return struct{}{}, h.Exec(ctx, `DELETE FROM logs`)
			})
		},
		func(ctx context.Context) (struct{}, error) { return struct{}{}, r.memory.Clear(ctx) },
	)
	return err
}

func (r *DurableLogRepository) DeleteOldLogs(ctx context.Context, beforeTimestamp int64) (int64, error) {
	return execute(ctx, r, "delete_old_logs",
		func(ctx context.Context, h database.Handle) (int64, error) {
			r.writeMu.Lock()
			defer r.writeMu.Unlock()
			_, err := retryStep(ctx, r, "delete_old_logs", func(ctx context.Context) (struct{}, error) {
				return struct{}{}, h.Exec(ctx, `DELETE FROM logs WHERE timestamp < ?`, beforeTimestamp)
			})
			if err != nil {
				return 0, err
			}
			return retryStep(ctx, r, "delete_old_logs", func(ctx context.Context) (int64, error) {
				return h.Changes(ctx)
			})
		},
		func(ctx context.Context) (int64, error) { return r.memory.DeleteOldLogs(ctx, beforeTimestamp) },
	)
}

func (r *DurableLogRepository) GetCount(ctx context.Context) (int64, error) {
	return execute(ctx, r, "get_count",
		func(ctx context.Context, h database.Handle) (int64, error) {
			rows, err := retryStep(ctx, r, "get_count", func(ctx context.Context) ([]database.Row, error) {
				return h.Query(ctx, `SELECT COUNT(*) AS count FROM logs`)
			})
			if err != nil {
				return 0, err
			}
			if len(rows) == 0 {
				return 0, nil
			}
			n, ok := database.AsInt64(rows[0]["count"])
			if !ok {
				return 0, fmt.Errorf("unexpected count type %T", rows[0]["count"])
			}
			return n, nil
		},
		func(ctx context.Context) (int64, error) { return r.memory.GetCount(ctx) },
	)
}

// execute routes one operation: to the durable handle when ready (memory on
// failure), otherwise straight to memory. Durable closures retry their own
// statements through retryStep.
func execute[T any](
	ctx context.Context,
	r *DurableLogRepository,
	op string,
	durable func(context.Context, database.Handle) (T, error),
	fallback func(context.Context) (T, error),
) (T, error) {
	var reason string
	switch r.State() {
	case StateReady:
		timer := prometheus.NewTimer(metrics.StoreOperationDuration.WithLabelValues(op))
		v, err := durable(ctx, r.handle)
		timer.ObserveDuration()
		if err == nil {
			metrics.StoreOperations.WithLabelValues(op, r.gw.Driver(), "ok").Inc()
			return v, nil
		}
		metrics.StoreOperations.WithLabelValues(op, r.gw.Driver(), "error").Inc()
		r.logger.Error("Durable log store operation failed, falling back to memory",
			zap.String("operation", op), zap.Error(err))
		reason = "error"
	case StateUninitialized:
		reason = "not_ready"
	case StateClosed:
		reason = "closed"
	default:
		reason = "degraded"
	}

	metrics.StoreFallbacks.WithLabelValues(op, reason).Inc()
	v, err := fallback(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.StoreOperations.WithLabelValues(op, BackendMemory, outcome).Inc()
	return v, err
}

// retryStep runs one statement, re-running it up to RetryAttempts times
// while it fails.
func retryStep[T any](
	ctx context.Context,
	r *DurableLogRepository,
	op string,
	step func(context.Context) (T, error),
) (T, error) {
	var (
		v   T
		err error
	)
	for attempt := 0; attempt <= r.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			r.logger.Warn("Retrying durable log store statement",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.opts.RetryAttempts),
				zap.Error(err),
			)
			select {
			case <-time.After(r.opts.RetryDelay):
			case <-ctx.Done():
				return v, ctx.Err()
			}
		}
		v, err = step(ctx)
		if err == nil {
			return v, nil
		}
	}
	return v, err
}

func (r *DurableLogRepository) rowToEntry(row database.Row) models.LogEntry {
	id, _ := database.AsInt64(row["id"])
	ts, _ := database.AsInt64(row["timestamp"])
	data, err := models.DecodeData(database.AsString(row["data"]))
	if err != nil {
		r.logger.Warn("Stored log data is malformed, using empty payload", zap.Int64("id", id), zap.Error(err))
	}
	return models.LogEntry{
		ID:        id,
		Level:     database.AsString(row["level"]),
		Message:   database.AsString(row["message"]),
		Data:      data,
		Tag:       database.AsString(row["tag"]),
		Timestamp: ts,
		SessionID: database.AsString(row["session_id"]),
		UserID:    database.AsString(row["user_id"]),
	}
}

// schemaDialect holds the DDL and grammar quirks of one engine.
type schemaDialect struct {
	ddl []string
	// offsetNeedsLimit is set for engines whose grammar only accepts
	// OFFSET after a LIMIT clause.
	offsetNeedsLimit bool
}

func schemaFor(driver string) schemaDialect {
	if driver == database.DriverDuckDB {
		return schemaDialect{ddl: []string{
			`CREATE SEQUENCE IF NOT EXISTS logs_id_seq START 1`,
			`CREATE TABLE IF NOT EXISTS logs (
				id BIGINT DEFAULT nextval('logs_id_seq') PRIMARY KEY,
				level VARCHAR NOT NULL,
				message VARCHAR NOT NULL,
				data VARCHAR,
				tag VARCHAR,
				timestamp BIGINT NOT NULL,
				session_id VARCHAR,
				user_id VARCHAR
			)`,
		}}
	}
	return schemaDialect{
		ddl: []string{
			`CREATE TABLE IF NOT EXISTS logs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				level TEXT NOT NULL,
				message TEXT NOT NULL,
				data TEXT,
				tag TEXT,
				timestamp INTEGER NOT NULL,
				session_id TEXT,
				user_id TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs (timestamp)`,
		},
		offsetNeedsLimit: true,
	}
}

// buildSelect translates opts into a parameterized query over logs.
func buildSelect(opts models.QueryOptions, d schemaDialect) (string, []any) {
	query := "SELECT * FROM logs WHERE 1=1"
	var args []any

	if len(opts.Levels) > 0 {
		placeholders := make([]string, len(opts.Levels))
		for i, l := range opts.Levels {
			placeholders[i] = "?"
			args = append(args, l)
		}
		query += fmt.Sprintf(" AND level IN (%s)", strings.Join(placeholders, ","))
	}
	if opts.Tag != "" {
		query += " AND tag = ?"
		args = append(args, opts.Tag)
	}
	if opts.From > 0 {
		query += " AND timestamp >= ?"
		args = append(args, opts.From)
	}
	if opts.To > 0 {
		query += " AND timestamp <= ?"
		args = append(args, opts.To)
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 && d.offsetNeedsLimit {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}
	return query, args
}
