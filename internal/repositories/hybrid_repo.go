package repositories

import (
	"context"

	"go-logstore/internal/database"
	"go-logstore/internal/models"

	"go.uber.org/zap"
)

// BackendStatus describes which store is nominally serving requests.
type BackendStatus struct {
	Backend  string `json:"backend"`
	Driver   string `json:"driver"`
	State    string `json:"state"`
	Platform string `json:"platform"`
}

// HybridLogRepository is the store callers use. It forwards the contract to
// a DurableLogRepository, which handles its own fallback, and adds
// diagnostics.
type HybridLogRepository struct {
	durable *DurableLogRepository
	logger  *zap.Logger
}

var _ LogRepository = (*HybridLogRepository)(nil)

// NewHybridLogRepository wires a durable adapter over gw with a fresh
// in-memory fallback.
func NewHybridLogRepository(gw database.Gateway, logger *zap.Logger, opts DurableOptions) *HybridLogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridLogRepository{
		durable: NewDurableLogRepository(gw, NewMemoryLogRepository(), logger, opts),
		logger:  logger,
	}
}

func (r *HybridLogRepository) Save(ctx context.Context, entry models.LogEntry) (int64, error) {
	return r.durable.Save(ctx, entry)
}

func (r *HybridLogRepository) FindByID(ctx context.Context, id int64) (*models.LogEntry, error) {
	return r.durable.FindByID(ctx, id)
}

func (r *HybridLogRepository) Query(ctx context.Context, opts models.QueryOptions) ([]models.LogEntry, error) {
	return r.durable.Query(ctx, opts)
}

func (r *HybridLogRepository) Clear(ctx context.Context) error {
	return r.durable.Clear(ctx)
}

func (r *HybridLogRepository) DeleteOldLogs(ctx context.Context, beforeTimestamp int64) (int64, error) {
	return r.durable.DeleteOldLogs(ctx, beforeTimestamp)
}

func (r *HybridLogRepository) GetCount(ctx context.Context) (int64, error) {
	return r.durable.GetCount(ctx)
}

// CurrentBackend reports the nominal backend. While the adapter is ready
// this is its driver; otherwise requests are served from memory.
func (r *HybridLogRepository) CurrentBackend() BackendStatus {
	state := r.durable.State()
	backend := BackendMemory
	if state == StateReady {
		backend = r.durable.Driver()
	}
	return BackendStatus{
		Backend:  backend,
		Driver:   r.durable.Driver(),
		State:    state.String(),
		Platform: r.durable.Platform(),
	}
}

// CheckHealth re-runs GetCount as a liveness check.
func (r *HybridLogRepository) CheckHealth(ctx context.Context) (int64, bool) {
	n, err := r.GetCount(ctx)
	if err != nil {
		r.logger.Warn("Log store health check failed", zap.Error(err))
		return 0, false
	}
	return n, true
}

// WaitReady waits for the durable adapter to finish initializing.
func (r *HybridLogRepository) WaitReady(ctx context.Context) (State, error) {
	return r.durable.WaitReady(ctx)
}

// ProbeResult exposes the adapter's startup probe outcome.
func (r *HybridLogRepository) ProbeResult() (ProbeResult, bool) {
	return r.durable.ProbeResult()
}

func (r *HybridLogRepository) Close() error {
	return r.durable.Close()
}
