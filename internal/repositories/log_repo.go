package repositories

import (
	"context"

	"go-logstore/internal/models"
)

// LogRepository defines the operations every log store supports. Backend
// failures are absorbed by the implementations; the only error Save reports
// is models.ErrInvalidEntry for malformed input.
type LogRepository interface {
	// Save appends an entry and returns its newly assigned id. entry.ID is ignored.
	Save(ctx context.Context, entry models.LogEntry) (int64, error)
	// FindByID returns nil, nil when no entry has that id.
	FindByID(ctx context.Context, id int64) (*models.LogEntry, error)
	// Query returns matching entries newest first, with Limit/Offset
	// applied after filtering and ordering.
	Query(ctx context.Context, opts models.QueryOptions) ([]models.LogEntry, error)
	Clear(ctx context.Context) error
	// DeleteOldLogs removes entries with Timestamp < beforeTimestamp and
	// returns how many were removed.
	DeleteOldLogs(ctx context.Context, beforeTimestamp int64) (int64, error)
	GetCount(ctx context.Context) (int64, error)
}

// Backend names reported by the diagnostics.
const (
	BackendMemory = "memory"
)
