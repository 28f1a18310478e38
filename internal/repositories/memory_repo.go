package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go-logstore/internal/models"
)

// MemoryLogRepository keeps entries in process memory. It is the fallback
// target of every other store and never delegates further.
type MemoryLogRepository struct {
	mu      sync.RWMutex
	entries map[int64]models.LogEntry
	nextID  int64
}

// NewMemoryLogRepository creates an empty in-memory store.
func NewMemoryLogRepository() *MemoryLogRepository {
	return &MemoryLogRepository{
		entries: make(map[int64]models.LogEntry),
		nextID:  1,
	}
}

func (r *MemoryLogRepository) Save(_ context.Context, entry models.LogEntry) (int64, error) {
	if err := entry.Validate(); err != nil {
		return 0, err
	}
	data, err := models.NormalizeData(entry.Data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrInvalidEntry, err)
	}
	entry.Data = data

	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = r.nextID
	r.nextID++
	r.entries[entry.ID] = entry
	return entry.ID, nil
}

func (r *MemoryLogRepository) FindByID(_ context.Context, id int64) (*models.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	out := e.Clone()
	return &out, nil
}

func (r *MemoryLogRepository) Query(_ context.Context, opts models.QueryOptions) ([]models.LogEntry, error) {
	r.mu.RLock()
	matched := make([]models.LogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if opts.Matches(e) {
			matched = append(matched, e.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Timestamp != matched[j].Timestamp {
			return matched[i].Timestamp > matched[j].Timestamp
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, opts.Limit, opts.Offset), nil
}

func (r *MemoryLogRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[int64]models.LogEntry)
	return nil
}

func (r *MemoryLogRepository) DeleteOldLogs(_ context.Context, beforeTimestamp int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, e := range r.entries {
		if e.Timestamp < beforeTimestamp {
			delete(r.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemoryLogRepository) GetCount(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.entries)), nil
}

// paginate returns the [offset, offset+limit) window of entries. Non-positive
// offset or limit means no constraint.
func paginate(entries []models.LogEntry, limit, offset int) []models.LogEntry {
	if offset > 0 {
		if offset >= len(entries) {
			return []models.LogEntry{}
		}
		entries = entries[offset:]
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
