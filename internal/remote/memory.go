package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/bookedly/replica/internal/models"
)

// Memory implements Store using in-memory storage. It backs tests and
// single-process setups, and supports fault injection.
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[models.DataType]models.SyncRecord // tenant -> type -> latest

	// failErr, when set, is returned by every call. Used to simulate an
	// unreachable or failing remote.
	failErr error
}

// NewMemory creates an empty in-memory remote store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]map[models.DataType]models.SyncRecord),
	}
}

// Fail makes every subsequent call return err. Pass nil to heal.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failErr = err
}

func (m *Memory) Push(ctx context.Context, rec models.SyncRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return m.failErr
	}

	byType, ok := m.records[rec.TenantID]
	if !ok {
		byType = make(map[models.DataType]models.SyncRecord)
		m.records[rec.TenantID] = byType
	}

	byType[rec.DataType] = rec
	return nil
}

func (m *Memory) Pull(ctx context.Context, tenantID string) ([]models.SyncRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failErr != nil {
		return nil, m.failErr
	}

	byType := m.records[tenantID]
	records := make([]models.SyncRecord, 0, len(byType))
	for _, rec := range byType {
		records = append(records, rec)
	}

	// Newest-first
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	return records, nil
}

// Ping implements Pinger.
func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.failErr
}

// Record returns the stored record for (tenant, dataType), for assertions.
func (m *Memory) Record(tenantID string, dataType models.DataType) (models.SyncRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[tenantID][dataType]
	return rec, ok
}
