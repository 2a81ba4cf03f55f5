package overlay

import (
	"context"
	"sync"

	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/plans"
)

// MemoryStore keeps follow-ups in process memory. Records keep their first
// insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	opts    *options
	order   []plans.PlanID
	records map[plans.PlanID]plans.FollowUp
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:    newOptions(opts),
		records: make(map[plans.PlanID]plans.FollowUp),
	}
}

// Backend implements Store.
func (m *MemoryStore) Backend() string { return DriverMemory }

// ReadAll implements Store.
func (m *MemoryStore) ReadAll(ctx context.Context) ([]plans.FollowUp, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]plans.FollowUp, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out, nil
}

// UpsertBatch implements Store.
func (m *MemoryStore) UpsertBatch(ctx context.Context, records []plans.FollowUp) error {
	if err := ctx.Err(); err != nil {
		return errors.NewPersistError(DriverMemory, plans.IDs(records), err)
	}
	batch, err := prepareBatch(m.opts.normalizer, records)
	if err != nil {
		return errors.NewPersistError(DriverMemory, plans.IDs(records), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range batch {
		if _, ok := m.records[r.PlanID]; !ok {
			m.order = append(m.order, r.PlanID)
		}
		m.records[r.PlanID] = r
	}
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
