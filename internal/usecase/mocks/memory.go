package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/kpidash/internal/domain"
)

// MemorySnapshotRepository is an in-memory SnapshotRepository. It stores
// deep copies so callers can never alias stored rows.
type MemorySnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*domain.Snapshot
}

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{
		snapshots: make(map[string]*domain.Snapshot),
	}
}

func (m *MemorySnapshotRepository) Create(ctx context.Context, snapshot *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.snapshots[snapshot.ID]; exists {
		return fmt.Errorf("duplicate snapshot id %q", snapshot.ID)
	}
	m.snapshots[snapshot.ID] = copySnapshot(snapshot)
	return nil
}

func (m *MemorySnapshotRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[id]
	if !ok || s.OwnerID != ownerID {
		return nil, domain.ErrSnapshotNotFound
	}
	return copySnapshot(s), nil
}

func (m *MemorySnapshotRepository) GetLatest(ctx context.Context, ownerID string) (*domain.Snapshot, error) {
	owned := m.owned(ownerID)
	if len(owned) == 0 {
		return nil, domain.ErrSnapshotNotFound
	}
	return owned[0], nil
}

func (m *MemorySnapshotRepository) ListSummaries(ctx context.Context, ownerID string, limit, offset int) ([]domain.SnapshotSummary, error) {
	owned := m.owned(ownerID)
	summaries := []domain.SnapshotSummary{}
	for i := offset; i < len(owned) && len(summaries) < limit; i++ {
		summaries = append(summaries, *owned[i].Summary())
	}
	return summaries, nil
}

func (m *MemorySnapshotRepository) UpdateName(ctx context.Context, ownerID, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[id]
	if !ok || s.OwnerID != ownerID {
		return domain.ErrSnapshotNotFound
	}
	s.Name = name
	return nil
}

func (m *MemorySnapshotRepository) Delete(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[id]
	if !ok || s.OwnerID != ownerID {
		return domain.ErrSnapshotNotFound
	}
	delete(m.snapshots, id)
	return nil
}

// Len returns the number of stored snapshots across all owners.
func (m *MemorySnapshotRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}

// owned returns the owner's snapshots newest first, ties broken by ID.
func (m *MemorySnapshotRepository) owned(ownerID string) []*domain.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Snapshot
	for _, s := range m.snapshots {
		if s.OwnerID == ownerID {
			out = append(out, copySnapshot(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func copySnapshot(s *domain.Snapshot) *domain.Snapshot {
	c := *s
	c.Rows = s.Rows.Clone()
	c.Forecast = domain.CloneForecast(s.Forecast)
	return &c
}

// SequentialIDGenerator returns snap-shaped IDs in increasing order.
type SequentialIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s%026d", domain.SnapshotIDPrefix, g.counter)
}

// SteppingClock starts at Start and advances by Step on every call.
type SteppingClock struct {
	mu    sync.Mutex
	Start time.Time
	Step  time.Duration
	calls int
}

func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.Start.Add(time.Duration(c.calls) * c.Step)
	c.calls++
	return t
}
