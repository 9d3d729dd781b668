package retrain

import (
	"context"
	"sync"

	"github.com/churnwatch/churnwatch/pkg/models"
)

// RunStore persists the retrain run history.
type RunStore interface {
	Insert(ctx context.Context, run *models.RetrainRun) error
	Update(ctx context.Context, run *models.RetrainRun) error
	Get(ctx context.Context, id string) (*models.RetrainRun, error)
	List(ctx context.Context, limit int) ([]*models.RetrainRun, error)
}

// MemoryRuns is the in-process RunStore used by tests and the simulator.
type MemoryRuns struct {
	mu    sync.Mutex
	runs  map[string]*models.RetrainRun
	order []string
}

func NewMemoryRuns() *MemoryRuns {
	return &MemoryRuns{runs: map[string]*models.RetrainRun{}}
}

func (m *MemoryRuns) Insert(ctx context.Context, run *models.RetrainRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *run
	m.runs[run.ID] = &copied
	m.order = append(m.order, run.ID)
	return nil
}

func (m *MemoryRuns) Update(ctx context.Context, run *models.RetrainRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *run
	m.runs[run.ID] = &copied
	return nil
}

func (m *MemoryRuns) Get(ctx context.Context, id string) (*models.RetrainRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	copied := *run
	return &copied, nil
}

func (m *MemoryRuns) List(ctx context.Context, limit int) ([]*models.RetrainRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.order) {
		limit = len(m.order)
	}
	// Newest first
	out := make([]*models.RetrainRun, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		copied := *m.runs[m.order[i]]
		out = append(out, &copied)
	}
	return out, nil
}
