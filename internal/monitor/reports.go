package monitor

import (
	"context"
	"sync"

	"github.com/churnwatch/churnwatch/pkg/models"
)

// ReportStore persists drift reports produced by successful evaluations.
type ReportStore interface {
	Insert(ctx context.Context, report *models.DriftReport) error
	List(ctx context.Context, limit int) ([]*models.DriftReport, error)
}

// MemoryReports is the in-process ReportStore used by tests and the
// simulator.
type MemoryReports struct {
	mu      sync.Mutex
	reports []*models.DriftReport
}

func NewMemoryReports() *MemoryReports {
	return &MemoryReports{}
}

func (m *MemoryReports) Insert(ctx context.Context, report *models.DriftReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return nil
}

func (m *MemoryReports) List(ctx context.Context, limit int) ([]*models.DriftReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.reports) {
		limit = len(m.reports)
	}
	// Newest first
	out := make([]*models.DriftReport, 0, limit)
	for i := len(m.reports) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.reports[i])
	}
	return out, nil
}

func (m *MemoryReports) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}
