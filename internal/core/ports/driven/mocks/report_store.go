package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// MockReportStore is a mock implementation of ReportStore for testing.
// SaveGraphErr simulates a persistence failure so callers can verify that
// nothing is visible from a failed save.
type MockReportStore struct {
	mu     sync.RWMutex
	graphs map[string]*domain.ReportGraph
	order  []string // insertion order, newest last

	SaveGraphErr error
}

// NewMockReportStore creates a new MockReportStore
func NewMockReportStore() *MockReportStore {
	return &MockReportStore{
		graphs: make(map[string]*domain.ReportGraph),
	}
}

func (m *MockReportStore) SaveGraph(ctx context.Context, graph *domain.ReportGraph) error {
	if err := graph.Validate(); err != nil {
		return err
	}
	if m.SaveGraphErr != nil {
		return m.SaveGraphErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs[graph.Report.ID] = graph
	m.order = append(m.order, graph.Report.ID)
	return nil
}

func (m *MockReportStore) Get(ctx context.Context, id string) (*domain.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.graphs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return g.Report, nil
}

func (m *MockReportStore) GetGraph(ctx context.Context, id string) (*domain.ReportGraph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.graphs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return g, nil
}

func (m *MockReportStore) List(ctx context.Context, limit, offset int) ([]*domain.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reports := make([]*domain.Report, 0, len(m.graphs))
	for i := len(m.order) - 1; i >= 0; i-- {
		reports = append(reports, m.graphs[m.order[i]].Report)
	}
	if offset >= len(reports) {
		return []*domain.Report{}, nil
	}
	end := offset + limit
	if end > len(reports) {
		end = len(reports)
	}
	return reports[offset:end], nil
}

func (m *MockReportStore) GetSentence(ctx context.Context, id string) (*domain.Sentence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.graphs {
		for _, s := range g.Sentences {
			if s.ID == id {
				return s, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockReportStore) UpdateSentenceDisposition(ctx context.Context, sentenceID string, d *domain.Disposition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.graphs {
		for _, s := range g.Sentences {
			if s.ID == sentenceID {
				s.Disposition = d
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

func (m *MockReportStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.graphs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.graphs, id)
	for i, rid := range m.order {
		if rid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockReportStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.graphs), nil
}

// Helper methods for testing

// Graphs returns the stored graphs sorted by report name.
func (m *MockReportStore) Graphs() []*domain.ReportGraph {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.ReportGraph, 0, len(m.graphs))
	for _, g := range m.graphs {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Report.Name < out[j].Report.Name })
	return out
}

func (m *MockReportStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs = make(map[string]*domain.ReportGraph)
	m.order = nil
}
