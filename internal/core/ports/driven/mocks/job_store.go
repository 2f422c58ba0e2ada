package mocks

import (
	"context"
	"sync"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// MockJobStore is a mock implementation of JobStore for testing.
// It enforces the same rules as the real store: one active job per document,
// and no updates to rows already in a terminal state.
type MockJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.DocumentProcessingJob
	order []string

	CreateErr error
	UpdateErr error
}

// NewMockJobStore creates a new MockJobStore
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{
		jobs: make(map[string]*domain.DocumentProcessingJob),
	}
}

func (m *MockJobStore) Create(ctx context.Context, job *domain.DocumentProcessingJob) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.DocumentID == job.DocumentID && j.Active() {
			return domain.ErrJobAlreadyInProgress
		}
	}
	clone := *job
	m.jobs[job.ID] = &clone
	m.order = append(m.order, job.ID)
	return nil
}

func (m *MockJobStore) Get(ctx context.Context, id string) (*domain.DocumentProcessingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (m *MockJobStore) Update(ctx context.Context, job *domain.DocumentProcessingJob) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.jobs[job.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if !stored.Active() {
		return domain.ErrJobTerminal
	}
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *MockJobStore) GetActiveForDocument(ctx context.Context, documentID string) (*domain.DocumentProcessingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, j := range m.jobs {
		if j.DocumentID == documentID && j.Active() {
			clone := *j
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockJobStore) List(ctx context.Context, limit, offset int) ([]*domain.DocumentProcessingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*domain.DocumentProcessingJob, 0, len(m.jobs))
	for i := len(m.order) - 1; i >= 0; i-- {
		clone := *m.jobs[m.order[i]]
		jobs = append(jobs, &clone)
	}
	if offset >= len(jobs) {
		return []*domain.DocumentProcessingJob{}, nil
	}
	end := offset + limit
	if end > len(jobs) {
		end = len(jobs)
	}
	return jobs[offset:end], nil
}

func (m *MockJobStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = make(map[string]*domain.DocumentProcessingJob)
	m.order = nil
}
