package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// MockAttackObjectStore is a mock implementation of AttackObjectStore for testing
type MockAttackObjectStore struct {
	mu       sync.RWMutex
	objects  map[string]*domain.AttackObject
	byStix   map[string]*domain.AttackObject
	byAttack map[string]*domain.AttackObject

	UpsertErr error
	AllErr    error
}

// NewMockAttackObjectStore creates a new MockAttackObjectStore
func NewMockAttackObjectStore() *MockAttackObjectStore {
	return &MockAttackObjectStore{
		objects:  make(map[string]*domain.AttackObject),
		byStix:   make(map[string]*domain.AttackObject),
		byAttack: make(map[string]*domain.AttackObject),
	}
}

func (m *MockAttackObjectStore) UpsertBatch(ctx context.Context, objects []*domain.AttackObject) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, obj := range objects {
		if existing, ok := m.byStix[obj.StixID]; ok {
			// Upsert keyed by STIX id: keep the original row id.
			updated := *obj
			updated.ID = existing.ID
			updated.CreatedAt = existing.CreatedAt
			m.objects[existing.ID] = &updated
			m.byStix[obj.StixID] = &updated
			m.byAttack[obj.AttackID] = &updated
			continue
		}
		m.objects[obj.ID] = obj
		m.byStix[obj.StixID] = obj
		m.byAttack[obj.AttackID] = obj
	}
	return nil
}

func (m *MockAttackObjectStore) Get(ctx context.Context, id string) (*domain.AttackObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return obj, nil
}

func (m *MockAttackObjectStore) GetByAttackID(ctx context.Context, attackID string) (*domain.AttackObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.byAttack[attackID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return obj, nil
}

func (m *MockAttackObjectStore) All(ctx context.Context) ([]*domain.AttackObject, error) {
	if m.AllErr != nil {
		return nil, m.AllErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.AttackObject, 0, len(m.objects))
	for _, obj := range m.objects {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttackID < out[j].AttackID })
	return out, nil
}

func (m *MockAttackObjectStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects), nil
}

func (m *MockAttackObjectStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = make(map[string]*domain.AttackObject)
	m.byStix = make(map[string]*domain.AttackObject)
	m.byAttack = make(map[string]*domain.AttackObject)
}
