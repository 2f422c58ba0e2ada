package mocks

import (
	"context"
	"sync"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document

	SaveErr error
	GetErr  error
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string]*domain.Document),
	}
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = doc
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *MockDocumentStore) GetMeta(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	meta := *doc
	meta.Content = nil
	return &meta, nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, id string, cascade bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

func (m *MockDocumentStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = make(map[string]*domain.Document)
}
