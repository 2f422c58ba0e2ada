// Package runtime holds process-wide mutable service state: the loaded
// classifier model, swappable by an operator without a restart.
package runtime

import (
	"sync"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Models is the classifier registry. The pipeline reads the active model; an
// admin action (train, load) replaces it. Thread-safe; inference calls on a
// handed-out classifier remain valid after a swap.
type Models struct {
	mu         sync.RWMutex
	classifier driven.Classifier
	info       *domain.ModelInfo
}

// NewModels creates an empty registry. Jobs fail with ErrModelUnavailable
// until a model is set.
func NewModels() *Models {
	return &Models{}
}

// Classifier returns the active model, or ErrModelUnavailable.
func (m *Models) Classifier() (driven.Classifier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.classifier == nil {
		return nil, domain.ErrModelUnavailable
	}
	return m.classifier, nil
}

// Info returns the active model's description, or ErrModelUnavailable.
func (m *Models) Info() (*domain.ModelInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.info == nil {
		return nil, domain.ErrModelUnavailable
	}
	cp := *m.info
	return &cp, nil
}

// Set activates a classifier, replacing any previous one.
func (m *Models) Set(c driven.Classifier, info *domain.ModelInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classifier = c
	m.info = info
}
