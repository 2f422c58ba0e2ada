package mocks

import "github.com/veridian-labs/ttpmap-core/internal/core/domain"

// MockClassifier is a mock implementation of Classifier for testing.
// Candidates are returned per exact sentence text; unknown text yields none.
type MockClassifier struct {
	ModelVersion string
	Candidates   map[string][]domain.Candidate
}

// NewMockClassifier creates a MockClassifier with the given version
func NewMockClassifier(version string) *MockClassifier {
	return &MockClassifier{
		ModelVersion: version,
		Candidates:   make(map[string][]domain.Candidate),
	}
}

func (m *MockClassifier) Infer(text string) []domain.Candidate {
	return m.Candidates[text]
}

func (m *MockClassifier) Version() string {
	return m.ModelVersion
}

// On registers candidates for a sentence text.
func (m *MockClassifier) On(text string, candidates ...domain.Candidate) *MockClassifier {
	m.Candidates[text] = candidates
	return m
}
