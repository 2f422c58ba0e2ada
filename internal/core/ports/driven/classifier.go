package driven

import "github.com/veridian-labs/ttpmap-core/internal/core/domain"

// Classifier proposes ATT&CK technique mappings for one sentence.
// Implementations must be deterministic for a fixed model version, pure per
// call, and safe for concurrent use. Inputs of any length are tolerated:
// oversized text is truncated to the model's budget, never an error.
type Classifier interface {
	// Infer returns zero or more candidates with confidence in [0,100].
	Infer(text string) []domain.Candidate

	// Version identifies the trained model that produced the candidates.
	Version() string
}

// Segmenter splits extracted document text into ordered sentences.
type Segmenter interface {
	// Segment returns sentences with dense orders 0..N-1 in source order.
	// Empty text yields an empty slice.
	Segment(text string) []domain.Segment
}
