// Package classify implements the sentence-to-technique classifier: a
// multinomial naive Bayes model over bag-of-words features, serialized as
// JSON and loaded once per process.
package classify

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Classifier = (*Model)(nil)

const (
	// MaxInferChars is the input budget: longer text is truncated before
	// tokenization so inference never fails on length.
	MaxInferChars = 2000

	// MaxCandidates caps the candidates returned per sentence. Ties at the
	// cut boundary are all kept.
	MaxCandidates = 10
)

// classEntry holds the trained statistics for one ATT&CK technique.
type classEntry struct {
	AttackObjectID string             `json:"attack_object_id"`
	AttackID       string             `json:"attack_id"`
	LogPrior       float64            `json:"log_prior"`
	LogLikelihood  map[string]float64 `json:"log_likelihood"`
	LogUnseen      float64            `json:"log_unseen"`
}

// Model is a trained classifier. Inference is a pure function of the input
// text and the loaded statistics: no mutable state, safe for concurrent use,
// deterministic for a fixed version.
type Model struct {
	ModelVersion   string       `json:"version"`
	VocabularySize int          `json:"vocabulary_size"`
	TrainedOn      int          `json:"trained_on"` // example count
	Classes        []classEntry `json:"classes"`
}

// Version identifies the trained model.
func (m *Model) Version() string {
	return m.ModelVersion
}

// Info summarizes the model for status endpoints.
func (m *Model) Info() *domain.ModelInfo {
	return &domain.ModelInfo{
		Version:  m.ModelVersion,
		Classes:  len(m.Classes),
		Examples: m.TrainedOn,
	}
}

// Infer scores text against every class and returns the top candidates with
// softmax-calibrated confidences in [0,100]. Empty input, or input with no
// recognizable tokens, yields nil.
func (m *Model) Infer(text string) []domain.Candidate {
	if len(m.Classes) == 0 {
		return nil
	}

	runes := []rune(text)
	if len(runes) > MaxInferChars {
		runes = runes[:MaxInferChars]
	}
	tokens := Tokenize(string(runes))
	if len(tokens) == 0 {
		return nil
	}

	scores := make([]float64, len(m.Classes))
	for ci, c := range m.Classes {
		score := c.LogPrior
		for _, tok := range tokens {
			if ll, ok := c.LogLikelihood[tok]; ok {
				score += ll
			} else {
				score += c.LogUnseen
			}
		}
		scores[ci] = score
	}

	// Softmax with max subtraction for numeric stability.
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	for i, s := range scores {
		scores[i] = math.Exp(s - maxScore)
		sum += scores[i]
	}

	candidates := make([]domain.Candidate, 0, len(m.Classes))
	for ci, c := range m.Classes {
		conf := scores[ci] / sum * 100
		if conf > 100 {
			conf = 100
		}
		candidates = append(candidates, domain.Candidate{
			AttackObjectID: c.AttackObjectID,
			Confidence:     conf,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].AttackObjectID < candidates[j].AttackObjectID
	})

	if len(candidates) > MaxCandidates {
		// Keep ties at the boundary rather than pruning arbitrarily.
		cut := MaxCandidates
		for cut < len(candidates) && candidates[cut].Confidence == candidates[MaxCandidates-1].Confidence {
			cut++
		}
		candidates = candidates[:cut]
	}

	return candidates
}

// Write serializes the model as JSON.
func (m *Model) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

// WriteFile saves the model to path.
func (m *Model) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer f.Close()
	return m.Write(f)
}

// Read deserializes a model from JSON.
func Read(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if m.ModelVersion == "" {
		return nil, fmt.Errorf("%w: model has no version", domain.ErrInvalidInput)
	}
	return &m, nil
}

// ReadFile loads a model from path.
func ReadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()
	return Read(f)
}
