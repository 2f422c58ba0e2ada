package driving

import (
	"context"
	"io"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// CorpusStats summarizes a training-data load.
type CorpusStats struct {
	Reports   int `json:"reports"`
	Sentences int `json:"sentences"`
	Mappings  int `json:"mappings"`
}

// TrainingService loads the bootstrap corpus and trains classifier models.
type TrainingService interface {
	// LoadCorpus parses the JSON corpus and persists its reports as regular
	// report graphs (ml_model as given, typically "humans").
	LoadCorpus(ctx context.Context, r io.Reader) (*CorpusStats, error)

	// Train builds a model from the accepted sentences of stored reports
	// and activates it in the model registry.
	Train(ctx context.Context) (*domain.ModelInfo, error)

	// ActiveModel reports the currently loaded model, or ErrModelUnavailable.
	ActiveModel() (*domain.ModelInfo, error)
}
