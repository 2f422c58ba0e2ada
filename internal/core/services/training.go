package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/veridian-labs/ttpmap-core/internal/classify"
	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driving"
	"github.com/veridian-labs/ttpmap-core/internal/runtime"
)

// Ensure trainingService implements TrainingService
var _ driving.TrainingService = (*trainingService)(nil)

// timestamp layouts accepted in corpus files, most specific first.
var corpusTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// trainingService loads the bootstrap corpus and trains classifier models
// from the accepted sentences of stored reports.
type trainingService struct {
	reportStore driven.ReportStore
	catalog     driving.CatalogService
	models      *runtime.Models
	logger      *slog.Logger

	// modelPath, when set, receives the serialized model after training so
	// it survives restarts.
	modelPath string
}

// NewTrainingService creates a TrainingService. modelPath may be empty.
func NewTrainingService(
	reportStore driven.ReportStore,
	catalog driving.CatalogService,
	models *runtime.Models,
	modelPath string,
	logger *slog.Logger,
) driving.TrainingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &trainingService{
		reportStore: reportStore,
		catalog:     catalog,
		models:      models,
		modelPath:   modelPath,
		logger:      logger,
	}
}

// LoadCorpus parses the pre-mapped JSON corpus and persists each report as a
// regular report graph. Mappings whose attack id is missing from the catalog
// are skipped with a warning; everything else loads as-is.
func (s *trainingService) LoadCorpus(ctx context.Context, r io.Reader) (*driving.CorpusStats, error) {
	var corpus domain.TrainingCorpus
	if err := json.NewDecoder(r).Decode(&corpus); err != nil {
		return nil, fmt.Errorf("decode training corpus: %w", err)
	}
	if len(corpus.Reports) == 0 {
		return nil, fmt.Errorf("%w: corpus contains no reports", domain.ErrInvalidInput)
	}

	stats := &driving.CorpusStats{}
	for _, tr := range corpus.Reports {
		graph, skipped := s.corpusGraph(tr)
		if skipped > 0 {
			s.logger.Warn("corpus mappings skipped: attack id not in catalog",
				"report", tr.Name, "skipped", skipped)
		}
		if err := graph.Validate(); err != nil {
			return nil, fmt.Errorf("corpus report %q: %w", tr.Name, err)
		}
		if err := s.reportStore.SaveGraph(ctx, graph); err != nil {
			return nil, fmt.Errorf("persist corpus report %q: %w", tr.Name, err)
		}
		stats.Reports++
		stats.Sentences += len(graph.Sentences)
		stats.Mappings += len(graph.Mappings)
	}

	s.logger.Info("training corpus loaded",
		"reports", stats.Reports,
		"sentences", stats.Sentences,
		"mappings", stats.Mappings,
	)
	return stats, nil
}

// corpusGraph converts one corpus report into a persistable graph. Returns
// the graph and the number of mappings skipped for unknown attack ids.
func (s *trainingService) corpusGraph(tr domain.TrainingReport) (*domain.ReportGraph, int) {
	report := domain.NewReport(tr.Name, tr.Text, tr.MLModel)
	if t, ok := parseCorpusTime(tr.CreatedAt); ok {
		report.CreatedAt = t
	}
	if t, ok := parseCorpusTime(tr.UpdatedAt); ok {
		report.UpdatedAt = t
	}

	now := time.Now().UTC()
	sentences := make([]*domain.Sentence, len(tr.Sentences))
	for i, ts := range tr.Sentences {
		var d *domain.Disposition
		if ts.Disposition != nil {
			v := domain.Disposition(*ts.Disposition)
			d = &v
		}
		sentences[i] = &domain.Sentence{
			ID:          domain.GenerateID(),
			ReportID:    report.ID,
			Text:        ts.Text,
			Order:       ts.Order,
			Disposition: d,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	var (
		mappings []*domain.Mapping
		skipped  int
	)
	for _, tm := range tr.Mappings {
		if tm.Sentence < 0 || tm.Sentence >= len(sentences) {
			skipped++
			continue
		}
		obj, ok := s.catalog.GetByAttackID(tm.AttackID)
		if !ok {
			skipped++
			continue
		}
		mappings = append(mappings, &domain.Mapping{
			ID:             domain.GenerateID(),
			ReportID:       report.ID,
			SentenceID:     sentences[tm.Sentence].ID,
			AttackObjectID: obj.ID,
			Confidence:     tm.Confidence,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	return &domain.ReportGraph{
		Report:    report,
		Sentences: sentences,
		Mappings:  mappings,
	}, skipped
}

// Train builds a naive Bayes model from the accepted sentences of every
// stored report and activates it in the registry.
func (s *trainingService) Train(ctx context.Context) (*domain.ModelInfo, error) {
	examples, err := s.collectExamples(ctx)
	if err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("%w: no accepted sentences to train on", domain.ErrInvalidInput)
	}

	version := "nb-" + time.Now().UTC().Format("20060102-150405")
	model, skipped, err := classify.Train(version, examples, func(attackID string) (string, bool) {
		obj, ok := s.catalog.GetByAttackID(attackID)
		if !ok {
			return "", false
		}
		return obj.ID, true
	})
	if err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}
	if skipped > 0 {
		s.logger.Warn("training examples skipped", "skipped", skipped)
	}

	if s.modelPath != "" {
		if err := model.WriteFile(s.modelPath); err != nil {
			return nil, fmt.Errorf("save model: %w", err)
		}
	}

	info := model.Info()
	s.models.Set(model, info)

	s.logger.Info("classifier trained and activated",
		"version", info.Version,
		"classes", info.Classes,
		"examples", info.Examples,
	)
	return info, nil
}

// collectExamples flattens stored reports into labelled training examples:
// accepted sentences with their mapped attack ids.
func (s *trainingService) collectExamples(ctx context.Context) ([]domain.Example, error) {
	const page = 200

	var examples []domain.Example
	for offset := 0; ; offset += page {
		reports, err := s.reportStore.List(ctx, page, offset)
		if err != nil {
			return nil, fmt.Errorf("list reports: %w", err)
		}
		if len(reports) == 0 {
			break
		}

		for _, r := range reports {
			graph, err := s.reportStore.GetGraph(ctx, r.ID)
			if err != nil {
				return nil, fmt.Errorf("load report %s: %w", r.ID, err)
			}

			bySentence := make(map[string][]string)
			for _, m := range graph.Mappings {
				obj, ok := s.catalog.Get(m.AttackObjectID)
				if !ok {
					continue
				}
				bySentence[m.SentenceID] = append(bySentence[m.SentenceID], obj.AttackID)
			}
			for _, sentence := range graph.Sentences {
				if sentence.Disposition == nil || *sentence.Disposition != domain.DispositionAccept {
					continue
				}
				ids := bySentence[sentence.ID]
				if len(ids) == 0 {
					continue
				}
				examples = append(examples, domain.Example{Text: sentence.Text, AttackIDs: ids})
			}
		}

		if len(reports) < page {
			break
		}
	}
	return examples, nil
}

func (s *trainingService) ActiveModel() (*domain.ModelInfo, error) {
	return s.models.Info()
}

func parseCorpusTime(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range corpusTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
