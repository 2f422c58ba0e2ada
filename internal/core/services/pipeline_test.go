package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven/mocks"
	"github.com/veridian-labs/ttpmap-core/internal/extract"
	"github.com/veridian-labs/ttpmap-core/internal/runtime"
	"github.com/veridian-labs/ttpmap-core/internal/segment"
)

type pipelineFixture struct {
	pipeline    *Pipeline
	reportStore *mocks.MockReportStore
	docStore    *mocks.MockDocumentStore
	jobStore    *mocks.MockJobStore
	classifier  *mocks.MockClassifier
	models      *runtime.Models
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	classifier := mocks.NewMockClassifier("nb-test")
	models := runtime.NewModels()
	models.Set(classifier, &domain.ModelInfo{Version: "nb-test", Classes: 2, Examples: 10})

	f := &pipelineFixture{
		reportStore: mocks.NewMockReportStore(),
		docStore:    mocks.NewMockDocumentStore(),
		jobStore:    mocks.NewMockJobStore(),
		classifier:  classifier,
		models:      models,
	}
	f.pipeline = NewPipeline(PipelineConfig{
		Extractors:       extract.Default(),
		Segmenter:        segment.New(),
		Models:           models,
		Policy:           NewDecisionPolicy(50),
		ReportStore:      f.reportStore,
		DocumentStore:    f.docStore,
		JobStore:         f.jobStore,
		InferConcurrency: 2,
	})
	return f
}

func TestAssembleFromText(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	text := "The actor ran powershell scripts. A phishing email delivered the loader. Nothing else happened."
	f.classifier.On("The actor ran powershell scripts.",
		domain.Candidate{AttackObjectID: "obj-ps", Confidence: 90},
		domain.Candidate{AttackObjectID: "obj-other", Confidence: 12},
	)
	f.classifier.On("A phishing email delivered the loader.",
		domain.Candidate{AttackObjectID: "obj-phish", Confidence: 75},
	)

	report, result, err := f.pipeline.Assemble(ctx, AssembleInput{
		Name:      "incident 7",
		Text:      text,
		CreatedBy: "analyst-1",
	})
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	if report.Name != "incident 7" || report.MLModel != "nb-test" {
		t.Errorf("unexpected report metadata: %+v", report)
	}
	if result.SentenceCount != 3 {
		t.Errorf("expected 3 sentences, got %d", result.SentenceCount)
	}
	if result.MappingCount != 2 {
		t.Errorf("expected 2 mappings above threshold, got %d", result.MappingCount)
	}
	if result.ModelVersion != "nb-test" {
		t.Errorf("expected model version nb-test, got %s", result.ModelVersion)
	}

	graph, err := f.reportStore.GetGraph(ctx, report.ID)
	if err != nil {
		t.Fatalf("graph not persisted: %v", err)
	}
	for i, s := range graph.Sentences {
		if s.Order != i {
			t.Errorf("sentence %d has order %d", i, s.Order)
		}
		if s.Disposition != nil {
			t.Error("pipeline set a disposition; sentences must start pending")
		}
	}
	for _, m := range graph.Mappings {
		if m.Confidence < 50 {
			t.Errorf("mapping below threshold persisted: %v", m.Confidence)
		}
	}
}

func TestAssembleOverflowSentenceSkipped(t *testing.T) {
	f := newPipelineFixture(t)

	long := strings.Repeat("word ", 120) + "end."
	if len(long) <= domain.SentenceOverflowLimit {
		t.Fatal("test sentence not oversized")
	}
	text := "Normal first sentence.\n" + long

	f.classifier.On("Normal first sentence.",
		domain.Candidate{AttackObjectID: "obj-1", Confidence: 80},
	)

	_, result, err := f.pipeline.Assemble(context.Background(), AssembleInput{Name: "r", Text: text})
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	if result.SentenceCount != 2 {
		t.Fatalf("expected 2 sentences, got %d", result.SentenceCount)
	}
	if result.MappingCount != 1 {
		t.Errorf("expected only the short sentence mapped, got %d", result.MappingCount)
	}
	if len(result.OverflowSentences) != 1 || result.OverflowSentences[0] != 1 {
		t.Errorf("expected overflow order [1], got %v", result.OverflowSentences)
	}
}

func TestAssembleExtractsIndicators(t *testing.T) {
	f := newPipelineFixture(t)

	text := "Beacon to 203.0.113.55 over hxxp://c2[.]bad-host[.]com/a was observed."
	_, result, err := f.pipeline.Assemble(context.Background(), AssembleInput{Name: "r", Text: text})
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if result.IndicatorCount != 2 {
		t.Errorf("expected 2 indicators (ip, url), got %d", result.IndicatorCount)
	}
}

func TestAssembleNoModel(t *testing.T) {
	f := newPipelineFixture(t)
	// An empty registry refuses every job up front.
	f.pipeline.models = runtime.NewModels()

	_, _, err := f.pipeline.Assemble(context.Background(), AssembleInput{Name: "r", Text: "Some text."})
	var pe *domain.PipelineError
	if !errors.As(err, &pe) || pe.Kind != domain.ErrorKindModelUnavailable {
		t.Errorf("expected model_unavailable, got %v", err)
	}
	if count, _ := f.reportStore.Count(context.Background()); count != 0 {
		t.Error("report persisted despite failure")
	}
}

func TestAssembleUnsupportedFormat(t *testing.T) {
	f := newPipelineFixture(t)

	doc := domain.NewDocument("payload.bin", "application/octet-stream", []byte{0x1})
	_, _, err := f.pipeline.Assemble(context.Background(), AssembleInput{Document: doc})
	var pe *domain.PipelineError
	if !errors.As(err, &pe) || pe.Kind != domain.ErrorKindDocumentParse {
		t.Errorf("expected document_parse, got %v", err)
	}
}

func TestAssemblePersistenceFailureLeavesNothing(t *testing.T) {
	f := newPipelineFixture(t)
	f.reportStore.SaveGraphErr = errors.New("connection reset")

	_, _, err := f.pipeline.Assemble(context.Background(), AssembleInput{Name: "r", Text: "One sentence."})
	var pe *domain.PipelineError
	if !errors.As(err, &pe) || pe.Kind != domain.ErrorKindPersistence {
		t.Errorf("expected persistence kind, got %v", err)
	}
	if count, _ := f.reportStore.Count(context.Background()); count != 0 {
		t.Error("partial report visible after failed save")
	}
}

func TestAssembleDocumentNameDefault(t *testing.T) {
	f := newPipelineFixture(t)

	doc := domain.NewDocument("apt-report.txt", "text/plain", []byte("The actor moved laterally."))
	report, _, err := f.pipeline.Assemble(context.Background(), AssembleInput{Document: doc})
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if report.Name != "apt-report.txt" {
		t.Errorf("expected document name as default, got %q", report.Name)
	}
	if report.DocumentID == nil || *report.DocumentID != doc.ID {
		t.Error("expected report linked to document")
	}
}

func TestProcessJobSuccess(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	doc := domain.NewDocument("report.txt", "text/plain", []byte("The actor ran scripts."))
	if err := f.docStore.Save(ctx, doc); err != nil {
		t.Fatal(err)
	}
	job := domain.NewProcessingJob(doc.ID)
	if err := f.jobStore.Create(ctx, job); err != nil {
		t.Fatal(err)
	}

	task := domain.NewProcessDocumentTask(doc.ID, job.ID)
	if err := f.pipeline.ProcessJob(ctx, task); err != nil {
		t.Fatalf("process job failed: %v", err)
	}

	stored, err := f.jobStore.Get(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.JobStatusSucceeded {
		t.Errorf("expected succeeded, got %s", stored.Status)
	}
	if stored.ReportID == nil {
		t.Fatal("expected report id on succeeded job")
	}
	if stored.Result == nil || stored.Result.SentenceCount != 1 {
		t.Errorf("expected assembly result on job, got %+v", stored.Result)
	}
	if _, err := f.reportStore.Get(ctx, *stored.ReportID); err != nil {
		t.Errorf("report not persisted: %v", err)
	}
}

func TestProcessJobRecordsFailure(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	doc := domain.NewDocument("payload.bin", "application/octet-stream", []byte{0x1})
	if err := f.docStore.Save(ctx, doc); err != nil {
		t.Fatal(err)
	}
	job := domain.NewProcessingJob(doc.ID)
	if err := f.jobStore.Create(ctx, job); err != nil {
		t.Fatal(err)
	}

	// A recorded pipeline failure is not a task error.
	task := domain.NewProcessDocumentTask(doc.ID, job.ID)
	if err := f.pipeline.ProcessJob(ctx, task); err != nil {
		t.Fatalf("expected nil error for recorded failure, got %v", err)
	}

	stored, _ := f.jobStore.Get(ctx, job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("expected failed, got %s", stored.Status)
	}
	if stored.ErrorKind != domain.ErrorKindDocumentParse {
		t.Errorf("expected document_parse kind, got %s", stored.ErrorKind)
	}
	if stored.Error == "" {
		t.Error("expected error message on job")
	}
}

func TestProcessJobSkipsCancelled(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	doc := domain.NewDocument("report.txt", "text/plain", []byte("text"))
	_ = f.docStore.Save(ctx, doc)
	job := domain.NewProcessingJob(doc.ID)
	_ = job.Cancel()
	if err := f.jobStore.Create(ctx, job); err != nil {
		t.Fatal(err)
	}

	task := domain.NewProcessDocumentTask(doc.ID, job.ID)
	if err := f.pipeline.ProcessJob(ctx, task); err != nil {
		t.Fatalf("expected cancelled job to be skipped, got %v", err)
	}

	stored, _ := f.jobStore.Get(ctx, job.ID)
	if stored.Status != domain.JobStatusCancelled {
		t.Errorf("cancelled job was touched: %s", stored.Status)
	}
	if count, _ := f.reportStore.Count(ctx); count != 0 {
		t.Error("report assembled for cancelled job")
	}
}

func TestProcessJobCancelRaceIsNotAnError(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	doc := domain.NewDocument("report.txt", "text/plain", []byte("Some text."))
	_ = f.docStore.Save(ctx, doc)
	job := domain.NewProcessingJob(doc.ID)
	if err := f.jobStore.Create(ctx, job); err != nil {
		t.Fatal(err)
	}

	// A cancel committed between the job load and the running-state write
	// surfaces as a rejected stale transition. The task must still complete.
	f.jobStore.UpdateErr = domain.ErrJobTerminal

	task := domain.NewProcessDocumentTask(doc.ID, job.ID)
	if err := f.pipeline.ProcessJob(ctx, task); err != nil {
		t.Fatalf("expected nil for cancel race, got %v", err)
	}
	if count, _ := f.reportStore.Count(ctx); count != 0 {
		t.Error("report assembled for a cancelled job")
	}
}

func TestProcessJobUnknownJob(t *testing.T) {
	f := newPipelineFixture(t)

	task := domain.NewProcessDocumentTask("doc-x", "missing-job")
	if err := f.pipeline.ProcessJob(context.Background(), task); err == nil {
		t.Error("expected error for unknown job")
	}
}
