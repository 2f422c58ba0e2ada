package worker

import (
	"context"
	"testing"
	"time"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven/mocks"
	"github.com/veridian-labs/ttpmap-core/internal/core/services"
	"github.com/veridian-labs/ttpmap-core/internal/extract"
	"github.com/veridian-labs/ttpmap-core/internal/runtime"
	"github.com/veridian-labs/ttpmap-core/internal/segment"
)

type workerFixture struct {
	worker      *Worker
	queue       *mocks.MockTaskQueue
	jobStore    *mocks.MockJobStore
	docStore    *mocks.MockDocumentStore
	reportStore *mocks.MockReportStore
}

func newWorkerFixture(t *testing.T, withModel bool) *workerFixture {
	t.Helper()

	models := runtime.NewModels()
	if withModel {
		classifier := mocks.NewMockClassifier("nb-test")
		models.Set(classifier, &domain.ModelInfo{Version: "nb-test"})
	}

	f := &workerFixture{
		queue:       mocks.NewMockTaskQueue(),
		jobStore:    mocks.NewMockJobStore(),
		docStore:    mocks.NewMockDocumentStore(),
		reportStore: mocks.NewMockReportStore(),
	}

	pipeline := services.NewPipeline(services.PipelineConfig{
		Extractors:    extract.Default(),
		Segmenter:     segment.New(),
		Models:        models,
		ReportStore:   f.reportStore,
		DocumentStore: f.docStore,
		JobStore:      f.jobStore,
	})

	f.worker = New(Config{
		TaskQueue:      f.queue,
		Pipeline:       pipeline,
		Concurrency:    1,
		DequeueTimeout: 1,
	})
	return f
}

// enqueueJob seeds a document, a queued job and its task, returning the job id.
func (f *workerFixture) enqueueJob(t *testing.T, content []byte, mimeType string) string {
	t.Helper()
	ctx := context.Background()

	doc := domain.NewDocument("upload.txt", mimeType, content)
	if err := f.docStore.Save(ctx, doc); err != nil {
		t.Fatal(err)
	}
	job := domain.NewProcessingJob(doc.ID)
	if err := f.jobStore.Create(ctx, job); err != nil {
		t.Fatal(err)
	}
	task := domain.NewProcessDocumentTask(doc.ID, job.ID)
	task.ID = job.ID
	if err := f.queue.Enqueue(ctx, task); err != nil {
		t.Fatal(err)
	}
	return job.ID
}

// waitForTerminal polls until the job leaves its active states.
func (f *workerFixture) waitForTerminal(t *testing.T, jobID string) *domain.DocumentProcessingJob {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("job did not reach a terminal state")
		case <-time.After(10 * time.Millisecond):
		}
		job, err := f.jobStore.Get(context.Background(), jobID)
		if err != nil {
			t.Fatal(err)
		}
		if job.Terminal() {
			return job
		}
	}
}

func TestWorkerProcessesTask(t *testing.T) {
	f := newWorkerFixture(t, true)
	jobID := f.enqueueJob(t, []byte("The actor ran scripts."), "text/plain")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.worker.Stop()

	job := f.waitForTerminal(t, jobID)
	if job.Status != domain.JobStatusSucceeded {
		t.Fatalf("expected succeeded, got %s (%s)", job.Status, job.Error)
	}

	// Task acked on success.
	task, err := f.queue.GetTask(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed task, got %s", task.Status)
	}
}

func TestWorkerAcksRecordedFailure(t *testing.T) {
	// No model loaded: the pipeline fails, the failure lands on the job,
	// and the task is still acked because the outcome is recorded.
	f := newWorkerFixture(t, false)
	jobID := f.enqueueJob(t, []byte("Some text."), "text/plain")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.worker.Stop()

	job := f.waitForTerminal(t, jobID)
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.ErrorKind != domain.ErrorKindModelUnavailable {
		t.Errorf("expected model_unavailable, got %s", job.ErrorKind)
	}

	task, _ := f.queue.GetTask(ctx, jobID)
	if task.Status != domain.TaskStatusCompleted {
		t.Errorf("expected acked task, got %s", task.Status)
	}
}

func TestWorkerNacksUnrecordableError(t *testing.T) {
	// Task referencing a job that does not exist: nothing can be recorded,
	// so the task is nacked and, with attempts exhausted, fails.
	f := newWorkerFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task := domain.NewProcessDocumentTask("doc-x", "missing-job")
	if err := f.queue.Enqueue(ctx, task); err != nil {
		t.Fatal(err)
	}

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.worker.Stop()

	deadline := time.After(5 * time.Second)
	for {
		got, err := f.queue.GetTask(ctx, task.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status == domain.TaskStatusFailed {
			if got.Error == "" {
				t.Error("expected error recorded on failed task")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("task never failed, status %s", got.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWorkerStartStopIdempotent(t *testing.T) {
	f := newWorkerFixture(t, true)
	ctx := context.Background()

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	// Second start is a no-op.
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	f.worker.Stop()
	f.worker.Stop() // second stop is a no-op
}

func TestWorkerHealth(t *testing.T) {
	f := newWorkerFixture(t, true)
	ctx := context.Background()

	h := f.worker.Health(ctx)
	if h.Running {
		t.Error("worker reported running before start")
	}
	if !h.QueueHealth {
		t.Error("expected healthy queue")
	}

	if err := f.worker.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer f.worker.Stop()

	h = f.worker.Health(ctx)
	if !h.Running {
		t.Error("worker not reported running after start")
	}
}
