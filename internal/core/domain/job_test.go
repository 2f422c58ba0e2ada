package domain

import (
	"errors"
	"testing"
)

func TestJobLifecycle(t *testing.T) {
	job := NewProcessingJob("doc-1")

	if job.Status != JobStatusQueued {
		t.Fatalf("expected queued, got %s", job.Status)
	}
	if !job.Active() || job.Terminal() {
		t.Error("queued job should be active and not terminal")
	}

	if err := job.MarkRunning(); err != nil {
		t.Fatalf("mark running failed: %v", err)
	}
	if job.Status != JobStatusRunning || job.StartedAt == nil {
		t.Errorf("expected running with started_at, got %s", job.Status)
	}
	if !job.Active() {
		t.Error("running job should be active")
	}

	result := &AssemblyResult{ReportID: "rep-1", SentenceCount: 3, MappingCount: 2}
	if err := job.MarkSucceeded("rep-1", result); err != nil {
		t.Fatalf("mark succeeded failed: %v", err)
	}
	if job.Status != JobStatusSucceeded || job.CompletedAt == nil {
		t.Errorf("expected succeeded with completed_at, got %s", job.Status)
	}
	if job.ReportID == nil || *job.ReportID != "rep-1" {
		t.Error("expected report id recorded")
	}
	if job.Result == nil || job.Result.SentenceCount != 3 {
		t.Error("expected assembly result recorded")
	}
	if job.Active() || !job.Terminal() {
		t.Error("succeeded job should be terminal and inactive")
	}
}

func TestJobFailure(t *testing.T) {
	job := NewProcessingJob("doc-1")
	if err := job.MarkRunning(); err != nil {
		t.Fatalf("mark running failed: %v", err)
	}

	if err := job.MarkFailed(ErrorKindDocumentParse, "bad zip container"); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	if job.Status != JobStatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	if job.ErrorKind != ErrorKindDocumentParse || job.Error != "bad zip container" {
		t.Errorf("expected error details recorded, got %s %q", job.ErrorKind, job.Error)
	}
}

func TestJobTerminalStatesAreFinal(t *testing.T) {
	succeeded := NewProcessingJob("doc-1")
	_ = succeeded.MarkRunning()
	_ = succeeded.MarkSucceeded("rep-1", nil)

	if err := succeeded.MarkRunning(); !errors.Is(err, ErrJobTerminal) {
		t.Errorf("expected ErrJobTerminal, got %v", err)
	}
	if err := succeeded.MarkFailed(ErrorKindInternal, "x"); !errors.Is(err, ErrJobTerminal) {
		t.Errorf("expected ErrJobTerminal, got %v", err)
	}

	// Queued jobs cannot jump straight to succeeded.
	queued := NewProcessingJob("doc-2")
	if err := queued.MarkSucceeded("rep-1", nil); !errors.Is(err, ErrJobTerminal) {
		t.Errorf("expected ErrJobTerminal for queued->succeeded, got %v", err)
	}
}

func TestJobCancel(t *testing.T) {
	job := NewProcessingJob("doc-1")
	if err := job.Cancel(); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if job.Status != JobStatusCancelled || !job.Terminal() {
		t.Errorf("expected cancelled terminal state, got %s", job.Status)
	}

	running := NewProcessingJob("doc-2")
	_ = running.MarkRunning()
	if err := running.Cancel(); !errors.Is(err, ErrJobNotCancellable) {
		t.Errorf("expected ErrJobNotCancellable for running job, got %v", err)
	}
}
