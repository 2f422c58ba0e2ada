package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// setupTestQueue creates a miniredis-backed queue
func setupTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	return q, mr, func() {
		client.Close()
		mr.Close()
	}
}

func TestQueueEnqueueDequeue(t *testing.T) {
	q, _, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := domain.NewProcessDocumentTask("doc-1", "job-1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a task")
	}
	if got.ID != task.ID {
		t.Errorf("expected task %s, got %s", task.ID, got.ID)
	}
	if got.Status != domain.TaskStatusProcessing {
		t.Errorf("expected processing, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", got.Attempts)
	}
	if got.DocumentID() != "doc-1" || got.JobID() != "job-1" {
		t.Errorf("payload lost in transit: %+v", got.Payload)
	}
}

func TestQueueAck(t *testing.T) {
	q, _, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := domain.NewProcessDocumentTask("doc-1", "job-1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatal(err)
	}
	if _, err := q.DequeueWithTimeout(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if err := q.Ack(ctx, task.ID); err != nil {
		t.Fatalf("ack failed: %v", err)
	}

	got, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at set")
	}
}

func TestQueueNackExhaustsAttempts(t *testing.T) {
	q, _, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	// process_document tasks have MaxAttempts 1, so a nack fails them.
	task := domain.NewProcessDocumentTask("doc-1", "job-1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatal(err)
	}
	if _, err := q.DequeueWithTimeout(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if err := q.Nack(ctx, task.ID, "pipeline exploded"); err != nil {
		t.Fatalf("nack failed: %v", err)
	}

	got, _ := q.GetTask(ctx, task.ID)
	if got.Status != domain.TaskStatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.Error != "pipeline exploded" {
		t.Errorf("expected error recorded, got %q", got.Error)
	}
}

func TestQueueNackRetries(t *testing.T) {
	q, _, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := domain.NewTask(domain.TaskTypeProcessDocument, map[string]string{"document_id": "d", "job_id": "j"})
	task.MaxAttempts = 3
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatal(err)
	}
	if _, err := q.DequeueWithTimeout(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if err := q.Nack(ctx, task.ID, "transient"); err != nil {
		t.Fatalf("nack failed: %v", err)
	}

	got, _ := q.GetTask(ctx, task.ID)
	if got.Status != domain.TaskStatusPending {
		t.Errorf("expected pending for retry, got %s", got.Status)
	}
	if !got.ScheduledFor.After(time.Now()) {
		t.Error("expected backoff before retry")
	}
}

func TestQueueScheduledTaskPromotion(t *testing.T) {
	q, _, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := domain.NewProcessDocumentTask("doc-1", "job-1")
	task.ScheduledFor = time.Now().Add(time.Hour)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatal(err)
	}

	// Not due yet.
	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("future task dequeued early: %s", got.ID)
	}

	// Make it due and dequeue again.
	stored, _ := q.GetTask(ctx, task.ID)
	stored.ScheduledFor = time.Now().Add(-time.Second)
	if err := q.Enqueue(ctx, stored); err != nil {
		t.Fatal(err)
	}

	got, err = q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != task.ID {
		t.Fatal("due task not promoted from the scheduled set")
	}
}

func TestQueueCancelTask(t *testing.T) {
	q, _, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	// Pending (scheduled) task cancels cleanly.
	task := domain.NewProcessDocumentTask("doc-1", "job-1")
	task.ScheduledFor = time.Now().Add(time.Hour)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatal(err)
	}
	if err := q.CancelTask(ctx, task.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	got, _ := q.GetTask(ctx, task.ID)
	if got.Status != domain.TaskStatusFailed || got.Error != "cancelled" {
		t.Errorf("expected failed/cancelled, got %s %q", got.Status, got.Error)
	}

	// Processing tasks cannot be cancelled.
	second := domain.NewProcessDocumentTask("doc-2", "job-2")
	if err := q.Enqueue(ctx, second); err != nil {
		t.Fatal(err)
	}
	if _, err := q.DequeueWithTimeout(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := q.CancelTask(ctx, second.ID); err == nil {
		t.Error("expected error cancelling a processing task")
	}

	// Unknown tasks error.
	if err := q.CancelTask(ctx, "missing"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestQueueGetTaskMissing(t *testing.T) {
	q, _, cleanup := setupTestQueue(t)
	defer cleanup()

	got, err := q.GetTask(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing task, got %+v", got)
	}
}

func TestQueuePing(t *testing.T) {
	q, mr, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	if err := q.Ping(ctx); err != nil {
		t.Errorf("ping failed: %v", err)
	}

	mr.Close()
	if err := q.Ping(ctx); err == nil {
		t.Error("expected ping failure after redis shutdown")
	}
}
