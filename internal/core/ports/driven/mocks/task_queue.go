package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// MockTaskQueue is an in-memory mock implementation of TaskQueue for testing
type MockTaskQueue struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
	ready []string // pending task IDs in enqueue order

	EnqueueErr error
	PingErr    error
}

// NewMockTaskQueue creates a new MockTaskQueue
func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{
		tasks: make(map[string]*domain.Task),
	}
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	m.ready = append(m.ready, task.ID)
	return nil
}

func (m *MockTaskQueue) Dequeue(ctx context.Context) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range m.ready {
		task := m.tasks[id]
		if task.Status != domain.TaskStatusPending {
			continue
		}
		m.ready = append(m.ready[:i], m.ready[i+1:]...)
		task.MarkProcessing()
		return task, nil
	}
	return nil, nil
}

func (m *MockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	return m.Dequeue(ctx)
}

func (m *MockTaskQueue) Ack(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	task.MarkCompleted()
	return nil
}

func (m *MockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	if task.CanRetry() {
		task.Retry(reason)
		m.ready = append(m.ready, task.ID)
	} else {
		task.MarkFailed(reason)
	}
	return nil
}

func (m *MockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func (m *MockTaskQueue) CancelTask(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	if task.Status != domain.TaskStatusPending {
		return fmt.Errorf("task not found or not pending")
	}
	task.MarkFailed("cancelled")
	for i, id := range m.ready {
		if id == taskID {
			m.ready = append(m.ready[:i], m.ready[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockTaskQueue) PurgeTasks(ctx context.Context, olderThan int) (int, error) {
	return 0, nil
}

func (m *MockTaskQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &driven.QueueStats{}
	for _, t := range m.tasks {
		switch t.Status {
		case domain.TaskStatusPending:
			stats.PendingCount++
		case domain.TaskStatusProcessing:
			stats.ProcessingCount++
		case domain.TaskStatusCompleted:
			stats.CompletedCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (m *MockTaskQueue) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockTaskQueue) Close() error {
	return nil
}

func (m *MockTaskQueue) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = make(map[string]*domain.Task)
	m.ready = nil
}
