package services

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTaskTypeAnalysis_Constant(t *testing.T) {
	if TaskTypeAnalysis != "analysis:process" {
		t.Errorf("TaskTypeAnalysis = %q, expected %q", TaskTypeAnalysis, "analysis:process")
	}
}

func TestSyncQueue_New(t *testing.T) {
	queue := NewSyncQueue()
	if queue == nil {
		t.Error("NewSyncQueue should not return nil")
	}
}

func TestSyncQueue_IsAsync(t *testing.T) {
	queue := NewSyncQueue()
	if queue.IsAsync() {
		t.Error("SyncQueue.IsAsync() should return false")
	}
}

func TestSyncQueue_Close(t *testing.T) {
	queue := NewSyncQueue()
	if err := queue.Close(); err != nil {
		t.Errorf("SyncQueue.Close() should return nil, got %v", err)
	}
}

func TestSyncQueue_EnqueueWithoutProcessor(t *testing.T) {
	queue := NewSyncQueue()

	err := queue.Enqueue(&AnalysisTask{FeedbackID: 1})
	if err != nil {
		t.Errorf("Enqueue without processor should not error, got %v", err)
	}
}

func TestSyncQueue_EnqueueInvokesProcessor(t *testing.T) {
	queue := NewSyncQueue()

	var mu sync.Mutex
	var got uint
	done := make(chan struct{})
	queue.SetProcessor(func(ctx context.Context, task *AnalysisTask) error {
		mu.Lock()
		got = task.FeedbackID
		mu.Unlock()
		close(done)
		return nil
	})

	if err := queue.Enqueue(&AnalysisTask{FeedbackID: 42}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if got != 42 {
		t.Errorf("processor received feedback %d, expected 42", got)
	}
}

func TestAsyncQueue_IsAsync(t *testing.T) {
	queue := &AsyncQueue{}
	if !queue.IsAsync() {
		t.Error("AsyncQueue.IsAsync() should return true")
	}
}
