package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/okian/triboard/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Test empty queue
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	// Test enqueue
	event1 := model.StatEvent{EventID: "event1", QuestionID: 1, Selected: "A", Correct: true}
	if !q.Enqueue(ctx, event1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	// Test dequeue
	eventChan := q.Dequeue(ctx)
	event := <-eventChan
	if event.EventID != "event1" {
		t.Errorf("expected event1, got %v", event.EventID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Fill the queue
	event1 := model.StatEvent{EventID: "event1", QuestionID: 1, Selected: "A", Correct: true}
	event2 := model.StatEvent{EventID: "event2", QuestionID: 2, Selected: "B", Correct: false}
	event3 := model.StatEvent{EventID: "event3", QuestionID: 3, Selected: "C", Correct: true}

	if !q.Enqueue(ctx, event1) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, event2) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(ctx, event3) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numEvents := 100

	// Start producer goroutines
	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numEvents; j++ {
				event := model.StatEvent{
					EventID:    fmt.Sprintf("event%d_%d", id, j),
					QuestionID: int64(id),
					Selected:   "A",
					Correct:    j%2 == 0,
				}
				for !q.Enqueue(ctx, event) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	// Start consumer goroutines
	consumed := make(chan string, numGoroutines*numEvents)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			eventChan := q.Dequeue(ctx)
			for event := range eventChan {
				consumed <- event.EventID
			}
		}()
	}

	// Wait for producers to finish
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	// Wait a bit for consumers to process
	time.Sleep(100 * time.Millisecond)

	// Check final queue length
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	// Enqueue some events
	event1 := model.StatEvent{EventID: "event1", QuestionID: 1, Selected: "A", Correct: true}
	event2 := model.StatEvent{EventID: "event2", QuestionID: 2, Selected: "B", Correct: false}

	if !q.Enqueue(ctx, event1) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, event2) {
		t.Error("expected enqueue to succeed")
	}

	// Check initial state
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	// Close the queue
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}

	// Check closed state
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	// Try to enqueue after closing (should fail)
	if q.Enqueue(ctx, event1) {
		t.Error("expected enqueue to fail after closing")
	}

	// Dequeue channel should drain the buffered events and then close
	eventChan := q.Dequeue(ctx)

	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case _, ok := <-eventChan:
			if !ok {
				goto channelClosed
			}
		case <-timeout:
			t.Error("expected dequeue channel to be closed within timeout")
			return
		}
	}
channelClosed:

	// Close again should not error
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
