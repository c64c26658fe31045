package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunAll_Success(t *testing.T) {
	var count atomic.Int32

	task := func(_ context.Context) error {
		count.Add(1)
		return nil
	}
	results := RunAll(context.Background(), []Task{
		{Name: "task1", Func: task},
		{Name: "task2", Func: task},
		{Name: "task3", Func: task},
	})

	if count.Load() != 3 {
		t.Errorf("expected 3 tasks to run, got %d", count.Load())
	}
	if err := FirstError(results); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

func TestRunAll_Empty(t *testing.T) {
	if results := RunAll(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRunAll_KeepsOrder(t *testing.T) {
	results := RunAll(context.Background(), []Task{
		{Name: "slow", Func: func(_ context.Context) error {
			time.Sleep(30 * time.Millisecond)
			return errors.New("slow failed")
		}},
		{Name: "fast", Func: func(_ context.Context) error { return nil }},
	})

	if results[0].Name != "slow" || results[1].Name != "fast" {
		t.Fatalf("unexpected order: %+v", results)
	}
	if results[0].Err == nil || results[1].Err != nil {
		t.Errorf("unexpected errors: %+v", results)
	}
	if results[0].Elapsed < 30*time.Millisecond {
		t.Errorf("expected elapsed to cover the sleep, got %s", results[0].Elapsed)
	}
	if err := FirstError(results); err == nil || err.Error() != "slow failed" {
		t.Errorf("expected slow failed, got %v", err)
	}
}

func TestRunAll_RunsConcurrently(t *testing.T) {
	start := make(chan struct{})
	var ready atomic.Int32

	wait := func(_ context.Context) error {
		if ready.Add(1) == 2 {
			close(start)
		}
		select {
		case <-start:
			return nil
		case <-time.After(time.Second):
			return errors.New("tasks ran sequentially")
		}
	}
	results := RunAll(context.Background(), []Task{{Name: "a", Func: wait}, {Name: "b", Func: wait}})
	if err := FirstError(results); err != nil {
		t.Fatal(err)
	}
}
