package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

func TestPoolRunsSubmittedTaskAndInvokesOnDone(t *testing.T) {
	p := New(Config{Workers: 2}, logx.Logger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var ran atomic.Bool
	done := make(chan Result, 1)
	err := p.Submit(context.Background(), Task{
		Label: "t",
		Run:   func(ctx context.Context) error { ran.Store(true); return nil },
		OnDone: func(res Result) {
			done <- res
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case res := <-done:
		if res.Err != nil {
			t.Fatalf("expected a clean result, got %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("OnDone was never called")
	}
	if !ran.Load() {
		t.Fatal("expected the task body to have run")
	}
}

func TestPoolRetriesFailingTaskUpToRetryMax(t *testing.T) {
	p := New(Config{Workers: 1, RetryMax: 2, RetryBase: time.Millisecond, RetryMaxDelay: 5 * time.Millisecond}, logx.Logger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var attempts atomic.Int32
	done := make(chan Result, 1)
	p.Submit(context.Background(), Task{
		Label: "flaky",
		Run: func(ctx context.Context) error {
			attempts.Add(1)
			return errors.New("boom")
		},
		OnDone: func(res Result) { done <- res },
	})

	select {
	case res := <-done:
		if res.Attempts != 3 {
			t.Fatalf("expected 3 attempts (1 + RetryMax 2), got %d", res.Attempts)
		}
		if res.Err == nil {
			t.Fatal("expected the final result to carry the last error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task never completed")
	}
	if attempts.Load() != 3 {
		t.Fatalf("expected the task body to run 3 times, got %d", attempts.Load())
	}
}

func TestPoolOverlapQueueSerializesSameKeyTasks(t *testing.T) {
	p := New(Config{Workers: 4}, logx.Logger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var mu sync.Mutex
	var order []int
	var running atomic.Int32
	var maxConcurrent atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		p.Submit(context.Background(), Task{
			Label:  "stateful",
			Key:    "job-x",
			Policy: OverlapQueue,
			Run: func(ctx context.Context) error {
				cur := running.Add(1)
				for {
					m := maxConcurrent.Load()
					if cur <= m || maxConcurrent.CompareAndSwap(m, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				running.Add(-1)
				return nil
			},
			OnDone: func(res Result) { wg.Done() },
		})
	}
	wg.Wait()

	if maxConcurrent.Load() > 1 {
		t.Fatalf("expected OverlapQueue to serialize same-key tasks, observed %d concurrent", maxConcurrent.Load())
	}
	if len(order) != 3 {
		t.Fatalf("expected all 3 tasks to complete, got %d", len(order))
	}
}

func TestPoolOverlapSkipDropsWhileBusy(t *testing.T) {
	p := New(Config{Workers: 4}, logx.Logger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	release := make(chan struct{})
	firstStarted := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(context.Background(), Task{
		Label:  "first",
		Key:    "job-y",
		Policy: OverlapSkip,
		Run: func(ctx context.Context) error {
			close(firstStarted)
			<-release
			return nil
		},
		OnDone: func(res Result) { wg.Done() },
	})

	<-firstStarted

	secondDone := make(chan Result, 1)
	p.Submit(context.Background(), Task{
		Label:  "second",
		Key:    "job-y",
		Policy: OverlapSkip,
		Run:    func(ctx context.Context) error { return nil },
		OnDone: func(res Result) { secondDone <- res },
	})

	select {
	case res := <-secondDone:
		if !res.Dropped {
			t.Fatal("expected the second same-key OverlapSkip submission to be dropped")
		}
	case <-time.After(time.Second):
		t.Fatal("second task's OnDone never fired")
	}

	close(release)
	wg.Wait()
}

func TestPoolShutdownDrainsInFlightTasks(t *testing.T) {
	p := New(Config{Workers: 2}, logx.Logger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var finished atomic.Bool
	p.Submit(context.Background(), Task{
		Label: "slow",
		Run: func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
			return nil
		},
	})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	if err := p.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !finished.Load() {
		t.Fatal("expected Shutdown to wait for the in-flight task to finish")
	}

	if err := p.Submit(context.Background(), Task{Label: "after-shutdown", Run: func(ctx context.Context) error { return nil }}); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown after Shutdown, got %v", err)
	}
}

func TestPoolAvailableSlotsReflectsPermits(t *testing.T) {
	p := New(Config{Workers: 2}, logx.Logger{})
	if p.AvailableSlots() != 2 {
		t.Fatalf("expected 2 available slots before Start, got %d", p.AvailableSlots())
	}
}
