package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/scrapeflow/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })

		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0))
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}

		bp = NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(2))
		if bp.concurrency != 2 {
			t.Errorf("expected concurrency 2, got %d", bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns runs in input order", func(t *testing.T) {
		t.Parallel()

		o := NewOrchestrator(&fakeFetcher{text: "Hello World"})
		bp := NewBatchProcessor(func() *Pipeline { return o.Pipeline() })

		urls := []string{"https://a.example", "https://b.example", "https://c.example"}
		runs, err := bp.ProcessBatch(context.Background(), urls)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		for i, run := range runs {
			if run.Request.URL != urls[i] {
				t.Errorf("expected %s at %d, got %s", urls[i], i, run.Request.URL)
			}
			if run.Output() != helloReport {
				t.Errorf("unexpected output %q", run.Output())
			}
		}
	})

	t.Run("failures do not stop other runs", func(t *testing.T) {
		t.Parallel()

		good := NewOrchestrator(&fakeFetcher{text: "ok"})
		bad := NewOrchestrator(&fakeFetcher{err: errors.New("refused")})

		var calls atomic.Int32
		bp := NewBatchProcessor(func() *Pipeline {
			if calls.Add(1)%2 == 0 {
				return bad.Pipeline()
			}
			return good.Pipeline()
		}, WithConcurrency(1))

		runs, err := bp.ProcessBatch(context.Background(), []string{"https://1", "https://2", "https://3"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		failed := 0
		for _, run := range runs {
			if run.Failed() {
				failed++
			}
		}
		if failed != 1 {
			t.Errorf("expected 1 failed run, got %d", failed)
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, maxSeen atomic.Int32
		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "slow",
				doFunc: func(_ context.Context, _ *model.Run) error {
					n := current.Add(1)
					for {
						m := maxSeen.Load()
						if n <= m || maxSeen.CompareAndSwap(m, n) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					current.Add(-1)
					return nil
				},
			})
			return p
		}, WithConcurrency(2))

		urls := []string{"https://1", "https://2", "https://3", "https://4", "https://5"}
		if _, err := bp.ProcessBatch(context.Background(), urls); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if maxSeen.Load() > 2 {
			t.Errorf("expected at most 2 concurrent runs, got %d", maxSeen.Load())
		}
	})

	t.Run("cancelled context yields cancelled runs", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		o := NewOrchestrator(&fakeFetcher{text: "x"})
		bp := NewBatchProcessor(func() *Pipeline { return o.Pipeline() })

		runs, err := bp.ProcessBatch(ctx, []string{"https://1", "https://2"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		for _, run := range runs {
			if run == nil || run.Status != model.StatusCancelled {
				t.Errorf("expected cancelled run, got %+v", run)
			}
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests streaming results.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(&fakeFetcher{text: "Hello World"})
	bp := NewBatchProcessor(func() *Pipeline { return o.Pipeline() })

	var mu sync.Mutex
	seen := make(map[int]string)

	urls := []string{"https://a", "https://b"}
	err := bp.ProcessBatchWithCallback(context.Background(), urls, func(run *model.Run, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = run.Request.URL
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != 2 || seen[0] != "https://a" || seen[1] != "https://b" {
		t.Errorf("unexpected callbacks: %v", seen)
	}
}
