package workers

import (
	"context"
	"log"
	"sync"
	"time"
)

// Background runs named fire-and-forget jobs with a per-job timeout and
// tracks them so shutdown can wait. It exists so callers like lead intake
// can hand off delivery without inventing their own goroutine discipline.
type Background struct {
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewBackground(timeout time.Duration) *Background {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Background{timeout: timeout}
}

// Submit schedules fn on its own goroutine. Errors are logged, not
// propagated; jobs that matter must leave durable state for a sweep worker
// to retry. Submissions after Wait are dropped.
func (b *Background) Submit(name string, fn func(ctx context.Context) error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		log.Printf("Warning: background job %s dropped, runner is shut down", name)
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			log.Printf("Warning: background job %s failed after %s: %v", name, time.Since(start).Round(time.Millisecond), err)
			return
		}
		log.Printf("Background job %s finished in %s", name, time.Since(start).Round(time.Millisecond))
	}()
}

// Wait blocks until every submitted job finishes and refuses new work.
func (b *Background) Wait() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
