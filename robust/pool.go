package robust

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of goroutines running enumerator work at once.
// Run fans out and joins through an errgroup.Group whose SetLimit
// enforces the bound; NewPool also allocates a semaphore.Weighted of the
// same size, which Run does not acquire.
type Pool struct {
	sem *semaphore.Weighted
	n   int64
}

// NewPool returns a Pool that runs at most n tasks concurrently. n<=0
// is clamped to 1 so callers can't accidentally deadlock themselves.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n)), n: int64(n)}
}

// Size returns the pool's concurrency bound.
func (p *Pool) Size() int64 { return p.n }

// Run executes fn(i) for i in [0, count), at most p.Size() at a time,
// and returns the first error any invocation returned (all the rest
// still run to completion; errgroup cancels ctx but does not kill
// already-started goroutines).
func (p *Pool) Run(ctx context.Context, count int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(int(p.n))
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
