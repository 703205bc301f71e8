package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Observer receives one callback per completed fetch, from worker goroutines.
// Implementations must be safe for concurrent use.
type Observer func(fed Federation, res Result, dur time.Duration)

// Pool executes the retry loop concurrently over a batch of work items. The
// batch is split into contiguous near-equal chunks, one per worker; each
// worker owns a private session for the lifetime of its chunk.
type Pool struct {
	factory  SessionFactory
	retryer  *Retryer
	workers  int
	logger   *zap.Logger
	observer Observer
}

// NewPool clamps workers to at least one.
func NewPool(factory SessionFactory, retryer *Retryer, workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{factory: factory, retryer: retryer, workers: workers, logger: logger}
}

// SetObserver registers a per-fetch callback. Must be called before Run.
func (p *Pool) SetObserver(obs Observer) {
	p.observer = obs
}

// Run dispatches the items and blocks until every chunk has finished: the
// cycle merge needs the full barrier. Results arrive in chunk-completion
// order, keyed by each item's original table index. A worker whose session
// cannot be created contributes nothing; its items simply stay backlogged
// for the next cycle.
func (p *Pool) Run(ctx context.Context, fed Federation, items []Item) []Result {
	if len(items) == 0 {
		return nil
	}

	chunks := chunkItems(items, p.workers)
	resultCh := make(chan []Result, len(chunks))

	var g errgroup.Group
	for _, chunk := range chunks {
		g.Go(func() error {
			resultCh <- p.runChunk(ctx, fed, chunk)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors
	close(resultCh)

	results := make([]Result, 0, len(items))
	for batch := range resultCh {
		results = append(results, batch...)
	}
	return results
}

// runChunk owns exactly one session. Session setup failure is isolated here:
// the chunk is dropped, other workers are unaffected.
func (p *Pool) runChunk(ctx context.Context, fed Federation, chunk []Item) []Result {
	sess, err := p.factory.NewSession(ctx)
	if err != nil {
		p.logger.Warn("session setup failed, dropping chunk",
			zap.String("federation", string(fed)),
			zap.Int("chunk_size", len(chunk)),
			zap.Error(err),
		)
		return nil
	}
	defer func() {
		if cerr := sess.Close(context.WithoutCancel(ctx)); cerr != nil {
			p.logger.Warn("session close failed", zap.Error(cerr))
		}
	}()

	results := make([]Result, 0, len(chunk))
	for _, item := range chunk {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		outcome := p.fetchItem(ctx, sess, fed, item)
		results = append(results, Result{Index: item.Index, Outcome: outcome})
		if p.observer != nil {
			p.observer(fed, Result{Index: item.Index, Outcome: outcome}, time.Since(start))
		}
	}
	return results
}

func (p *Pool) fetchItem(ctx context.Context, sess Session, fed Federation, item Item) Outcome {
	// A row without an athlete ID has nothing to fetch.
	if item.AthleteID == nil {
		return Unresolved()
	}
	return p.retryer.Fetch(ctx, sess, ProfileURL(fed, *item.AthleteID))
}

// chunkItems splits items into contiguous near-equal chunks, at most one per
// worker. Every item lands in exactly one chunk and chunk sizes differ by at
// most one.
func chunkItems(items []Item, workers int) [][]Item {
	if workers <= 0 {
		workers = 1
	}
	n := len(items)
	if n == 0 {
		return nil
	}
	workers = min(workers, n)
	base := n / workers
	rem := n % workers
	chunks := make([][]Item, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < rem {
			size++
		}
		chunks = append(chunks, items[start:start+size])
		start += size
	}
	return chunks
}
