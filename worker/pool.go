// Package worker implements the bounded-concurrency worker pool
// and the per-provider Worker it runs.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oai-harvester/harvester/core"
	"github.com/oai-harvester/harvester/telemetry"
)

// Pool bounds concurrent endpoint harvests to a configured limit. It
// carries the same atomic counters, context-cancellable goroutines, and
// WaitGroup drain as orchestration.TaskWorkerPool, but is built around
// Acquire/Release semaphore semantics instead of a persistent dequeue
// loop: the Controller dispatches one Worker closure per eligible
// endpoint rather than pulling from a queue.
type Pool struct {
	limit  int
	permit chan struct{}
	logger core.Logger

	wg     sync.WaitGroup
	active atomic.Int32
}

// NewPool constructs a Pool admitting at most limit concurrent runs.
// Permits are acquired in FIFO order under contention,
// which a buffered channel provides for free: goroutines block on the
// same channel send and Go's runtime services blocked senders in
// roughly arrival order.
func NewPool(limit int, logger core.Logger) *Pool {
	if limit <= 0 {
		limit = 1
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Pool{limit: limit, permit: make(chan struct{}, limit), logger: logger}
}

// Active reports the number of runs currently holding a permit.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Limit reports the pool's configured concurrency cap.
func (p *Pool) Limit() int { return p.limit }

// Run blocks until a permit is available, then runs fn in a new
// goroutine under that permit, releasing it (and recovering any panic)
// when fn returns. Run itself does not block past permit acquisition —
// callers that need to wait for every dispatched run to finish call Wait.
func (p *Pool) Run(ctx context.Context, fn func(context.Context)) error {
	waitStart := time.Now()
	select {
	case p.permit <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	telemetry.Histogram("harvester.pool.wait_ms", float64(time.Since(waitStart).Milliseconds()))

	p.wg.Add(1)
	active := p.active.Add(1)
	telemetry.Gauge("harvester.pool.active", float64(active))
	go func() {
		defer p.wg.Done()
		defer func() { telemetry.Gauge("harvester.pool.active", float64(p.active.Add(-1))) }()
		defer func() { <-p.permit }()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("worker panic recovered", map[string]interface{}{"panic": fmt.Sprint(r)})
				telemetry.RecordError("harvester.pool.runs", "panic")
			}
		}()
		fn(ctx)
	}()
	return nil
}

// Wait blocks until every run dispatched via Run has returned.
func (p *Pool) Wait() { p.wg.Wait() }
