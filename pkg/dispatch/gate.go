package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/montip/tipbot-middleware/internal/metrics"
	"github.com/montip/tipbot-middleware/pkg/tip"
)

// Gate bounds how many tips may be in flight and how many may wait for a
// slot. Anything beyond the wait queue is rejected immediately so webhook
// retries back off instead of piling up goroutines.
type Gate struct {
	slots      chan struct{}
	waiting    atomic.Int64
	queueDepth int64
}

// NewGate creates an admission gate with maxConcurrent executing slots and a
// wait queue of queueDepth.
func NewGate(maxConcurrent, queueDepth int) *Gate {
	return &Gate{
		slots:      make(chan struct{}, maxConcurrent),
		queueDepth: int64(queueDepth),
	}
}

// Acquire blocks until a slot is free or the context is done. When every slot
// is busy and the wait queue is already at queueDepth, it returns
// BackpressureError without waiting. Only blocked callers count against the
// queue; slot holders are bounded by the channel itself.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		metrics.InFlightDispatches.Inc()
		return nil
	default:
	}

	if g.waiting.Add(1) > g.queueDepth {
		g.waiting.Add(-1)
		return tip.BackpressureError()
	}
	metrics.QueuedDispatches.Inc()

	defer func() {
		g.waiting.Add(-1)
		metrics.QueuedDispatches.Dec()
	}()

	select {
	case g.slots <- struct{}{}:
		metrics.InFlightDispatches.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired with Acquire.
func (g *Gate) Release() {
	<-g.slots
	metrics.InFlightDispatches.Dec()
}
