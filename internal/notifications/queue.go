package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/metrics"
)

// Notifier accepts notifications without making the caller wait on delivery.
type Notifier interface {
	Enqueue(ctx context.Context, n Notification)
}

type QueueParams struct {
	Dispatcher Dispatcher
	Logger     *logger.Logger
	Metrics    *metrics.NotificationMetrics
	Size       int
	Workers    int
	// Timeout bounds a single delivery. Zero means 10s.
	Timeout time.Duration
}

type queued struct {
	ctx context.Context
	n   Notification
}

// Queue delivers notifications in the background through a fixed worker pool.
// Delivery is at most once: failures are logged and counted, never retried.
type Queue struct {
	next    Dispatcher
	logg    *logger.Logger
	metrics *metrics.NotificationMetrics
	timeout time.Duration

	jobs   chan queued
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewQueue(p QueueParams) *Queue {
	if p.Size <= 0 {
		p.Size = 256
	}
	if p.Workers <= 0 {
		p.Workers = 4
	}
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	q := &Queue{
		next:    p.Dispatcher,
		logg:    p.Logger,
		metrics: p.Metrics,
		timeout: p.Timeout,
		jobs:    make(chan queued, p.Size),
	}
	for i := 0; i < p.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Enqueue never blocks. When the buffer is full or the queue is closed the
// notification is dropped with a warning.
func (q *Queue) Enqueue(ctx context.Context, n Notification) {
	if ctx == nil {
		ctx = context.Background()
	}
	logCtx := q.logg.WithFields(ctx, map[string]any{
		"notification_type": n.Type.String(),
		"notification_id":   n.ID.String(),
	})

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.metrics.IncDropped(n.Type.String())
		q.logg.Warn(logCtx, "notification.dropped_closed")
		return
	}

	select {
	case q.jobs <- queued{ctx: context.WithoutCancel(logCtx), n: n}:
	default:
		q.metrics.IncDropped(n.Type.String())
		q.logg.Warn(logCtx, "notification.dropped_full")
	}
}

// Close stops accepting work and waits for queued notifications to be sent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) work() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.deliver(job)
	}
}

func (q *Queue) deliver(job queued) {
	ctx, cancel := context.WithTimeout(job.ctx, q.timeout)
	defer cancel()

	if err := q.next.Dispatch(ctx, job.n); err != nil {
		q.metrics.IncFailed(job.n.Type.String())
		q.logg.Error(job.ctx, "notification.failed", err)
		return
	}
	q.metrics.IncDispatched(job.n.Type.String())
	q.logg.Info(job.ctx, "notification.sent")
}
