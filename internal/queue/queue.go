package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
	"github.com/onurcolak/wa-pairing-service/pkg/metrics"
)

// ProcessFunc does the actual work for one request: generate and persist.
type ProcessFunc func(ctx context.Context, req domain.PairingRequest) (*domain.CodeBatch, error)

// Outcome resolves exactly one enqueued request.
type Outcome struct {
	Batch *domain.CodeBatch
	Err   error
}

type readiness interface {
	IsReady() bool
}

type pendingRequest struct {
	req    domain.PairingRequest
	result chan Outcome
}

// worker drains one phone's requests. At most one exists per phone.
type worker struct {
	pending    []*pendingRequest
	processing bool
}

// Queue serializes requests per phone number. Different phones are drained
// by independent workers with no ordering between them.
type Queue struct {
	process  ProcessFunc
	conn     readiness
	cooldown time.Duration
	maxAge   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	workers map[string]*worker
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

func NewQueue(process ProcessFunc, conn readiness, cooldown, maxAge time.Duration) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		process:  process,
		conn:     conn,
		cooldown: cooldown,
		maxAge:   maxAge,
		now:      time.Now,
		workers:  make(map[string]*worker),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start binds the queue to ctx: workers run under it and the queue stops
// when it is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	q.cancel()
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.mu.Unlock()

	go func() {
		<-ctx.Done()
		q.Stop()
	}()
}

// Enqueue appends a request to the phone's pending list and starts a worker
// if none is active. The returned channel receives exactly one Outcome.
func (q *Queue) Enqueue(phone string, count int) <-chan Outcome {
	p := &pendingRequest{
		req: domain.PairingRequest{
			Phone:      phone,
			Count:      count,
			EnqueuedAt: q.now(),
		},
		result: make(chan Outcome, 1),
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		p.result <- Outcome{Err: domain.ErrQueueStopped}
		return p.result
	}

	w, ok := q.workers[phone]
	if !ok {
		w = &worker{}
		q.workers[phone] = w
	}
	w.pending = append(w.pending, p)
	position := len(w.pending)

	if !w.processing {
		w.processing = true
		q.wg.Add(1)
		go q.drain(phone, w)
	}
	q.updateDepthLocked()
	q.mu.Unlock()

	logger.Debugf("Enqueued request for %s (count=%d, position=%d)", phone, count, position)

	return p.result
}

func (q *Queue) drain(phone string, w *worker) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if q.stopped || len(w.pending) == 0 {
			w.processing = false
			if q.workers[phone] == w && len(w.pending) == 0 {
				delete(q.workers, phone)
			}
			q.mu.Unlock()
			return
		}
		p := w.pending[0]
		w.pending = w.pending[1:]
		ctx := q.ctx
		q.updateDepthLocked()
		q.mu.Unlock()

		p.result <- q.handle(ctx, p.req)

		// Cooldown before the next request for this phone, including ones
		// that arrive while waiting.
		if q.cooldown > 0 {
			t := time.NewTimer(q.cooldown)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			}
		}
	}
}

func (q *Queue) handle(ctx context.Context, req domain.PairingRequest) Outcome {
	if age := q.now().Sub(req.EnqueuedAt); q.maxAge > 0 && age > q.maxAge {
		metrics.QueueExpired.Inc()
		logger.Warnf("Request for %s expired after %v in queue", req.Phone, age.Round(time.Second))
		return Outcome{Err: fmt.Errorf("%w: waited %v", domain.ErrExpired, age.Round(time.Second))}
	}

	if !q.conn.IsReady() {
		logger.Warnf("Rejecting request for %s: connection not ready", req.Phone)
		return Outcome{Err: domain.ErrNotReady}
	}

	batch, err := q.process(ctx, req)
	if err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Batch: batch}
}

// SweepExpired removes and rejects pending requests older than the max age.
// It returns how many were rejected.
func (q *Queue) SweepExpired() int {
	if q.maxAge <= 0 {
		return 0
	}

	now := q.now()
	swept := 0

	q.mu.Lock()
	for phone, w := range q.workers {
		kept := w.pending[:0]
		for _, p := range w.pending {
			age := now.Sub(p.req.EnqueuedAt)
			if age > q.maxAge {
				p.result <- Outcome{Err: fmt.Errorf("%w: waited %v", domain.ErrExpired, age.Round(time.Second))}
				swept++
				continue
			}
			kept = append(kept, p)
		}
		w.pending = kept

		if len(w.pending) == 0 && !w.processing {
			delete(q.workers, phone)
		}
	}
	q.updateDepthLocked()
	q.mu.Unlock()

	if swept > 0 {
		metrics.QueueExpired.Add(float64(swept))
		logger.Warnf("Swept %d expired requests from the queue", swept)
	}
	return swept
}

// Depth is the number of requests waiting across all phones, excluding the
// ones currently being processed.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depthLocked()
}

func (q *Queue) depthLocked() int {
	depth := 0
	for _, w := range q.workers {
		depth += len(w.pending)
	}
	return depth
}

func (q *Queue) updateDepthLocked() {
	metrics.QueueDepth.Set(float64(q.depthLocked()))
}

// Stop rejects everything still pending and waits for in-flight work.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true

	var rejected []*pendingRequest
	for _, w := range q.workers {
		rejected = append(rejected, w.pending...)
		w.pending = nil
	}
	q.cancel()
	q.updateDepthLocked()
	q.mu.Unlock()

	for _, p := range rejected {
		p.result <- Outcome{Err: domain.ErrQueueStopped}
	}

	q.wg.Wait()
	logger.Infof("Request queue stopped (%d pending requests rejected)", len(rejected))
}
