package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
)

//
// Test fakes – only for this file.
//

type fakeReadiness struct {
	mu    sync.Mutex
	ready bool
}

func (r *fakeReadiness) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// fakeClock is a settable clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingProcessor logs start/end of every call and can hold calls until
// released.
type recordingProcessor struct {
	mu     sync.Mutex
	events []string
	times  []time.Time
	calls  int

	hold    chan struct{}
	started chan string
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{started: make(chan string, 16)}
}

func (p *recordingProcessor) process(ctx context.Context, req domain.PairingRequest) (*domain.CodeBatch, error) {
	p.mu.Lock()
	p.calls++
	id := fmt.Sprintf("%s#%d", req.Phone, req.Count)
	p.events = append(p.events, "start "+id)
	p.times = append(p.times, time.Now())
	hold := p.hold
	p.mu.Unlock()

	p.started <- id

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		time.Sleep(5 * time.Millisecond)
	}

	p.mu.Lock()
	p.events = append(p.events, "end "+id)
	p.times = append(p.times, time.Now())
	p.mu.Unlock()

	return &domain.CodeBatch{Phone: req.Phone, Count: req.Count, Codes: make([]string, req.Count)}, nil
}

func (p *recordingProcessor) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *recordingProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func await(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

func awaitStart(t *testing.T, p *recordingProcessor) string {
	t.Helper()
	select {
	case id := <-p.started:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for processing to start")
		return ""
	}
}

func TestQueue_SamePhoneIsServedInOrderWithoutInterleaving(t *testing.T) {
	p := newRecordingProcessor()
	q := NewQueue(p.process, &fakeReadiness{ready: true}, 0, time.Minute)
	defer q.Stop()

	first := q.Enqueue("15551234567", 1)
	second := q.Enqueue("15551234567", 2)

	if out := await(t, first); out.Err != nil {
		t.Fatalf("first: unexpected error: %v", out.Err)
	}
	if out := await(t, second); out.Err != nil {
		t.Fatalf("second: unexpected error: %v", out.Err)
	}

	want := []string{"start 15551234567#1", "end 15551234567#1", "start 15551234567#2", "end 15551234567#2"}
	got := p.snapshot()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func TestQueue_CooldownBetweenSamePhoneRequests(t *testing.T) {
	p := newRecordingProcessor()
	cooldown := 40 * time.Millisecond
	q := NewQueue(p.process, &fakeReadiness{ready: true}, cooldown, time.Minute)
	defer q.Stop()

	first := q.Enqueue("15551234567", 1)
	second := q.Enqueue("15551234567", 2)
	await(t, first)
	await(t, second)

	p.mu.Lock()
	defer p.mu.Unlock()
	// times: start1, end1, start2, end2
	if gap := p.times[2].Sub(p.times[1]); gap < cooldown {
		t.Errorf("expected at least %v between requests, got %v", cooldown, gap)
	}
}

func TestQueue_DifferentPhonesAreIndependent(t *testing.T) {
	p := newRecordingProcessor()
	p.hold = make(chan struct{})
	q := NewQueue(p.process, &fakeReadiness{ready: true}, 0, time.Minute)
	defer q.Stop()

	a := q.Enqueue("15550000001", 1)
	b := q.Enqueue("15550000002", 1)

	// Both start while neither has finished.
	awaitStart(t, p)
	awaitStart(t, p)

	close(p.hold)
	await(t, a)
	await(t, b)
}

func TestQueue_NotReadyRejectsWithoutProcessing(t *testing.T) {
	p := newRecordingProcessor()
	q := NewQueue(p.process, &fakeReadiness{ready: false}, 0, time.Minute)
	defer q.Stop()

	out := await(t, q.Enqueue("15551234567", 3))
	if !errors.Is(out.Err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", out.Err)
	}
	if p.callCount() != 0 {
		t.Errorf("expected no processing, got %d calls", p.callCount())
	}
}

func TestQueue_ExpiredRequestIsRejectedOnDrain(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	p := newRecordingProcessor()
	p.hold = make(chan struct{})

	q := NewQueue(p.process, &fakeReadiness{ready: true}, 0, 5*time.Minute)
	q.now = clock.Now
	defer q.Stop()

	first := q.Enqueue("15551234567", 1)
	awaitStart(t, p)
	second := q.Enqueue("15551234567", 2)

	clock.Advance(6 * time.Minute)
	close(p.hold)

	if out := await(t, first); out.Err != nil {
		t.Fatalf("first: unexpected error: %v", out.Err)
	}
	out := await(t, second)
	if !errors.Is(out.Err, domain.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", out.Err)
	}
	if p.callCount() != 1 {
		t.Errorf("expected expired request not to be processed, got %d calls", p.callCount())
	}
}

func TestQueue_SweepExpiredRemovesOnlyAgedRequests(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	p := newRecordingProcessor()
	p.hold = make(chan struct{})

	q := NewQueue(p.process, &fakeReadiness{ready: true}, 0, 5*time.Minute)
	q.now = clock.Now
	defer q.Stop()

	q.Enqueue("15551234567", 1)
	awaitStart(t, p)
	old1 := q.Enqueue("15551234567", 2)
	old2 := q.Enqueue("15551234567", 3)

	clock.Advance(6 * time.Minute)
	fresh := q.Enqueue("15551234567", 4)

	if depth := q.Depth(); depth != 3 {
		t.Fatalf("expected depth 3 before sweep, got %d", depth)
	}

	if swept := q.SweepExpired(); swept != 2 {
		t.Fatalf("expected 2 swept, got %d", swept)
	}
	if depth := q.Depth(); depth != 1 {
		t.Errorf("expected depth 1 after sweep, got %d", depth)
	}

	for _, ch := range []<-chan Outcome{old1, old2} {
		if out := await(t, ch); !errors.Is(out.Err, domain.ErrExpired) {
			t.Errorf("expected ErrExpired, got %v", out.Err)
		}
	}

	close(p.hold)
	if out := await(t, fresh); out.Err != nil {
		t.Errorf("fresh: unexpected error: %v", out.Err)
	}
}

func TestQueue_StopRejectsPending(t *testing.T) {
	p := newRecordingProcessor()
	p.hold = make(chan struct{})
	q := NewQueue(p.process, &fakeReadiness{ready: true}, 0, time.Minute)

	inFlight := q.Enqueue("15551234567", 1)
	awaitStart(t, p)
	pending := q.Enqueue("15551234567", 2)

	q.Stop()

	if out := await(t, pending); !errors.Is(out.Err, domain.ErrQueueStopped) {
		t.Errorf("expected ErrQueueStopped for pending request, got %v", out.Err)
	}
	if out := await(t, inFlight); !errors.Is(out.Err, context.Canceled) {
		t.Errorf("expected in-flight work to see cancellation, got %v", out.Err)
	}
	if out := await(t, q.Enqueue("15551234567", 3)); !errors.Is(out.Err, domain.ErrQueueStopped) {
		t.Errorf("expected ErrQueueStopped after stop, got %v", out.Err)
	}
}

func TestQueue_ProcessErrorResolvesOnlyThatRequest(t *testing.T) {
	process := func(ctx context.Context, req domain.PairingRequest) (*domain.CodeBatch, error) {
		if req.Count == 1 {
			return nil, domain.ErrConnectionLost
		}
		return &domain.CodeBatch{Phone: req.Phone, Count: req.Count}, nil
	}
	q := NewQueue(process, &fakeReadiness{ready: true}, 0, time.Minute)
	defer q.Stop()

	failed := q.Enqueue("15551234567", 1)
	ok := q.Enqueue("15551234567", 2)

	if out := await(t, failed); !errors.Is(out.Err, domain.ErrConnectionLost) {
		t.Errorf("expected ErrConnectionLost, got %v", out.Err)
	}
	out := await(t, ok)
	if out.Err != nil || out.Batch == nil || out.Batch.Count != 2 {
		t.Errorf("expected second request to succeed, got %+v", out)
	}
}
