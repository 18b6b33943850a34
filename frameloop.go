package shapes

import (
	"context"
	"sync"
	"time"
)

// FrameHandle is a pending frame callback. Cancel prevents the callback
// from running; it is safe to call more than once and after the callback
// ran.
type FrameHandle interface {
	Cancel()
}

// FrameScheduler requests frame callbacks from the host, the way a
// browser's animation-frame request or a window's redraw request does.
type FrameScheduler interface {
	// RequestFrame arranges for fn to run once on a later frame.
	RequestFrame(fn func()) FrameHandle
}

// frameRequest is a FrameHandle shared by the schedulers in this file.
type frameRequest struct {
	mu       sync.Mutex
	fn       func()
	canceled bool
}

func (r *frameRequest) Cancel() {
	r.mu.Lock()
	r.canceled = true
	r.fn = nil
	r.mu.Unlock()
}

// take returns the callback unless the request was canceled, and marks it
// consumed.
func (r *frameRequest) take() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.canceled {
		return nil
	}
	fn := r.fn
	r.fn = nil
	return fn
}

// requestQueue holds the requests made since the last frame.
type requestQueue struct {
	mu      sync.Mutex
	pending []*frameRequest
}

func (q *requestQueue) push(fn func()) *frameRequest {
	r := &frameRequest{fn: fn}
	q.mu.Lock()
	q.pending = append(q.pending, r)
	q.mu.Unlock()
	return r
}

// run runs the requests queued before the call. Requests made by the
// callbacks wait for the next run.
func (q *requestQueue) run() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	ran := 0
	for _, r := range batch {
		if fn := r.take(); fn != nil {
			fn()
			ran++
		}
	}
	return ran
}

func (q *requestQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, r := range q.pending {
		r.mu.Lock()
		if !r.canceled {
			n++
		}
		r.mu.Unlock()
	}
	return n
}

// ManualScheduler runs frame callbacks only when Step is called. It suits
// tests and hosts that drive frames themselves.
type ManualScheduler struct {
	queue requestQueue
}

// RequestFrame implements FrameScheduler.
func (s *ManualScheduler) RequestFrame(fn func()) FrameHandle {
	return s.queue.push(fn)
}

// Step runs the callbacks requested since the previous Step and returns
// how many ran.
func (s *ManualScheduler) Step() int { return s.queue.run() }

// Pending returns the number of requests that would run on the next Step.
func (s *ManualScheduler) Pending() int { return s.queue.len() }

// TickerScheduler runs frame callbacks from a time.Ticker. Callbacks run
// on the goroutine that calls Run, so an Engine driven by it must not be
// used from other goroutines while Run is active.
type TickerScheduler struct {
	interval time.Duration
	queue    requestQueue
}

// NewTickerScheduler returns a scheduler ticking at the given interval.
// A non-positive interval selects 60 frames per second.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &TickerScheduler{interval: interval}
}

// RequestFrame implements FrameScheduler.
func (s *TickerScheduler) RequestFrame(fn func()) FrameHandle {
	return s.queue.push(fn)
}

// Run runs pending callbacks once per tick until ctx is done. It returns
// ctx.Err().
func (s *TickerScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.queue.run()
		}
	}
}
