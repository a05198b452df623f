package quoteCache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrThrottleStopped = errors.New("error request throttle stopped")

type fetchFn func(ctx context.Context) (any, error)

type fetchResult struct {
	payload any
	err     error
}

type fetchRequest struct {
	ctx  context.Context
	fn   fetchFn
	done chan fetchResult
}

// RequestThrottle serializes calls to the rate-limited quote provider.
// A single worker drains a FIFO queue keeping at least minInterval between
// fetch starts. An idle queue starts a request with no added delay.
type RequestThrottle struct {
	queue    chan fetchRequest
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRequestThrottle(minInterval time.Duration, queueSize int) *RequestThrottle {
	t := &RequestThrottle{
		queue:    make(chan fetchRequest, queueSize),
		interval: minInterval,
		stop:     make(chan struct{}),
	}
	go t.worker()
	return t
}

func (t *RequestThrottle) worker() {
	var lastStart time.Time

	for {
		select {
		case <-t.stop:
			t.drain()
			return
		case req := <-t.queue:
			if !lastStart.IsZero() {
				if wait := t.interval - time.Since(lastStart); wait > 0 {
					timer := time.NewTimer(wait)
					select {
					case <-t.stop:
						timer.Stop()
						req.done <- fetchResult{err: ErrThrottleStopped}
						t.drain()
						return
					case <-timer.C:
					}
				}
			}

			lastStart = time.Now()
			payload, err := req.fn(req.ctx)
			req.done <- fetchResult{payload: payload, err: err}
		}
	}
}

func (t *RequestThrottle) drain() {
	for {
		select {
		case req := <-t.queue:
			req.done <- fetchResult{err: ErrThrottleStopped}
		default:
			return
		}
	}
}

// Do enqueues fn and blocks until its own fetch completes. Queue order is
// FIFO. Once the fetch started it always runs to completion, errors from fn
// propagate untouched.
func (t *RequestThrottle) Do(ctx context.Context, fn fetchFn) (any, error) {
	req := fetchRequest{ctx: ctx, fn: fn, done: make(chan fetchResult, 1)}

	select {
	case <-t.stop:
		return nil, ErrThrottleStopped
	case t.queue <- req:
	}

	select {
	case res := <-req.done:
		return res.payload, res.err
	case <-t.stop:
		// the worker may have raced us and already produced a result
		select {
		case res := <-req.done:
			return res.payload, res.err
		default:
			return nil, ErrThrottleStopped
		}
	}
}

func (t *RequestThrottle) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
		slog.Debug("request throttle stopped")
	})
}
