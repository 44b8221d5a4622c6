// Package mainloop provides the single designated UI context.
//
// All presentation-facing state (the monitor's count, subscriber callbacks)
// is mutated only by functions executed on the loop goroutine. Other
// goroutines hand work to it with Post/TryPost/Do.
package mainloop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	logx "notifnuke/pkg/logx"
)

// ErrClosed is returned when work is handed to a loop that has stopped running.
var ErrClosed = errors.New("mainloop: closed")

const defaultQueueSize = 64

type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
	log   logx.Logger
}

func New(queueSize int, log logx.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		queue: make(chan func(), queueSize),
		done:  make(chan struct{}),
		log:   log,
	}
}

// Run executes queued functions serially until ctx is canceled.
// A loop can only run once; after Run returns every post fails with ErrClosed.
func (l *Loop) Run(ctx context.Context) error {
	defer l.close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.queue:
			l.exec(fn)
		}
	}
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Post queues fn, blocking while the queue is full.
// It reports false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// TryPost queues fn only if there is room right now.
func (l *Loop) TryPost(fn func()) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	default:
		return false
	}
}

// After runs fn on the loop once d has elapsed. If the loop has stopped by
// then, dropped (when non-nil) runs instead, off the loop. The returned timer
// may be stopped to cancel a callback that has not been queued yet.
func (l *Loop) After(d time.Duration, fn func(), dropped func()) *time.Timer {
	return time.AfterFunc(d, func() {
		if !l.Post(fn) && dropped != nil {
			dropped()
		}
	})
}

// Do runs fn on the loop and waits for it to finish.
// Must not be called from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.queue <- wrapped:
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// The loop may have executed fn right before stopping.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("loop callback panicked", logx.String("panic", fmt.Sprint(r)), logx.String("stack", string(debug.Stack())))
		}
	}()
	fn()
}

func (l *Loop) close() {
	l.once.Do(func() { close(l.done) })
}
