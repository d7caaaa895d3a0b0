// Package mainloop provides a single-goroutine executor that plays the role of
// a UI main thread for headless hosts.
package mainloop

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// DefaultQueueSize is the number of tasks that can be queued before Post blocks.
const DefaultQueueSize = 256

// Loop runs posted functions one at a time, in order, on the goroutine that calls Run.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// New creates a Loop with a task queue of the given size.
func New(queueSize int, logger *slog.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:  make(chan func(), queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post queues fn for execution on the loop goroutine.
// Functions posted after the loop stopped are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}

	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Run executes posted functions until ctx is cancelled. It returns nil on cancellation.
// A panicking task is logged and does not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Error("main loop task panicked",
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

func (l *Loop) stop() {
	l.once.Do(func() { close(l.done) })
}
