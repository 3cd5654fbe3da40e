package events

import (
	"context"
	"sync"
)

// Poster hands a callback to the presentation loop. Post never blocks and
// reports whether fn was accepted.
type Poster interface {
	Post(fn func()) bool
}

// Dispatcher is an unbounded FIFO of callbacks drained by a single
// presentation goroutine. Callbacks posted by one goroutine run in the
// order they were posted.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	signal chan struct{}
	done   chan struct{}
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post implements Poster. Callbacks posted after Close are dropped.
func (d *Dispatcher) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.signal <- struct{}{}:
	default:
	}
	return true
}

// Run executes callbacks on the calling goroutine until ctx is done or
// Close is called. After Close, remaining callbacks run before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		d.Drain()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.done:
			d.Drain()
			return nil
		case <-d.signal:
		}
	}
}

// Drain runs every queued callback on the calling goroutine and returns how many ran
func (d *Dispatcher) Drain() int {
	ran := 0
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return ran
		}
		batch := d.queue
		d.queue = nil
		d.mu.Unlock()

		for _, fn := range batch {
			fn()
			ran++
		}
	}
}

// Close stops accepting callbacks and lets Run finish
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.done)
}

// Pending returns the number of queued callbacks
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Immediate runs callbacks synchronously on the posting goroutine
type Immediate struct{}

// Post implements Poster
func (Immediate) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Ensure both implement Poster
var (
	_ Poster = (*Dispatcher)(nil)
	_ Poster = Immediate{}
)
