package session

import (
	"io"
	"sync"
	"time"

	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/internal/timer"
)

// outbox is the write queue of a connection. Pieces are pushed by the session and written
// out by a separate flusher goroutine, so the session may go on parsing meanwhile. The
// order of bytes is preserved.
//
// When more than high bytes are pending, the outbox is throttled: pushing blocks until
// the pending amount drops to low.
//
// Every write is bounded by the timeout, if the writer supports deadlines. A write that
// failed to complete in time fails the outbox.
type outbox struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []byte
	spare     []byte
	inflight  int
	high, low int
	timeout   time.Duration
	throttled bool
	closed    bool
	err       error
	done      chan struct{}
}

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

func newOutbox(high, low int, timeout time.Duration) *outbox {
	o := &outbox{
		high:    high,
		low:     low,
		timeout: timeout,
		done:    make(chan struct{}),
	}
	o.cond = sync.NewCond(&o.mu)

	return o
}

// pending must be called with the mutex held.
func (o *outbox) pending() int {
	return len(o.queue) + o.inflight
}

// blocked must be called with the mutex held.
func (o *outbox) blocked() bool {
	switch size := o.pending(); {
	case size > o.high:
		o.throttled = true
	case size <= o.low:
		o.throttled = false
	}

	return o.throttled
}

// Push enqueues a copy of p. It blocks while the outbox is throttled.
func (o *outbox) Push(p []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for o.err == nil && !o.closed && o.blocked() {
		o.cond.Wait()
	}

	switch {
	case o.err != nil:
		return o.err
	case o.closed:
		return status.ErrSessionClosed
	}

	o.queue = append(o.queue, p...)
	o.cond.Broadcast()

	return nil
}

// Throttle blocks until the outbox isn't throttled anymore. Returns the write error, if
// any happened.
func (o *outbox) Throttle() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for o.err == nil && o.blocked() {
		o.cond.Wait()
	}

	return o.err
}

// Drain blocks until everything pushed so far is written.
func (o *outbox) Drain() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for o.err == nil && o.pending() > 0 {
		o.cond.Wait()
	}

	return o.err
}

// Pending returns the number of bytes not yet written.
func (o *outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.pending()
}

// Err returns the write error, if any happened.
func (o *outbox) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.err
}

// Close makes the flusher exit as soon as everything pending is written, and waits for
// it.
func (o *outbox) Close() error {
	o.mu.Lock()
	o.closed = true
	o.cond.Broadcast()
	o.mu.Unlock()

	<-o.done
	return o.Err()
}

// run is the flusher loop. It returns the error that failed the outbox, if any.
func (o *outbox) run(w io.Writer) error {
	defer close(o.done)

	deadliner, _ := w.(writeDeadliner)

	o.mu.Lock()
	defer o.mu.Unlock()

	for {
		for o.err == nil && len(o.queue) == 0 && !o.closed {
			o.cond.Wait()
		}

		if o.err != nil || len(o.queue) == 0 {
			return o.err
		}

		data := o.queue
		o.queue, o.spare = o.spare[:0], nil
		o.inflight = len(data)
		o.mu.Unlock()

		var err error
		if deadliner != nil {
			err = deadliner.SetWriteDeadline(timer.Deadline(o.timeout))
		}

		if err == nil {
			_, err = w.Write(data)
		}

		o.mu.Lock()
		o.inflight = 0
		o.spare = data[:0]
		if err != nil && o.err == nil {
			o.err = status.WrapTransport(err)
		}

		o.cond.Broadcast()
	}
}
