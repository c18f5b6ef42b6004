// Package bus provides the outbound stanza queue shared between the bot
// facade (many producers) and the send worker (single consumer).
package bus

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrQueueClosed is returned when publishing to a closed queue.
var ErrQueueClosed = errors.New("outbound queue closed")

// queueCapacity bounds memory under a dead connection; producers block
// once the backlog fills.
const queueCapacity = 256

// Queue is a FIFO of outbound messages, safe for concurrent enqueue.
type Queue struct {
	messages chan *OutboundMessage
	done     chan struct{}
	closed   atomic.Bool
	pending  atomic.Int64
}

// NewQueue creates an empty outbound queue.
func NewQueue() *Queue {
	return &Queue{
		messages: make(chan *OutboundMessage, queueCapacity),
		done:     make(chan struct{}),
	}
}

// Publish enqueues a message, blocking while the queue is full.
func (q *Queue) Publish(ctx context.Context, msg *OutboundMessage) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	q.pending.Add(1)
	select {
	case q.messages <- msg:
		return nil
	case <-q.done:
		q.pending.Add(-1)
		return ErrQueueClosed
	case <-ctx.Done():
		q.pending.Add(-1)
		return ctx.Err()
	}
}

// Consume dequeues the next message, blocking until one is available.
// The second return is false when the queue is closed.
func (q *Queue) Consume(ctx context.Context) (*OutboundMessage, bool) {
	select {
	case msg := <-q.messages:
		return msg, true
	case <-q.done:
		// Drain what was enqueued before close so no message is lost
		// silently on shutdown paths that still want to flush.
		select {
		case msg := <-q.messages:
			return msg, true
		default:
			return nil, false
		}
	case <-ctx.Done():
		return nil, false
	}
}

// MarkDone records that a consumed message reached a terminal state.
// The consumer must call this exactly once per consumed message.
func (q *Queue) MarkDone() {
	q.pending.Add(-1)
}

// Pending returns the number of messages enqueued but not yet terminal,
// including the one the consumer is currently transmitting.
func (q *Queue) Pending() int {
	return int(q.pending.Load())
}

// Flush blocks until the queue is fully drained (no enqueued and no
// in-flight messages) or ctx expires.
func (q *Queue) Flush(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if q.pending.Load() == 0 {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close rejects further publishes. Consumers drain the remaining backlog.
func (q *Queue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.done)
	}
}
