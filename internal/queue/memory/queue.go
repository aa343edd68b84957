// Package memory provides an in-memory implementation of the queue interfaces.
// This is useful for testing and development without external dependencies.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"queue-keeper/internal/queue"
)

// entry is a stored message and its delivery bookkeeping.
type entry struct {
	id             string
	body           []byte
	routingKey     string
	receipt        string
	receiveCount   int
	invisibleUntil time.Time
}

// Queue is an in-memory implementation of both Receiver and Publisher.
// A received message stays in the queue, invisible for the visibility
// timeout, until it is deleted or released. Messages are delivered in
// publish order. This implementation is safe for concurrent use.
type Queue struct {
	mu         sync.Mutex
	entries    []*entry
	visibility time.Duration
	closed     bool

	// notify wakes a waiting Receive after Publish or Release.
	notify chan struct{}
	now    func() time.Time
}

// NewQueue creates a new in-memory queue with the given visibility timeout.
func NewQueue(visibility time.Duration) *Queue {
	return &Queue{
		visibility: visibility,
		notify:     make(chan struct{}, 1),
		now:        time.Now,
	}
}

// Publish appends a message to the queue.
func (q *Queue) Publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.entries = append(q.entries, &entry{
		id:         ksuid.New().String(),
		body:       append([]byte(nil), body...),
		routingKey: routingKey,
	})
	q.mu.Unlock()

	q.wake()
	return nil
}

// Receive returns the oldest visible message, waiting up to wait for one
// to appear.
func (q *Queue) Receive(ctx context.Context, wait time.Duration) (*queue.Message, error) {
	deadline := q.now().Add(wait)

	for {
		msg, nextVisible, err := q.take()
		if err != nil || msg != nil {
			return msg, err
		}

		remaining := deadline.Sub(q.now())
		if remaining <= 0 {
			return nil, nil
		}
		if !nextVisible.IsZero() {
			if d := nextVisible.Sub(q.now()); d < remaining {
				remaining = d
			}
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-q.notify:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// take claims the first visible entry. When none is visible it returns the
// earliest time an in-flight entry becomes visible again.
func (q *Queue) take() (*queue.Message, time.Time, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, time.Time{}, ErrQueueClosed
	}

	now := q.now()
	var nextVisible time.Time

	for _, e := range q.entries {
		if e.invisibleUntil.After(now) {
			if nextVisible.IsZero() || e.invisibleUntil.Before(nextVisible) {
				nextVisible = e.invisibleUntil
			}
			continue
		}

		e.receiveCount++
		e.receipt = ksuid.New().String()
		e.invisibleUntil = now.Add(q.visibility)

		return &queue.Message{
			ID:            e.id,
			Body:          append([]byte(nil), e.body...),
			RoutingKey:    e.routingKey,
			ReceiptHandle: e.receipt,
			ReceiveCount:  e.receiveCount,
			Attributes:    map[string]string{},
		}, time.Time{}, nil
	}

	return nil, nextVisible, nil
}

// Delete removes a received message.
func (q *Queue) Delete(ctx context.Context, msg *queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(msg.ReceiptHandle)
	if i < 0 {
		return ErrReceiptNotFound
	}

	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return nil
}

// Release makes a received message visible again immediately.
func (q *Queue) Release(ctx context.Context, msg *queue.Message) error {
	q.mu.Lock()
	i := q.indexOf(msg.ReceiptHandle)
	if i < 0 {
		q.mu.Unlock()
		return ErrReceiptNotFound
	}
	q.entries[i].invisibleUntil = time.Time{}
	q.mu.Unlock()

	q.wake()
	return nil
}

// indexOf finds the in-flight entry holding receipt. Must hold q.mu.
func (q *Queue) indexOf(receipt string) int {
	if receipt == "" {
		return -1
	}

	now := q.now()
	for i, e := range q.entries {
		// an expired receipt no longer owns the message
		if e.receipt == receipt && e.invisibleUntil.After(now) {
			return i
		}
	}
	return -1
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Close shuts down the queue.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return nil
}

// Len returns the number of messages in the queue, in flight or not.
// Useful for testing to verify queue state.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}

// Bodies returns the bodies of all stored messages in order.
func (q *Queue) Bodies() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([][]byte, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, append([]byte(nil), e.body...))
	}
	return out
}

var (
	_ queue.Receiver  = (*Queue)(nil)
	_ queue.Publisher = (*Queue)(nil)
)
