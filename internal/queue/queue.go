// Package queue defines the transport interfaces the store event pipeline
// consumes from and the poller that drives them.
// This abstraction allows swapping implementations (SQS, Kafka, in-memory)
// without changing business logic.
package queue

import (
	"context"
	"time"
)

// Message represents a message received from the queue.
type Message struct {
	// ID is the transport's message id.
	ID string

	// Body is the message payload.
	Body []byte

	// RoutingKey is the message group the message was published on. It
	// selects the event variant the body encodes.
	RoutingKey string

	// ReceiptHandle identifies this particular delivery. Delete and Release
	// need it; a stale handle is rejected by the transport.
	ReceiptHandle string

	// ReceiveCount is how many times the message has been delivered,
	// including this delivery.
	ReceiveCount int

	// Attributes contains optional transport metadata.
	Attributes map[string]string
}

// Receiver defines the interface for consuming messages one at a time with
// explicit settlement.
type Receiver interface {
	// Receive waits up to wait for a single message. It returns nil, nil
	// when none arrived. Canceling ctx ends the wait early.
	Receive(ctx context.Context, wait time.Duration) (*Message, error)

	// Delete acknowledges a message so it is never delivered again.
	Delete(ctx context.Context, msg *Message) error

	// Release makes a message immediately visible for redelivery.
	Release(ctx context.Context, msg *Message) error

	// Close releases any resources held by the receiver.
	Close() error
}

// Publisher defines the interface for publishing messages to a queue.
// Implementations must be safe for concurrent use.
type Publisher interface {
	// Publish sends body on the given routing key. Messages sharing a
	// routing key are delivered in order.
	Publish(ctx context.Context, routingKey string, body []byte) error

	// Close releases any resources held by the publisher.
	Close() error
}

// Handler is a callback function for processing received messages.
// Return an error to indicate processing failure; the poller then decides
// between release and dead-lettering.
type Handler func(ctx context.Context, msg *Message) error

// DeadLetterSink receives messages the poller gives up on.
type DeadLetterSink interface {
	Send(ctx context.Context, msg *Message, cause error) error
}
