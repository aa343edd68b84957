package memory

import "errors"

// ErrQueueClosed is returned when attempting to use a closed queue.
var ErrQueueClosed = errors.New("queue is closed")

// ErrReceiptNotFound is returned for a receipt handle that no longer
// identifies an in-flight delivery.
var ErrReceiptNotFound = errors.New("receipt handle not found")
