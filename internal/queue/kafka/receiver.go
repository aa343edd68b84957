package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"queue-keeper/internal/config"
	"queue-keeper/internal/queue"
)

// ErrUnknownReceipt is returned when settling a message this receiver did
// not hand out or already settled.
var ErrUnknownReceipt = errors.New("unknown kafka receipt")

// Reader is the subset of *kafka.Reader the receiver uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewReader creates a consumer-group reader for the store event topic.
func NewReader(cfg *config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
}

// Receiver implements queue.Receiver using Kafka. Kafka has no per-message
// visibility, so Release re-publishes the message to the topic with its
// attempt count raised and then commits the original offset.
//
// A partition offset is only committed once every earlier offset handed out
// on that partition has been settled.
type Receiver struct {
	reader    Reader
	republish *Publisher
	logger    *slog.Logger

	mu         sync.Mutex
	inFlight   map[string]kafka.Message
	partitions map[int]*partitionOffsets
}

// partitionOffsets tracks fetched offsets of one partition until they are
// committed.
type partitionOffsets struct {
	unsettled map[int64]struct{}
	settled   map[int64]kafka.Message
}

// NewReceiver creates a receiver. republish must write to the topic reader
// consumes.
func NewReceiver(reader Reader, republish *Publisher, logger *slog.Logger) *Receiver {
	return &Receiver{
		reader:    reader,
		republish: republish,
		logger:    logger,
		inFlight:   make(map[string]kafka.Message),
		partitions: make(map[int]*partitionOffsets),
	}
}

// Receive fetches the next message, waiting at most wait.
func (r *Receiver) Receive(ctx context.Context, wait time.Duration) (*queue.Message, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	km, err := r.reader.FetchMessage(fetchCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch kafka message: %w", err)
	}

	msg := &queue.Message{
		ID:            fmt.Sprintf("%s/%d/%d", km.Topic, km.Partition, km.Offset),
		Body:          km.Value,
		RoutingKey:    string(km.Key),
		ReceiptHandle: receipt(km),
		ReceiveCount:  1,
		Attributes:    make(map[string]string, len(km.Headers)),
	}

	for _, h := range km.Headers {
		msg.Attributes[h.Key] = string(h.Value)
	}
	if rk, ok := msg.Attributes[headerRoutingKey]; ok {
		msg.RoutingKey = rk
	}
	if raw, ok := msg.Attributes[headerAttempt]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			msg.ReceiveCount = n + 1
		}
	}

	r.mu.Lock()
	r.inFlight[msg.ReceiptHandle] = km
	r.partition(km.Partition).unsettled[km.Offset] = struct{}{}
	r.mu.Unlock()

	return msg, nil
}

// Delete settles the message and commits its offset once no earlier offset
// on the partition is outstanding.
func (r *Receiver) Delete(ctx context.Context, msg *queue.Message) error {
	km, err := r.take(msg)
	if err != nil {
		return err
	}

	if err := r.commitSettled(ctx, km); err != nil {
		r.logger.Error("failed to commit message",
			"error", err,
			"partition", km.Partition,
			"offset", km.Offset,
		)
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

// Release re-publishes the message for another attempt and commits the
// original. Redelivery goes to the back of the partition.
func (r *Receiver) Release(ctx context.Context, msg *queue.Message) error {
	km, err := r.take(msg)
	if err != nil {
		return err
	}

	if err := r.republish.write(ctx, msg.RoutingKey, km.Value, msg.ReceiveCount); err != nil {
		// the receipt stays valid and the offset keeps holding back commits
		r.mu.Lock()
		r.inFlight[msg.ReceiptHandle] = km
		r.mu.Unlock()
		return fmt.Errorf("failed to republish message: %w", err)
	}

	if err := r.commitSettled(ctx, km); err != nil {
		return fmt.Errorf("failed to commit released message: %w", err)
	}
	return nil
}

// commitSettled marks km settled and commits the highest settled offset of
// its partition that has no unsettled offset below it. Nothing is committed
// while an earlier offset is still unsettled; it goes out with a later
// settle.
func (r *Receiver) commitSettled(ctx context.Context, km kafka.Message) error {
	next, ok := r.settle(km)
	if !ok {
		r.logger.Debug("holding commit behind unsettled offset",
			"partition", km.Partition,
			"offset", km.Offset,
		)
		return nil
	}

	if err := r.reader.CommitMessages(ctx, next); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.partition(next.Partition)
	for offset := range p.settled {
		if offset <= next.Offset {
			delete(p.settled, offset)
		}
	}
	return nil
}

// settle moves km from unsettled to settled and returns the message whose
// offset can be committed, if any.
func (r *Receiver) settle(km kafka.Message) (kafka.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.partition(km.Partition)
	delete(p.unsettled, km.Offset)
	p.settled[km.Offset] = km

	low := int64(math.MaxInt64)
	for offset := range p.unsettled {
		if offset < low {
			low = offset
		}
	}

	var next kafka.Message
	found := false
	for offset, m := range p.settled {
		if offset < low && (!found || offset > next.Offset) {
			next, found = m, true
		}
	}
	return next, found
}

func (r *Receiver) partition(id int) *partitionOffsets {
	p, ok := r.partitions[id]
	if !ok {
		p = &partitionOffsets{
			unsettled: make(map[int64]struct{}),
			settled:   make(map[int64]kafka.Message),
		}
		r.partitions[id] = p
	}
	return p
}

func (r *Receiver) take(msg *queue.Message) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	km, ok := r.inFlight[msg.ReceiptHandle]
	if !ok {
		return kafka.Message{}, ErrUnknownReceipt
	}
	delete(r.inFlight, msg.ReceiptHandle)
	return km, nil
}

// Close closes the Kafka reader and the republish writer.
func (r *Receiver) Close() error {
	var errs []error
	if r.reader != nil {
		errs = append(errs, r.reader.Close())
	}
	if r.republish != nil {
		errs = append(errs, r.republish.Close())
	}
	return errors.Join(errs...)
}

func receipt(km kafka.Message) string {
	return fmt.Sprintf("%d:%d", km.Partition, km.Offset)
}

var _ queue.Receiver = (*Receiver)(nil)
