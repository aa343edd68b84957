package sqs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"queue-keeper/internal/queue"
)

// ErrEmptyRoutingKey is returned when publishing to a FIFO queue without a
// message group.
var ErrEmptyRoutingKey = errors.New("routing key is required for fifo queues")

// Publisher implements queue.Publisher for a FIFO SQS queue. The routing
// key becomes the message group, which keeps per-key ordering.
type Publisher struct {
	client   API
	queueURL string
}

// NewPublisher creates a publisher for queueURL.
func NewPublisher(client API, queueURL string) *Publisher {
	return &Publisher{
		client:   client,
		queueURL: queueURL,
	}
}

// Publish sends body on the routingKey message group.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	if routingKey == "" {
		return ErrEmptyRoutingKey
	}

	_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               aws.String(p.queueURL),
		MessageBody:            aws.String(string(body)),
		MessageGroupId:         aws.String(routingKey),
		MessageDeduplicationId: aws.String(deduplicationID(routingKey, body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send sqs message: %w", err)
	}
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

// deduplicationID derives the FIFO deduplication id from group and content,
// so a retried send of the same event inside the dedup window is dropped.
func deduplicationID(routingKey string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(routingKey))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

var _ queue.Publisher = (*Publisher)(nil)
