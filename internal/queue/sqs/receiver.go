// Package sqs provides AWS SQS implementations of the queue interfaces.
package sqs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"queue-keeper/internal/config"
	"queue-keeper/internal/queue"
)

// maxWaitSeconds is the longest long-poll SQS accepts.
const maxWaitSeconds = 20

// System attribute names read from received messages.
const (
	attrMessageGroupID = string(types.MessageSystemAttributeNameMessageGroupId)
	attrReceiveCount   = string(types.MessageSystemAttributeNameApproximateReceiveCount)
)

// API is the subset of the SQS client the receiver and publisher use.
type API interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// NewClient builds an SQS client from the region, optional static
// credentials and optional endpoint override in cfg.
func NewClient(ctx context.Context, cfg *config.SQSConfig) (*sqs.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Receiver implements queue.Receiver over a single SQS queue.
type Receiver struct {
	client   API
	queueURL string
	logger   *slog.Logger
}

// NewReceiver creates a receiver for queueURL.
func NewReceiver(client API, queueURL string, logger *slog.Logger) *Receiver {
	return &Receiver{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Receive long-polls for at most one message.
func (r *Receiver) Receive(ctx context.Context, wait time.Duration) (*queue.Message, error) {
	out, err := r.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(r.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     waitSeconds(wait),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameAll,
		},
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive sqs message: %w", err)
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}

	return r.toMessage(out.Messages[0]), nil
}

func (r *Receiver) toMessage(m types.Message) *queue.Message {
	msg := &queue.Message{
		ID:            aws.ToString(m.MessageId),
		Body:          []byte(aws.ToString(m.Body)),
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
		RoutingKey:    m.Attributes[attrMessageGroupID],
		ReceiveCount:  1,
		Attributes:    make(map[string]string, len(m.Attributes)+len(m.MessageAttributes)),
	}

	for k, v := range m.Attributes {
		msg.Attributes[k] = v
	}
	for k, v := range m.MessageAttributes {
		if v.StringValue != nil {
			msg.Attributes[k] = *v.StringValue
		}
	}

	if raw, ok := m.Attributes[attrReceiveCount]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			msg.ReceiveCount = n
		} else {
			r.logger.Warn("unparsable receive count", "messageID", msg.ID, "value", raw)
		}
	}

	return msg
}

// Delete removes the message using its receipt handle.
func (r *Receiver) Delete(ctx context.Context, msg *queue.Message) error {
	_, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(r.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete sqs message: %w", err)
	}
	return nil
}

// Release sets the message's visibility timeout to zero so it is
// redelivered on the next receive.
func (r *Receiver) Release(ctx context.Context, msg *queue.Message) error {
	_, err := r.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(r.queueURL),
		ReceiptHandle:     aws.String(msg.ReceiptHandle),
		VisibilityTimeout: 0,
	})
	if err != nil {
		return fmt.Errorf("failed to release sqs message: %w", err)
	}
	return nil
}

// Close is a no-op; the SQS client holds no connections of its own.
func (r *Receiver) Close() error {
	return nil
}

// waitSeconds converts a wait duration into the SQS long-poll range.
func waitSeconds(wait time.Duration) int32 {
	s := int32(wait / time.Second)
	if s < 0 {
		return 0
	}
	if s > maxWaitSeconds {
		return maxWaitSeconds
	}
	return s
}

var _ queue.Receiver = (*Receiver)(nil)
