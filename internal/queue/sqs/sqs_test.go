package sqs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records requests and returns canned responses.
type fakeAPI struct {
	messages []types.Message
	err      error

	receive    *sqs.ReceiveMessageInput
	deleted    *sqs.DeleteMessageInput
	visibility *sqs.ChangeMessageVisibilityInput
	sent       *sqs.SendMessageInput
}

func (f *fakeAPI) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.receive = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, nil
}

func (f *fakeAPI) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = in
	return &sqs.DeleteMessageOutput{}, f.err
}

func (f *fakeAPI) ChangeMessageVisibility(ctx context.Context, in *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.visibility = in
	return &sqs.ChangeMessageVisibilityOutput{}, f.err
}

func (f *fakeAPI) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = in
	return &sqs.SendMessageOutput{MessageId: aws.String("sent-1")}, f.err
}

const queueURL = "https://sqs.eu-west-1.amazonaws.com/123/stores.fifo"

func newTestReceiver(api API) *Receiver {
	return NewReceiver(api, queueURL, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestReceiver_ReceiveMapsAttributes(t *testing.T) {
	api := &fakeAPI{messages: []types.Message{{
		MessageId:     aws.String("m-1"),
		Body:          aws.String(`{"id":"store-1"}`),
		ReceiptHandle: aws.String("rh-1"),
		Attributes: map[string]string{
			"MessageGroupId":          "store-create-event",
			"ApproximateReceiveCount": "4",
		},
	}}}
	r := newTestReceiver(api)

	msg, err := r.Receive(context.Background(), 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, "m-1", msg.ID)
	assert.Equal(t, `{"id":"store-1"}`, string(msg.Body))
	assert.Equal(t, "store-create-event", msg.RoutingKey)
	assert.Equal(t, "rh-1", msg.ReceiptHandle)
	assert.Equal(t, 4, msg.ReceiveCount)

	assert.Equal(t, queueURL, aws.ToString(api.receive.QueueUrl))
	assert.EqualValues(t, 1, api.receive.MaxNumberOfMessages)
	assert.EqualValues(t, 5, api.receive.WaitTimeSeconds)
	assert.Contains(t, api.receive.MessageSystemAttributeNames, types.MessageSystemAttributeNameAll)
}

func TestReceiver_ReceiveEmpty(t *testing.T) {
	r := newTestReceiver(&fakeAPI{})

	msg, err := r.Receive(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestReceiver_ReceiveError(t *testing.T) {
	r := newTestReceiver(&fakeAPI{err: errors.New("throttled")})

	_, err := r.Receive(context.Background(), time.Second)
	assert.ErrorContains(t, err, "throttled")
}

func TestReceiver_DeleteAndRelease(t *testing.T) {
	api := &fakeAPI{}
	r := newTestReceiver(api)
	ctx := context.Background()

	msg, _ := r.Receive(ctx, 0)
	assert.Nil(t, msg)

	api.messages = []types.Message{{MessageId: aws.String("m"), ReceiptHandle: aws.String("rh-9")}}
	msg, err := r.Receive(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, msg))
	assert.Equal(t, "rh-9", aws.ToString(api.deleted.ReceiptHandle))

	require.NoError(t, r.Release(ctx, msg))
	assert.Equal(t, "rh-9", aws.ToString(api.visibility.ReceiptHandle))
	assert.EqualValues(t, 0, api.visibility.VisibilityTimeout)
}

func TestWaitSeconds(t *testing.T) {
	assert.EqualValues(t, 0, waitSeconds(-time.Second))
	assert.EqualValues(t, 0, waitSeconds(500*time.Millisecond))
	assert.EqualValues(t, 10, waitSeconds(10*time.Second))
	assert.EqualValues(t, 20, waitSeconds(time.Minute))
}

func TestPublisher_Publish(t *testing.T) {
	api := &fakeAPI{}
	p := NewPublisher(api, queueURL)

	require.NoError(t, p.Publish(context.Background(), "store-update-event", []byte(`{"id":"s"}`)))

	assert.Equal(t, "store-update-event", aws.ToString(api.sent.MessageGroupId))
	assert.Equal(t, `{"id":"s"}`, aws.ToString(api.sent.MessageBody))
	assert.Equal(t,
		deduplicationID("store-update-event", []byte(`{"id":"s"}`)),
		aws.ToString(api.sent.MessageDeduplicationId),
	)
	assert.NotEqual(t,
		deduplicationID("store-update-event", []byte(`{"id":"s"}`)),
		deduplicationID("store-create-event", []byte(`{"id":"s"}`)),
	)
}

func TestPublisher_RequiresRoutingKey(t *testing.T) {
	p := NewPublisher(&fakeAPI{}, queueURL)

	assert.ErrorIs(t, p.Publish(context.Background(), "", []byte(`{}`)), ErrEmptyRoutingKey)
}
