package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_ReceiveInPublishOrder(t *testing.T) {
	q := NewQueue(time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "store-create-event", []byte(`{"id":"a"}`)))
	require.NoError(t, q.Publish(ctx, "store-update-event", []byte(`{"id":"b"}`)))

	first, err := q.Receive(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "store-create-event", first.RoutingKey)
	assert.Equal(t, 1, first.ReceiveCount)
	assert.NotEmpty(t, first.ReceiptHandle)

	second, err := q.Receive(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "store-update-event", second.RoutingKey)

	assert.Equal(t, 2, q.Len(), "received messages stay until deleted")
}

func TestQueue_EmptyReceiveReturnsNil(t *testing.T) {
	q := NewQueue(time.Minute)

	msg, err := q.Receive(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestQueue_DeleteRemovesMessage(t *testing.T) {
	q := NewQueue(time.Minute)
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, "store-create-event", []byte(`{}`)))

	msg, err := q.Receive(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, q.Delete(ctx, msg))

	assert.Equal(t, 0, q.Len())
	assert.ErrorIs(t, q.Delete(ctx, msg), ErrReceiptNotFound)
}

func TestQueue_ReleaseRedeliversWithHigherCount(t *testing.T) {
	q := NewQueue(time.Minute)
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, "store-update-event", []byte(`{}`)))

	msg, err := q.Receive(ctx, 0)
	require.NoError(t, err)

	again, err := q.Receive(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, again, "in-flight message must be invisible")

	require.NoError(t, q.Release(ctx, msg))

	again, err = q.Receive(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, msg.ID, again.ID)
	assert.Equal(t, 2, again.ReceiveCount)
	assert.NotEqual(t, msg.ReceiptHandle, again.ReceiptHandle)

	// the first receipt is stale once the message was delivered again
	assert.ErrorIs(t, q.Delete(ctx, msg), ErrReceiptNotFound)
}

func TestQueue_VisibilityTimeoutExpires(t *testing.T) {
	q := NewQueue(time.Minute)
	now := time.Now()
	q.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, "store-create-event", []byte(`{}`)))

	msg, err := q.Receive(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, msg)

	now = now.Add(2 * time.Minute)

	again, err := q.Receive(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 2, again.ReceiveCount)
}

func TestQueue_ReceiveWakesOnPublish(t *testing.T) {
	q := NewQueue(time.Minute)
	ctx := context.Background()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.Publish(ctx, "store-create-event", []byte(`{}`))
	}()

	msg, err := q.Receive(ctx, 2*time.Second)
	require.NoError(t, err)
	assert.NotNil(t, msg)
}

func TestQueue_ReceiveHonorsCancellation(t *testing.T) {
	q := NewQueue(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := q.Receive(ctx, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestQueue_Closed(t *testing.T) {
	q := NewQueue(time.Minute)
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Publish(context.Background(), "store-create-event", nil), ErrQueueClosed)

	_, err := q.Receive(context.Background(), 0)
	assert.ErrorIs(t, err, ErrQueueClosed)
}
