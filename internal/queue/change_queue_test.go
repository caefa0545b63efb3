package queue_test

import (
	"context"
	"testing"
	"time"

	"go-gin-event-store/internal/model"
	"go-gin-event-store/internal/queue"
	apperrors "go-gin-event-store/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan queue.Delivery) queue.Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "delivery channel closed")
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	return queue.Delivery{}
}

func TestMemoryEventChangeQueue(t *testing.T) {
	t.Run("PublishThenSubscribe", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewMemoryEventChangeQueue(4)

		require.NoError(t, q.Publish(ctx, model.NewEventChange(model.ChangeOpDeleted, 7, nil)))
		deliveries, err := q.Subscribe(ctx)
		require.NoError(t, err)

		d := receive(t, deliveries)
		assert.Equal(t, model.ChangeOpDeleted, d.Data.Op)
		assert.Equal(t, int64(7), d.Data.EventID)
		d.Ack()
	})

	t.Run("FullBufferDoesNotBlock", func(t *testing.T) {
		q := queue.NewMemoryEventChangeQueue(1)
		ctx := context.Background()

		require.NoError(t, q.Publish(ctx, model.NewEventChange(model.ChangeOpCreated, 1, nil)))
		err := q.Publish(ctx, model.NewEventChange(model.ChangeOpCreated, 2, nil))

		assert.ErrorIs(t, err, apperrors.ErrQueueFull)
	})

	t.Run("NackRequeue", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewMemoryEventChangeQueue(2)
		require.NoError(t, q.Publish(ctx, model.NewEventChange(model.ChangeOpUpdated, 3, nil)))
		deliveries, err := q.Subscribe(ctx)
		require.NoError(t, err)

		receive(t, deliveries).Nack(true)
		again := receive(t, deliveries)

		assert.Equal(t, int64(3), again.Data.EventID)
	})

	t.Run("CancelClosesSubscription", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		q := queue.NewMemoryEventChangeQueue(1)
		deliveries, err := q.Subscribe(ctx)
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-deliveries:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("subscription not closed")
		}
	})
}

func TestNoopEventChangeQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := queue.NewNoopEventChangeQueue()

	assert.NoError(t, q.Publish(ctx, model.NewEventChange(model.ChangeOpCreated, 1, nil)))
	deliveries, err := q.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	_, ok := <-deliveries
	assert.False(t, ok)
}
