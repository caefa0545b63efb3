package queue_test

import (
	"context"
	"testing"
	"time"

	"go-gin-event-store/internal/model"
	"go-gin-event-store/internal/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func testStreamConfig() *queue.RedisStreamConfig {
	return &queue.RedisStreamConfig{
		ClaimMinIdleTime:   time.Hour,
		ReadGroupBlockTime: 50 * time.Millisecond,
	}
}

func TestRedisStreamEventChangeQueue(t *testing.T) {
	t.Run("PublishSubscribeAck", func(t *testing.T) {
		rdb := setupRedis(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q, err := queue.NewRedisStreamEventChangeQueue(ctx, rdb, "test", testStreamConfig())
		require.NoError(t, err)

		winner := "A. Player"
		change := model.NewEventChange(model.ChangeOpWinnerSet, 7, &model.Event{EventID: 7, WinnerPlayerName: &winner})
		require.NoError(t, q.Publish(ctx, change))

		deliveries, err := q.Subscribe(ctx)
		require.NoError(t, err)

		d := receive(t, deliveries)
		assert.Equal(t, model.ChangeOpWinnerSet, d.Data.Op)
		assert.Equal(t, int64(7), d.Data.EventID)
		require.NotNil(t, d.Data.Event)
		require.NotNil(t, d.Data.Event.WinnerPlayerName)
		assert.Equal(t, "A. Player", *d.Data.Event.WinnerPlayerName)

		d.Ack()

		pending, err := rdb.XPending(ctx, queue.StreamKey, queue.ConsumerGroupName).Result()
		require.NoError(t, err)
		assert.Zero(t, pending.Count)
	})

	t.Run("ExistingGroupIsReused", func(t *testing.T) {
		rdb := setupRedis(t)
		ctx := context.Background()

		_, err := queue.NewRedisStreamEventChangeQueue(ctx, rdb, "a", testStreamConfig())
		require.NoError(t, err)
		_, err = queue.NewRedisStreamEventChangeQueue(ctx, rdb, "b", testStreamConfig())

		assert.NoError(t, err)
	})

	t.Run("UndecodableEntryIsSkipped", func(t *testing.T) {
		rdb := setupRedis(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q, err := queue.NewRedisStreamEventChangeQueue(ctx, rdb, "test", testStreamConfig())
		require.NoError(t, err)

		require.NoError(t, rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: queue.StreamKey,
			Values: map[string]interface{}{"change": "{not json"},
		}).Err())
		require.NoError(t, q.Publish(ctx, model.NewEventChange(model.ChangeOpDeleted, 9, nil)))

		deliveries, err := q.Subscribe(ctx)
		require.NoError(t, err)

		d := receive(t, deliveries)
		assert.Equal(t, int64(9), d.Data.EventID)
		d.Ack()
	})
}

func fastClaimConfig(maxRetries int) *queue.RedisStreamConfig {
	return &queue.RedisStreamConfig{
		ClaimMinIdleTime:   100 * time.Millisecond,
		MaxRetryCount:      maxRetries,
		ReadGroupBlockTime: 50 * time.Millisecond,
	}
}

func pendingCount(t *testing.T, rdb *redis.Client) int64 {
	t.Helper()
	pending, err := rdb.XPending(context.Background(), queue.StreamKey, queue.ConsumerGroupName).Result()
	require.NoError(t, err)
	return pending.Count
}

func TestRedisStreamEventChangeQueue_AutoClaim(t *testing.T) {
	t.Run("NackRequeueIsRedelivered", func(t *testing.T) {
		rdb := setupRedis(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q, err := queue.NewRedisStreamEventChangeQueue(ctx, rdb, "test", fastClaimConfig(5))
		require.NoError(t, err)
		require.NoError(t, q.Publish(ctx, model.NewEventChange(model.ChangeOpDeleted, 11, nil)))

		deliveries, err := q.Subscribe(ctx)
		require.NoError(t, err)

		first := receive(t, deliveries)
		assert.Equal(t, int64(11), first.Data.EventID)
		first.Nack(true)
		assert.Equal(t, int64(1), pendingCount(t, rdb))

		again := receive(t, deliveries)
		assert.Equal(t, int64(11), again.Data.EventID)
		again.Ack()

		assert.Zero(t, pendingCount(t, rdb))
	})

	t.Run("PoisonEntryIsAckedAndDropped", func(t *testing.T) {
		rdb := setupRedis(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q, err := queue.NewRedisStreamEventChangeQueue(ctx, rdb, "test", fastClaimConfig(1))
		require.NoError(t, err)
		require.NoError(t, q.Publish(ctx, model.NewEventChange(model.ChangeOpDeleted, 12, nil)))

		deliveries, err := q.Subscribe(ctx)
		require.NoError(t, err)

		first := receive(t, deliveries)
		assert.Equal(t, int64(12), first.Data.EventID)
		first.Nack(true)

		assert.Eventually(t, func() bool {
			pending, err := rdb.XPending(context.Background(), queue.StreamKey, queue.ConsumerGroupName).Result()
			return err == nil && pending.Count == 0
		}, 2*time.Second, 50*time.Millisecond)

		select {
		case d := <-deliveries:
			t.Fatalf("entry past the retry limit was delivered again: %+v", d.Data)
		case <-time.After(300 * time.Millisecond):
		}
	})

	t.Run("AckAfterCancel", func(t *testing.T) {
		rdb := setupRedis(t)
		ctx, cancel := context.WithCancel(context.Background())

		q, err := queue.NewRedisStreamEventChangeQueue(ctx, rdb, "test", testStreamConfig())
		require.NoError(t, err)
		require.NoError(t, q.Publish(ctx, model.NewEventChange(model.ChangeOpDeleted, 13, nil)))

		deliveries, err := q.Subscribe(ctx)
		require.NoError(t, err)

		d := receive(t, deliveries)
		cancel()
		d.Ack()

		assert.Zero(t, pendingCount(t, rdb))
	})
}
