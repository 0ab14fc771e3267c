package logic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"MarketLink/app/common/consts/biz"
	webhookdal "MarketLink/app/dal/webhook"
	"MarketLink/app/services/sync/internal/mq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillQueue(t *testing.T, env *testEnv, appId int64, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := env.svcCtx.WebhookQueue.Enqueue(context.Background(), appId, webhookdal.Entry{
			SkuId:    fmt.Sprintf("%d", i),
			SellerId: "s",
		})
		require.NoError(t, err)
	}
}

func TestDequeueSplitsIntoBatches(t *testing.T) {
	env := newTestEnv(t)
	env.addApp(1)
	fillQueue(t, env, 1, 5)

	l := NewDequeueWebhooksLogic(context.Background(), env.svcCtx)
	err := l.Dequeue(&mq.DequeuePayload{AppId: 1, QueueName: biz.QueueWebhooks, BatchSize: 2})
	require.NoError(t, err)

	applies := env.dispatcher.byType(mq.TaskUpdateWebhookBatch)
	require.Len(t, applies, 3)

	var sizes []int
	var all []string
	for _, task := range applies {
		assert.Equal(t, biz.QueueWebhooks, task.Queue())
		var payload mq.UpdateBatchPayload
		require.NoError(t, json.Unmarshal(task.Task.Payload(), &payload))
		assert.Equal(t, int64(1), payload.AppId)
		sizes = append(sizes, len(payload.Batch))
		all = append(all, payload.Batch...)
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []string{"1#s", "2#s", "3#s", "4#s", "5#s"}, all)

	length, err := env.svcCtx.WebhookQueue.Len(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	// The drain lock must be free again.
	assert.False(t, env.mr.Exists("webhook_dequeue_lock:1"))
}

func TestDequeueEmptyQueueIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.addApp(1)

	l := NewDequeueWebhooksLogic(context.Background(), env.svcCtx)
	require.NoError(t, l.Dequeue(&mq.DequeuePayload{AppId: 1}))
	assert.Empty(t, env.dispatcher.tasks)
	assert.False(t, env.mr.Exists("webhook_dequeue_lock:1"))
}

func TestDequeueYieldsWhenDrainActive(t *testing.T) {
	env := newTestEnv(t)
	env.addApp(1)
	fillQueue(t, env, 1, 3)

	held := env.svcCtx.WebhookQueue.DequeueLock(1)
	acquired, err := held.AcquireCtx(context.Background())
	require.NoError(t, err)
	require.True(t, acquired)
	defer held.ReleaseCtx(context.Background())

	l := NewDequeueWebhooksLogic(context.Background(), env.svcCtx)
	require.NoError(t, l.Dequeue(&mq.DequeuePayload{AppId: 1}))

	// Nothing popped, nothing dispatched: the active drain owns the queue.
	assert.Empty(t, env.dispatcher.tasks)
	length, err := env.svcCtx.WebhookQueue.Len(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, length)
}

func TestDequeueReleasesLockOnDispatchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.addApp(1)
	fillQueue(t, env, 1, 3)
	env.dispatcher.failTypes[mq.TaskUpdateWebhookBatch] = errors.New("broker down")

	l := NewDequeueWebhooksLogic(context.Background(), env.svcCtx)
	err := l.Dequeue(&mq.DequeuePayload{AppId: 1})
	require.Error(t, err)

	assert.False(t, env.mr.Exists("webhook_dequeue_lock:1"))
}

func TestDequeueClearsDebounceMarker(t *testing.T) {
	env := newTestEnv(t)
	env.addApp(1)

	fresh, err := env.svcCtx.WebhookQueue.MarkScheduled(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, fresh)

	l := NewDequeueWebhooksLogic(context.Background(), env.svcCtx)
	require.NoError(t, l.Dequeue(&mq.DequeuePayload{AppId: 1}))

	// Marker gone: a new admission can arm the next drain.
	fresh, err = env.svcCtx.WebhookQueue.MarkScheduled(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestDequeueDefaultsBatchSizeAndQueue(t *testing.T) {
	env := newTestEnv(t)
	env.addApp(1)
	env.svcCtx.BatchSize = 10
	fillQueue(t, env, 1, 4)

	l := NewDequeueWebhooksLogic(context.Background(), env.svcCtx)
	require.NoError(t, l.Dequeue(&mq.DequeuePayload{AppId: 1}))

	applies := env.dispatcher.byType(mq.TaskUpdateWebhookBatch)
	require.Len(t, applies, 1)
	assert.Equal(t, biz.QueueWebhooks, applies[0].Queue())

	var payload mq.UpdateBatchPayload
	require.NoError(t, json.Unmarshal(applies[0].Task.Payload(), &payload))
	assert.Len(t, payload.Batch, 4)
}
