package logic

import (
	"context"
	"encoding/json"

	"MarketLink/app/common/consts/biz"
	webhookdal "MarketLink/app/dal/webhook"
	"MarketLink/app/services/sync/internal/mq"
	"MarketLink/app/services/sync/internal/svc"

	"github.com/hibiken/asynq"
	"github.com/zeromicro/go-zero/core/logx"
)

type DequeueWebhooksLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewDequeueWebhooksLogic(ctx context.Context, svcCtx *svc.ServiceContext) *DequeueWebhooksLogic {
	return &DequeueWebhooksLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// Dequeue drains the app's webhook queue in bounded batches under the per-app
// drain lock. Each batch is dispatched as a single apply job so the number of
// downstream jobs stays proportional to burst size, not event count. When the
// lock is already held another drain is active and will serve the queue.
func (l *DequeueWebhooksLogic) Dequeue(p *mq.DequeuePayload) error {
	// Clear the debounce marker first: events admitted from here on must be
	// able to arm a follow-up drain.
	if err := l.svcCtx.WebhookQueue.ClearScheduled(l.ctx, p.AppId); err != nil {
		l.Logger.Errorf("dequeue: clear debounce marker for app=%d: %v", p.AppId, err)
	}

	lock := l.svcCtx.WebhookQueue.DequeueLock(p.AppId)
	acquired, err := lock.AcquireCtx(l.ctx)
	if err != nil {
		return err
	}
	if !acquired {
		l.Logger.Infof("dequeue: drain already active for app=%d", p.AppId)
		return nil
	}
	defer func() {
		// Release must run on every exit path, even when the task context is
		// already canceled.
		if _, err := lock.ReleaseCtx(context.WithoutCancel(l.ctx)); err != nil {
			l.Logger.Errorf("dequeue: release lock for app=%d: %v", p.AppId, err)
		}
	}()

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = l.svcCtx.BatchSize
	}
	queueName := p.QueueName
	if queueName == "" {
		queueName = biz.QueueWebhooks
	}

	dispatched := 0
	for {
		entries, err := l.svcCtx.WebhookQueue.PopBatch(l.ctx, p.AppId, batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			break
		}
		if err := l.dispatchBatch(p, queueName, entries); err != nil {
			return err
		}
		dispatched++
	}

	l.Logger.Infof("dequeue: app=%d dispatched %d apply batches", p.AppId, dispatched)
	return nil
}

func (l *DequeueWebhooksLogic) dispatchBatch(p *mq.DequeuePayload, queueName string, entries []webhookdal.Entry) error {
	markers := make([]string, 0, len(entries))
	for _, e := range entries {
		markers = append(markers, e.Marker())
	}
	body, err := json.Marshal(mq.UpdateBatchPayload{
		AppId: p.AppId,
		Batch: markers,
	})
	if err != nil {
		return err
	}
	task := asynq.NewTask(mq.TaskUpdateWebhookBatch, body)
	_, err = l.svcCtx.Dispatcher.EnqueueContext(l.ctx, task, asynq.Queue(queueName))
	return err
}
