package bootstrap

import (
	"context"
	"encoding/json"

	"MarketLink/app/services/sync/internal/logic"
	"MarketLink/app/services/sync/internal/mq"
	"MarketLink/app/services/sync/internal/svc"

	"github.com/hibiken/asynq"
)

func StartAsynq(sc *svc.ServiceContext) func() {
	addr := sc.Config.AsynqConf.Addr
	if addr == "" {
		addr = sc.Config.RedisConf.Host
	}
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: addr}, asynq.Config{
		Concurrency: sc.Config.AsynqServerConf.Concurrency,
		Queues:      sc.Config.AsynqServerConf.Queues,
	})
	mux := newAsynqMux(sc)
	go func() {
		if err := srv.Run(mux); err != nil {
			panic(err)
		}
	}()
	return func() {
		srv.Shutdown()
	}
}

func newAsynqMux(sc *svc.ServiceContext) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(mq.TaskDequeueWebhooks, func(ctx context.Context, t *asynq.Task) error {
		var p mq.DequeuePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}
		return logic.NewDequeueWebhooksLogic(ctx, sc).Dequeue(&p)
	})
	mux.HandleFunc(mq.TaskUpdateWebhookBatch, func(ctx context.Context, t *asynq.Task) error {
		var p mq.UpdateBatchPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}
		_, err := logic.NewUpdateBatchLogic(ctx, sc).UpdateBatch(&p)
		return err
	})
	mux.HandleFunc(mq.TaskInsertProducts, func(ctx context.Context, t *asynq.Task) error {
		var p mq.InsertProductsPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}
		return logic.NewInsertProductsLogic(ctx, sc).InsertProducts(&p)
	})
	mux.HandleFunc(mq.TaskInsertProductsBySellers, func(ctx context.Context, t *asynq.Task) error {
		var p mq.InsertBySellersPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}
		return logic.NewInsertBySellersLogic(ctx, sc).InsertBySellers(&p)
	})
	mux.HandleFunc(mq.TaskSyncCatalogs, func(ctx context.Context, t *asynq.Task) error {
		var p mq.SyncCatalogsPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}
		return logic.NewSyncCatalogsLogic(ctx, sc).SyncCatalogs(p.AppId)
	})
	mux.HandleFunc(mq.TaskSyncAllCatalogs, func(ctx context.Context, t *asynq.Task) error {
		return logic.NewSyncAllCatalogsLogic(ctx, sc).SyncAllCatalogs()
	})
	mux.HandleFunc(mq.TaskCleanup, func(ctx context.Context, t *asynq.Task) error {
		return logic.NewCleanupLogic(ctx, sc).Cleanup()
	})
	return mux
}
