package bootstrap

import (
	"MarketLink/app/common/consts/biz"
	"MarketLink/app/services/sync/internal/mq"
	"MarketLink/app/services/sync/internal/svc"

	"github.com/hibiken/asynq"
	"github.com/zeromicro/go-zero/core/logx"
)

// StartScheduler registers the periodic jobs: the fleet-wide catalog
// reconciliation sweep and the log/upload maintenance sweep.
func StartScheduler(sc *svc.ServiceContext) func() {
	addr := sc.Config.AsynqConf.Addr
	if addr == "" {
		addr = sc.Config.RedisConf.Host
	}
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: addr}, nil)

	entries := []struct {
		spec string
		task *asynq.Task
	}{
		{sc.Config.CatalogSyncSpec, asynq.NewTask(mq.TaskSyncAllCatalogs, nil)},
		{sc.Config.CleanupSpec, asynq.NewTask(mq.TaskCleanup, nil)},
	}
	for _, e := range entries {
		if _, err := scheduler.Register(e.spec, e.task, asynq.Queue(biz.QueueDefault)); err != nil {
			logx.Errorf("scheduler: register %s (%s): %v", e.task.Type(), e.spec, err)
		}
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			panic(err)
		}
	}()
	return func() {
		scheduler.Shutdown()
	}
}
