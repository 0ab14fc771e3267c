package svc

import (
	"context"
	"time"

	"MarketLink/app/common/consts/biz"
	"MarketLink/app/common/snowflake"
	appdal "MarketLink/app/dal/app"
	catalogdal "MarketLink/app/dal/catalog"
	productdal "MarketLink/app/dal/product"
	uploaddal "MarketLink/app/dal/upload"
	webhookdal "MarketLink/app/dal/webhook"
	"MarketLink/app/services/sync/internal/config"
	"MarketLink/app/services/sync/internal/flows"
	"MarketLink/app/services/sync/internal/updater"
	"MarketLink/app/services/sync/internal/vtex"

	"github.com/hibiken/asynq"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// Dispatcher is the slice of asynq.Client the logic layer uses, kept as an
// interface so tests can observe dispatched jobs.
type Dispatcher interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ServiceContext struct {
	Config config.Config

	DB    sqlx.SqlConn
	Redis *redis.Redis

	Apps         appdal.AppsModel
	Catalogs     catalogdal.CatalogsModel
	SyncLocks    catalogdal.SyncLockModel
	Products     productdal.ProductsModel
	Uploads      uploaddal.UploadsModel
	UploadLogs   uploaddal.UploadLogsModel
	WebhookQueue webhookdal.QueueModel
	WebhookLogs  webhookdal.WebhookLogsModel

	Dispatcher Dispatcher
	Vtex       vtex.API
	Flows      flows.API
	Updaters   *updater.Factory

	DebounceWindow time.Duration
	BatchSize      int
}

func NewServiceContext(c config.Config) *ServiceContext {
	logx.MustSetup(c.LogConf)

	db := sqlx.NewMysql(c.MysqlConf.DataSource)
	rds := redis.MustNewRedis(c.RedisConf)

	asynqAddr := c.AsynqConf.Addr
	if asynqAddr == "" {
		asynqAddr = c.RedisConf.Host
	}
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: asynqAddr})

	if c.SnowflakeNode > 0 {
		if err := snowflake.SetNodeID(c.SnowflakeNode); err != nil {
			logx.Errorf("failed to set snowflake node id: %v", err)
		}
	}

	window := time.Duration(c.DebounceSeconds) * time.Second
	if window <= 0 {
		window = biz.DefaultDebounceWindow
	}
	batchSize := c.BatchSize
	if batchSize <= 0 {
		batchSize = biz.DefaultBatchSize
	}

	vtexClient := vtex.NewClient()
	products := productdal.NewProductsModel(db)
	uploads := uploaddal.NewUploadsModel(db)
	uploadLogs := uploaddal.NewUploadLogsModel(db)

	return &ServiceContext{
		Config:       c,
		DB:           db,
		Redis:        rds,
		Apps:         appdal.NewAppsModel(db, c.CacheConf),
		Catalogs:     catalogdal.NewCatalogsModel(db),
		SyncLocks:    catalogdal.NewSyncLockModel(rds),
		Products:     products,
		Uploads:      uploads,
		UploadLogs:   uploadLogs,
		WebhookQueue: webhookdal.NewQueueModel(rds),
		WebhookLogs:  webhookdal.NewWebhookLogsModel(db),
		Dispatcher:   asynqClient,
		Vtex:         vtexClient,
		Flows:        flows.NewClient(c.FlowsConf.BaseUrl, c.FlowsConf.Token),
		Updaters: &updater.Factory{
			Vtex:       vtexClient,
			Products:   products,
			Uploads:    uploads,
			UploadLogs: uploadLogs,
		},
		DebounceWindow: window,
		BatchSize:      batchSize,
	}
}
