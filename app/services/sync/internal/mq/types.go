package mq

import "MarketLink/app/services/sync/internal/vtex"

const (
	TaskDequeueWebhooks    = "webhook:dequeue"
	TaskUpdateWebhookBatch = "webhook:update_batch"

	TaskInsertProducts          = "vtex:insert_products"
	TaskInsertProductsBySellers = "vtex:insert_products_by_sellers"

	TaskSyncCatalogs    = "catalog:sync"
	TaskSyncAllCatalogs = "catalog:sync_all"

	TaskCleanup = "maintenance:cleanup"
)

// DequeuePayload triggers one drain pass over an app's webhook queue.
// QueueName names the asynq queue follow-up apply jobs go to; a tenant's
// dispatch priority is already resolved into it at scheduling time.
type DequeuePayload struct {
	AppId     int64  `json:"app_id"`
	QueueName string `json:"queue_name"`
	BatchSize int    `json:"batch_size"`
}

// UpdateBatchPayload carries one drained batch of change markers to the apply
// worker. Batch holds encoded "sku#seller" markers in queue order.
type UpdateBatchPayload struct {
	AppId int64    `json:"app_id"`
	Batch []string `json:"batch"`
}

// InsertProductsPayload runs a whole-catalog bulk insertion.
type InsertProductsPayload struct {
	AppId       int64            `json:"app_id"`
	Credentials vtex.Credentials `json:"credentials"`
	CatalogId   string           `json:"catalog_id"`
}

// InsertBySellersPayload runs a seller-scoped bulk insertion. Either Sellers
// or SyncAllSellers must be provided; otherwise the job is a silent no-op.
type InsertBySellersPayload struct {
	AppId          int64            `json:"app_id"`
	Credentials    vtex.Credentials `json:"credentials"`
	CatalogId      string           `json:"catalog_id"`
	Sellers        []string         `json:"sellers"`
	SyncAllSellers bool             `json:"sync_all_sellers"`
}

// SyncCatalogsPayload reconciles one tenant's catalog mirror.
type SyncCatalogsPayload struct {
	AppId int64 `json:"app_id"`
}

// ProductUpdatedEvent is published to Kafka after a batch apply.
type ProductUpdatedEvent struct {
	AppId    int64  `json:"app_id"`
	SkuId    string `json:"sku_id"`
	SellerId string `json:"seller_id"`
	Title    string `json:"title"`
}
