package biz

import "time"

const (
	// Queues known to the asynq server; weights configured in etc/sync.yaml.
	QueueDefault  = "default"
	QueueWebhooks = "webhooks"
	QueuePriority = "priority"

	SyncModeFeed    = "FEED"
	SyncModeApiOnly = "API_ONLY"

	UploadStatusPending    = "pending"
	UploadStatusProcessing = "processing"
	UploadStatusSuccess    = "success"
	UploadStatusError      = "error"

	DefaultBatchSize      = 100
	DefaultDebounceWindow = 15 * time.Second

	// Lock TTLs bound the damage of a crashed worker; a later event
	// re-triggers scheduling once they expire.
	DequeueLockTTL     = 5 * time.Minute
	CatalogSyncLockTTL = 30 * time.Minute
	SellerSyncLockTTL  = 30 * time.Minute
	DebounceMarkerTTL  = 10 * time.Minute
)
