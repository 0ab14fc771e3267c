package catalog

import (
	"context"
	"fmt"
	"time"

	"MarketLink/app/common/consts/biz"

	"github.com/zeromicro/go-zero/core/stores/redis"
)

const (
	catalogSyncLockKeyPattern = "catalog_sync_lock:%d"
	sellerSyncLockKeyPattern  = "seller_sync_lock:%d"
)

type (
	// SyncLockModel holds the per-app mutual exclusion markers for the
	// reconciliation pass and the seller-scoped bulk insertion. Both carry a
	// TTL so a crashed worker cannot wedge a tenant forever.
	SyncLockModel interface {
		IsCatalogSyncLocked(ctx context.Context, appId int64) (bool, error)
		AcquireCatalogSync(ctx context.Context, appId int64) (bool, error)
		ReleaseCatalogSync(ctx context.Context, appId int64) error
		SellerSyncLock(appId int64) *redis.RedisLock
	}

	defaultSyncLockModel struct {
		redis *redis.Redis
	}
)

func NewSyncLockModel(r *redis.Redis) SyncLockModel {
	return &defaultSyncLockModel{redis: r}
}

func (m *defaultSyncLockModel) IsCatalogSyncLocked(ctx context.Context, appId int64) (bool, error) {
	return m.redis.ExistsCtx(ctx, fmt.Sprintf(catalogSyncLockKeyPattern, appId))
}

func (m *defaultSyncLockModel) AcquireCatalogSync(ctx context.Context, appId int64) (bool, error) {
	key := fmt.Sprintf(catalogSyncLockKeyPattern, appId)
	return m.redis.SetnxExCtx(ctx, key, "1", int(biz.CatalogSyncLockTTL/time.Second))
}

func (m *defaultSyncLockModel) ReleaseCatalogSync(ctx context.Context, appId int64) error {
	_, err := m.redis.DelCtx(ctx, fmt.Sprintf(catalogSyncLockKeyPattern, appId))
	return err
}

// SellerSyncLock returns a fresh lock handle for the app's seller-scoped bulk
// insertion critical section.
func (m *defaultSyncLockModel) SellerSyncLock(appId int64) *redis.RedisLock {
	lock := redis.NewRedisLock(m.redis, fmt.Sprintf(sellerSyncLockKeyPattern, appId))
	lock.SetExpire(int(biz.SellerSyncLockTTL / time.Second))
	return lock
}
