package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MarketLink/app/common/consts/biz"

	"github.com/zeromicro/go-zero/core/stores/builder"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlc"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/stringx"
)

var (
	appsFieldNames          = builder.RawFieldNames(&Apps{})
	appsRows                = strings.Join(appsFieldNames, ",")
	appsRowsExpectAutoSet   = strings.Join(stringx.Remove(appsFieldNames, "`id`", "`created_at`", "`updated_at`"), ",")
	appsRowsWithPlaceHolder = strings.Join(stringx.Remove(appsFieldNames, "`id`", "`created_at`", "`updated_at`"), "=?,") + "=?"

	cacheAppsIdPrefix = "cache:apps:id:"
)

type (
	// AppsModel wraps the tenant application table. The sync pipeline only
	// reads this configuration; it is written by the account management API.
	AppsModel interface {
		Insert(ctx context.Context, data *Apps) (sql.Result, error)
		FindOne(ctx context.Context, id int64) (*Apps, error)
		FindAllConfigured(ctx context.Context) ([]*Apps, error)
		Update(ctx context.Context, data *Apps) error
	}

	defaultAppsModel struct {
		sqlc.CachedConn
		table string
	}

	Apps struct {
		Id                   int64     `db:"id"`
		Uuid                 string    `db:"uuid"`
		Name                 string    `db:"name"`
		Domain               string    `db:"domain"`
		AppKey               string    `db:"app_key"`
		AppToken             string    `db:"app_token"`
		BusinessId           string    `db:"business_id"`
		ChannelId            string    `db:"channel_id"`
		SyncMode             string    `db:"sync_mode"`
		InitialSyncCompleted bool      `db:"initial_sync_completed"`
		SyncSpecificSellers  string    `db:"sync_specific_sellers"`
		DispatchQueueName    string    `db:"dispatch_queue_name"`
		DispatchPriority     int64     `db:"dispatch_priority"`
		CreatedAt            time.Time `db:"created_at"`
		UpdatedAt            time.Time `db:"updated_at"`
	}
)

// NewAppsModel returns a model for the database table.
func NewAppsModel(conn sqlx.SqlConn, c cache.CacheConf, opts ...cache.Option) AppsModel {
	return &defaultAppsModel{
		CachedConn: sqlc.NewConn(conn, c, opts...),
		table:      "`apps`",
	}
}

func (m *defaultAppsModel) Insert(ctx context.Context, data *Apps) (sql.Result, error) {
	appsIdKey := fmt.Sprintf("%s%v", cacheAppsIdPrefix, data.Id)
	return m.ExecCtx(ctx, func(ctx context.Context, conn sqlx.SqlConn) (sql.Result, error) {
		query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", m.table, appsRowsExpectAutoSet)
		return conn.ExecCtx(ctx, query, data.Uuid, data.Name, data.Domain, data.AppKey, data.AppToken,
			data.BusinessId, data.ChannelId, data.SyncMode, data.InitialSyncCompleted,
			data.SyncSpecificSellers, data.DispatchQueueName, data.DispatchPriority)
	}, appsIdKey)
}

func (m *defaultAppsModel) FindOne(ctx context.Context, id int64) (*Apps, error) {
	appsIdKey := fmt.Sprintf("%s%v", cacheAppsIdPrefix, id)
	var resp Apps
	err := m.QueryRowCtx(ctx, &resp, appsIdKey, func(ctx context.Context, conn sqlx.SqlConn, v any) error {
		query := fmt.Sprintf("select %s from %s where `id` = ? limit 1", appsRows, m.table)
		return conn.QueryRowCtx(ctx, v, query, id)
	})
	switch err {
	case nil:
		return &resp, nil
	case sqlc.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

// FindAllConfigured lists the apps that carry complete upstream credentials,
// i.e. the tenants the periodic reconciliation sweep should visit.
func (m *defaultAppsModel) FindAllConfigured(ctx context.Context) ([]*Apps, error) {
	var resp []*Apps
	query := fmt.Sprintf("select %s from %s where `domain` != '' and `app_key` != '' and `app_token` != ''", appsRows, m.table)
	if err := m.QueryRowsNoCacheCtx(ctx, &resp, query); err != nil {
		return nil, err
	}
	return resp, nil
}

func (m *defaultAppsModel) Update(ctx context.Context, data *Apps) error {
	appsIdKey := fmt.Sprintf("%s%v", cacheAppsIdPrefix, data.Id)
	_, err := m.ExecCtx(ctx, func(ctx context.Context, conn sqlx.SqlConn) (sql.Result, error) {
		query := fmt.Sprintf("update %s set %s where `id` = ?", m.table, appsRowsWithPlaceHolder)
		return conn.ExecCtx(ctx, query, data.Uuid, data.Name, data.Domain, data.AppKey, data.AppToken,
			data.BusinessId, data.ChannelId, data.SyncMode, data.InitialSyncCompleted,
			data.SyncSpecificSellers, data.DispatchQueueName, data.DispatchPriority, data.Id)
	}, appsIdKey)
	return err
}

// AllowedSellers parses the comma-joined seller allow-list. Empty means no
// restriction.
func (a *Apps) AllowedSellers() []string {
	if strings.TrimSpace(a.SyncSpecificSellers) == "" {
		return nil
	}
	parts := strings.Split(a.SyncSpecificSellers, ",")
	sellers := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sellers = append(sellers, s)
		}
	}
	return sellers
}

// SellerAllowed reports whether webhooks for the given seller should be
// admitted for this app.
func (a *Apps) SellerAllowed(sellerId string) bool {
	allowed := a.AllowedSellers()
	if len(allowed) == 0 {
		return true
	}
	for _, s := range allowed {
		if s == sellerId {
			return true
		}
	}
	return false
}

// HasCredentials reports whether the upstream API is reachable for this app.
func (a *Apps) HasCredentials() bool {
	return a.Domain != "" && a.AppKey != "" && a.AppToken != ""
}

// QueueName returns the asynq queue drains and applies for this app are
// dispatched to. An explicit queue name wins; a positive dispatch priority
// routes the tenant to the high-weight priority queue.
func (a *Apps) QueueName(fallback string) string {
	if a.DispatchQueueName != "" {
		return a.DispatchQueueName
	}
	if a.DispatchPriority > 0 {
		return biz.QueuePriority
	}
	return fallback
}
