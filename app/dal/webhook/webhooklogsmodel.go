package webhook

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/stores/builder"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/stringx"
)

var (
	webhookLogsFieldNames        = builder.RawFieldNames(&WebhookLogs{})
	webhookLogsRows              = strings.Join(webhookLogsFieldNames, ",")
	webhookLogsRowsExpectAutoSet = strings.Join(stringx.Remove(webhookLogsFieldNames, "`created_at`"), ",")
)

type (
	// WebhookLogsModel is the append-only audit trail of raw deliveries. It is
	// cleared wholesale by the maintenance sweep.
	WebhookLogsModel interface {
		Insert(ctx context.Context, data *WebhookLogs) (sql.Result, error)
		CountByApp(ctx context.Context, appId int64) (int64, error)
		DeleteAll(ctx context.Context) (int64, error)
	}

	defaultWebhookLogsModel struct {
		conn  sqlx.SqlConn
		table string
	}

	WebhookLogs struct {
		Id        int64     `db:"id"`
		AppId     int64     `db:"app_id"`
		SkuId     string    `db:"sku_id"`
		Payload   string    `db:"payload"`
		CreatedAt time.Time `db:"created_at"`
	}
)

// NewWebhookLogsModel returns a model for the database table.
func NewWebhookLogsModel(conn sqlx.SqlConn) WebhookLogsModel {
	return &defaultWebhookLogsModel{
		conn:  conn,
		table: "`webhook_logs`",
	}
}

func (m *defaultWebhookLogsModel) Insert(ctx context.Context, data *WebhookLogs) (sql.Result, error) {
	query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?)", m.table, webhookLogsRowsExpectAutoSet)
	return m.conn.ExecCtx(ctx, query, data.Id, data.AppId, data.SkuId, data.Payload)
}

func (m *defaultWebhookLogsModel) CountByApp(ctx context.Context, appId int64) (int64, error) {
	var count int64
	query := fmt.Sprintf("select count(*) from %s where `app_id` = ?", m.table)
	if err := m.conn.QueryRowCtx(ctx, &count, query, appId); err != nil {
		return 0, err
	}
	return count, nil
}

func (m *defaultWebhookLogsModel) DeleteAll(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("delete from %s", m.table)
	result, err := m.conn.ExecCtx(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
