package upload

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
	uploadLogsFieldNames        = builder.RawFieldNames(&UploadLogs{})
	uploadLogsRows              = strings.Join(uploadLogsFieldNames, ",")
	uploadLogsRowsExpectAutoSet = strings.Join(stringx.Remove(uploadLogsFieldNames, "`id`", "`created_at`"), ",")
)

type (
	// UploadLogsModel is the append-only per-item trail of a bulk run. It has
	// no referential significance once swept.
	UploadLogsModel interface {
		Insert(ctx context.Context, data *UploadLogs) (sql.Result, error)
		ListByUpload(ctx context.Context, uploadId int64) ([]*UploadLogs, error)
		DeleteAll(ctx context.Context) (int64, error)
	}

	defaultUploadLogsModel struct {
		conn  sqlx.SqlConn
		table string
	}

	UploadLogs struct {
		Id        int64     `db:"id"`
		UploadId  int64     `db:"upload_id"`
		AppId     int64     `db:"app_id"`
		SkuId     string    `db:"sku_id"`
		Message   string    `db:"message"`
		CreatedAt time.Time `db:"created_at"`
	}
)

// NewUploadLogsModel returns a model for the database table.
func NewUploadLogsModel(conn sqlx.SqlConn) UploadLogsModel {
	return &defaultUploadLogsModel{
		conn:  conn,
		table: "`upload_logs`",
	}
}

func (m *defaultUploadLogsModel) Insert(ctx context.Context, data *UploadLogs) (sql.Result, error) {
	query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?)", m.table, uploadLogsRowsExpectAutoSet)
	return m.conn.ExecCtx(ctx, query, data.UploadId, data.AppId, data.SkuId, data.Message)
}

func (m *defaultUploadLogsModel) ListByUpload(ctx context.Context, uploadId int64) ([]*UploadLogs, error) {
	var resp []*UploadLogs
	query := fmt.Sprintf("select %s from %s where `upload_id` = ?", uploadLogsRows, m.table)
	if err := m.conn.QueryRowsCtx(ctx, &resp, query, uploadId); err != nil {
		return nil, err
	}
	return resp, nil
}

func (m *defaultUploadLogsModel) DeleteAll(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("delete from %s", m.table)
	result, err := m.conn.ExecCtx(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
