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
	uploadsFieldNames        = builder.RawFieldNames(&Uploads{})
	uploadsRows              = strings.Join(uploadsFieldNames, ",")
	uploadsRowsExpectAutoSet = strings.Join(stringx.Remove(uploadsFieldNames, "`created_at`", "`updated_at`"), ",")
)

type (
	// UploadsModel tracks bulk insertion runs. Ids are snowflake values
	// assigned by the caller so a run can be referenced before the row lands.
	UploadsModel interface {
		Insert(ctx context.Context, data *Uploads) (sql.Result, error)
		FindOne(ctx context.Context, id int64) (*Uploads, error)
		UpdateStatus(ctx context.Context, id int64, status, errorMsg string) error
		MarkStuck(ctx context.Context, fromStatus, toStatus string) (int64, error)
	}

	defaultUploadsModel struct {
		conn  sqlx.SqlConn
		table string
	}

	Uploads struct {
		Id        int64     `db:"id"`
		AppId     int64     `db:"app_id"`
		CatalogId string    `db:"catalog_id"`
		Status    string    `db:"status"`
		ErrorMsg  string    `db:"error_msg"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
)

// NewUploadsModel returns a model for the database table.
func NewUploadsModel(conn sqlx.SqlConn) UploadsModel {
	return &defaultUploadsModel{
		conn:  conn,
		table: "`uploads`",
	}
}

func (m *defaultUploadsModel) Insert(ctx context.Context, data *Uploads) (sql.Result, error) {
	query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?, ?)", m.table, uploadsRowsExpectAutoSet)
	return m.conn.ExecCtx(ctx, query, data.Id, data.AppId, data.CatalogId, data.Status, data.ErrorMsg)
}

func (m *defaultUploadsModel) FindOne(ctx context.Context, id int64) (*Uploads, error) {
	var resp Uploads
	query := fmt.Sprintf("select %s from %s where `id` = ? limit 1", uploadsRows, m.table)
	err := m.conn.QueryRowCtx(ctx, &resp, query, id)
	switch err {
	case nil:
		return &resp, nil
	case sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *defaultUploadsModel) UpdateStatus(ctx context.Context, id int64, status, errorMsg string) error {
	query := fmt.Sprintf("update %s set `status` = ?, `error_msg` = ?, `updated_at` = current_timestamp where `id` = ?", m.table)
	_, err := m.conn.ExecCtx(ctx, query, status, errorMsg, id)
	return err
}

// MarkStuck moves every upload stranded in fromStatus to toStatus. The update
// only runs when matching rows exist, to avoid needless writes during the
// periodic sweep.
func (m *defaultUploadsModel) MarkStuck(ctx context.Context, fromStatus, toStatus string) (int64, error) {
	var exists bool
	query := fmt.Sprintf("select exists(select 1 from %s where `status` = ?)", m.table)
	if err := m.conn.QueryRowCtx(ctx, &exists, query, fromStatus); err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	update := fmt.Sprintf("update %s set `status` = ?, `updated_at` = current_timestamp where `status` = ?", m.table)
	result, err := m.conn.ExecCtx(ctx, update, toStatus, fromStatus)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
