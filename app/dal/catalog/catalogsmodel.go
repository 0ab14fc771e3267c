package catalog

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
	catalogsFieldNames        = builder.RawFieldNames(&Catalogs{})
	catalogsRows              = strings.Join(catalogsFieldNames, ",")
	catalogsRowsExpectAutoSet = strings.Join(stringx.Remove(catalogsFieldNames, "`id`", "`created_at`", "`updated_at`"), ",")
)

type (
	// CatalogsModel mirrors the remote catalog set per app. Rows are created
	// and deleted only by the reconciliation pass; everything else reads.
	CatalogsModel interface {
		Insert(ctx context.Context, data *Catalogs) (sql.Result, error)
		FindFirstByApp(ctx context.Context, appId int64) (*Catalogs, error)
		ListByApp(ctx context.Context, appId int64) ([]*Catalogs, error)
		DeleteByRemoteIds(ctx context.Context, appId int64, remoteIds []string) (int64, error)
		SetActive(ctx context.Context, appId int64, remoteId string) error
	}

	defaultCatalogsModel struct {
		conn  sqlx.SqlConn
		table string
	}

	Catalogs struct {
		Id        int64     `db:"id"`
		CatalogId string    `db:"catalog_id"` // remote identity
		Name      string    `db:"name"`
		Vertical  string    `db:"vertical"`
		IsActive  bool      `db:"is_active"`
		AppId     int64     `db:"app_id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
)

// NewCatalogsModel returns a model for the database table.
func NewCatalogsModel(conn sqlx.SqlConn) CatalogsModel {
	return &defaultCatalogsModel{
		conn:  conn,
		table: "`catalogs`",
	}
}

func (m *defaultCatalogsModel) Insert(ctx context.Context, data *Catalogs) (sql.Result, error) {
	query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?, ?)", m.table, catalogsRowsExpectAutoSet)
	return m.conn.ExecCtx(ctx, query, data.CatalogId, data.Name, data.Vertical, data.IsActive, data.AppId)
}

func (m *defaultCatalogsModel) FindFirstByApp(ctx context.Context, appId int64) (*Catalogs, error) {
	var resp Catalogs
	query := fmt.Sprintf("select %s from %s where `app_id` = ? order by `is_active` desc, `id` asc limit 1", catalogsRows, m.table)
	err := m.conn.QueryRowCtx(ctx, &resp, query, appId)
	switch err {
	case nil:
		return &resp, nil
	case sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *defaultCatalogsModel) ListByApp(ctx context.Context, appId int64) ([]*Catalogs, error) {
	var resp []*Catalogs
	query := fmt.Sprintf("select %s from %s where `app_id` = ?", catalogsRows, m.table)
	if err := m.conn.QueryRowsCtx(ctx, &resp, query, appId); err != nil {
		return nil, err
	}
	return resp, nil
}

// DeleteByRemoteIds removes every local mirror whose remote identity is in
// remoteIds, as one bulk statement.
func (m *defaultCatalogsModel) DeleteByRemoteIds(ctx context.Context, appId int64, remoteIds []string) (int64, error) {
	if len(remoteIds) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(remoteIds)+1)
	args = append(args, appId)
	for _, id := range remoteIds {
		args = append(args, id)
	}
	query := fmt.Sprintf("delete from %s where `app_id` = ? and `catalog_id` in (%s)", m.table, placeholders(len(remoteIds)))
	result, err := m.conn.ExecCtx(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SetActive flags the catalog currently connected to the app's channel; all
// siblings are cleared in the same statement.
func (m *defaultCatalogsModel) SetActive(ctx context.Context, appId int64, remoteId string) error {
	query := fmt.Sprintf("update %s set `is_active` = (`catalog_id` = ?) where `app_id` = ?", m.table)
	_, err := m.conn.ExecCtx(ctx, query, remoteId, appId)
	return err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	var builder strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
	}
	return builder.String()
}
