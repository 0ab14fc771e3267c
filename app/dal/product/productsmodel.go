package product

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
	productsFieldNames        = builder.RawFieldNames(&Products{})
	productsRows              = strings.Join(productsFieldNames, ",")
	productsRowsExpectAutoSet = strings.Join(stringx.Remove(productsFieldNames, "`id`", "`created_at`", "`updated_at`"), ",")
)

type (
	// ProductsModel holds the local product mirror written by the apply
	// strategies. Rows are keyed by (app_id, sku_id, seller_id); webhook
	// replays simply overwrite with the freshly fetched state.
	ProductsModel interface {
		Upsert(ctx context.Context, data *Products) (sql.Result, error)
		FindOneBySku(ctx context.Context, appId int64, skuId, sellerId string) (*Products, error)
		CountByApp(ctx context.Context, appId int64) (int64, error)
	}

	defaultProductsModel struct {
		conn  sqlx.SqlConn
		table string
	}

	Products struct {
		Id          int64     `db:"id"`
		AppId       int64     `db:"app_id"`
		SkuId       string    `db:"sku_id"`
		SellerId    string    `db:"seller_id"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		Link        string    `db:"link"`
		ImageLink   string    `db:"image_link"`
		PriceCents  int64     `db:"price_cents"`
		Available   bool      `db:"available"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}
)

// NewProductsModel returns a model for the database table.
func NewProductsModel(conn sqlx.SqlConn) ProductsModel {
	return &defaultProductsModel{
		conn:  conn,
		table: "`products`",
	}
}

func (m *defaultProductsModel) Upsert(ctx context.Context, data *Products) (sql.Result, error) {
	query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?, ?, ?, ?, ?, ?)"+
		" on duplicate key update `title` = values(`title`), `description` = values(`description`),"+
		" `link` = values(`link`), `image_link` = values(`image_link`),"+
		" `price_cents` = values(`price_cents`), `available` = values(`available`),"+
		" `updated_at` = current_timestamp", m.table, productsRowsExpectAutoSet)
	return m.conn.ExecCtx(ctx, query, data.AppId, data.SkuId, data.SellerId, data.Title,
		data.Description, data.Link, data.ImageLink, data.PriceCents, data.Available)
}

func (m *defaultProductsModel) FindOneBySku(ctx context.Context, appId int64, skuId, sellerId string) (*Products, error) {
	var resp Products
	query := fmt.Sprintf("select %s from %s where `app_id` = ? and `sku_id` = ? and `seller_id` = ? limit 1", productsRows, m.table)
	err := m.conn.QueryRowCtx(ctx, &resp, query, appId, skuId, sellerId)
	switch err {
	case nil:
		return &resp, nil
	case sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *defaultProductsModel) CountByApp(ctx context.Context, appId int64) (int64, error) {
	var count int64
	query := fmt.Sprintf("select count(*) from %s where `app_id` = ?", m.table)
	if err := m.conn.QueryRowCtx(ctx, &count, query, appId); err != nil {
		return 0, err
	}
	return count, nil
}
