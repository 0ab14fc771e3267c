package updater

import (
	"context"

	appdal "MarketLink/app/dal/app"
	catalogdal "MarketLink/app/dal/catalog"
	productdal "MarketLink/app/dal/product"
	webhookdal "MarketLink/app/dal/webhook"
	"MarketLink/app/services/sync/internal/vtex"

	"github.com/zeromicro/go-zero/core/logx"
)

// apiUpdater fetches each SKU straight from the upstream API and overwrites
// the local mirror. No catalog context needed.
type apiUpdater struct {
	vtex     vtex.API
	products productdal.ProductsModel
}

func (u *apiUpdater) Apply(ctx context.Context, app *appdal.Apps, _ *catalogdal.Catalogs, entries []webhookdal.Entry) ([]*productdal.Products, error) {
	logger := logx.WithContext(ctx)
	creds := credentials(app)

	updated := make([]*productdal.Products, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		sku, err := u.vtex.GetSKU(ctx, creds, entry.SkuId, entry.SellerId)
		if err != nil {
			logger.Errorf("api update: fetch sku failed: app=%d sku=%s seller=%s err=%v", app.Id, entry.SkuId, entry.SellerId, err)
			continue
		}
		row := toProductRow(app, entry, sku)
		if _, err := u.products.Upsert(ctx, row); err != nil {
			logger.Errorf("api update: upsert failed: app=%d sku=%s err=%v", app.Id, entry.SkuId, err)
			continue
		}
		updated = append(updated, row)
	}
	return updated, nil
}
