package updater

import (
	"context"

	appdal "MarketLink/app/dal/app"
	catalogdal "MarketLink/app/dal/catalog"
	productdal "MarketLink/app/dal/product"
	uploaddal "MarketLink/app/dal/upload"
	webhookdal "MarketLink/app/dal/webhook"
	"MarketLink/app/common/consts/biz"
	"MarketLink/app/services/sync/internal/vtex"
)

// Updater applies one batch of coalesced change markers against the local
// product mirror. Implementations isolate per-SKU failures: one bad item is
// logged and skipped, the rest of the batch still lands.
type Updater interface {
	Apply(ctx context.Context, app *appdal.Apps, cat *catalogdal.Catalogs, entries []webhookdal.Entry) ([]*productdal.Products, error)
}

// Factory selects the apply strategy from the app's persisted configuration:
// API_ONLY apps update straight from per-SKU fetches, everything else goes
// through the feed path which records an upload run against the catalog.
type Factory struct {
	Vtex       vtex.API
	Products   productdal.ProductsModel
	Uploads    uploaddal.UploadsModel
	UploadLogs uploaddal.UploadLogsModel
}

func (f *Factory) ForApp(app *appdal.Apps) Updater {
	if app.SyncMode == biz.SyncModeApiOnly {
		return &apiUpdater{
			vtex:     f.Vtex,
			products: f.Products,
		}
	}
	return &feedUpdater{
		vtex:       f.Vtex,
		products:   f.Products,
		uploads:    f.Uploads,
		uploadLogs: f.UploadLogs,
	}
}

// RequiresCatalog reports whether the strategy for the given mode needs a
// local catalog to apply against.
func RequiresCatalog(mode string) bool {
	return mode != biz.SyncModeApiOnly
}

func credentials(app *appdal.Apps) vtex.Credentials {
	return vtex.Credentials{
		Domain:   app.Domain,
		AppKey:   app.AppKey,
		AppToken: app.AppToken,
	}
}

func toProductRow(app *appdal.Apps, entry webhookdal.Entry, sku *vtex.SKU) *productdal.Products {
	return &productdal.Products{
		AppId:       app.Id,
		SkuId:       entry.SkuId,
		SellerId:    entry.SellerId,
		Title:       sku.Name,
		Description: sku.Description,
		Link:        sku.DetailUrl,
		ImageLink:   sku.ImageUrl,
		PriceCents:  sku.PriceCents,
		Available:   sku.IsActive,
	}
}
