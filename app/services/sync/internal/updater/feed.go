package updater

import (
	"context"
	"fmt"

	"MarketLink/app/common/consts/biz"
	"MarketLink/app/common/snowflake"
	appdal "MarketLink/app/dal/app"
	catalogdal "MarketLink/app/dal/catalog"
	productdal "MarketLink/app/dal/product"
	uploaddal "MarketLink/app/dal/upload"
	webhookdal "MarketLink/app/dal/webhook"
	"MarketLink/app/services/sync/internal/vtex"

	"github.com/zeromicro/go-zero/core/logx"
)

// feedUpdater applies a batch through a tracked upload run against the app's
// catalog: one uploads row per batch, one upload_logs row per failed item.
type feedUpdater struct {
	vtex       vtex.API
	products   productdal.ProductsModel
	uploads    uploaddal.UploadsModel
	uploadLogs uploaddal.UploadLogsModel
}

func (u *feedUpdater) Apply(ctx context.Context, app *appdal.Apps, cat *catalogdal.Catalogs, entries []webhookdal.Entry) ([]*productdal.Products, error) {
	logger := logx.WithContext(ctx)
	creds := credentials(app)

	uploadId := snowflake.Next()
	if _, err := u.uploads.Insert(ctx, &uploaddal.Uploads{
		Id:        uploadId,
		AppId:     app.Id,
		CatalogId: cat.CatalogId,
		Status:    biz.UploadStatusProcessing,
	}); err != nil {
		return nil, fmt.Errorf("feed update: create upload: %w", err)
	}

	updated := make([]*productdal.Products, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			_ = u.uploads.UpdateStatus(ctx, uploadId, biz.UploadStatusError, err.Error())
			return updated, err
		}
		sku, err := u.vtex.GetSKU(ctx, creds, entry.SkuId, entry.SellerId)
		if err != nil {
			u.logItemFailure(ctx, uploadId, app.Id, entry.SkuId, err)
			continue
		}
		row := toProductRow(app, entry, sku)
		if _, err := u.products.Upsert(ctx, row); err != nil {
			u.logItemFailure(ctx, uploadId, app.Id, entry.SkuId, err)
			continue
		}
		updated = append(updated, row)
	}

	status := biz.UploadStatusSuccess
	errorMsg := ""
	if len(updated) == 0 && len(entries) > 0 {
		status = biz.UploadStatusError
		errorMsg = "no item in the batch could be applied"
	}
	if err := u.uploads.UpdateStatus(ctx, uploadId, status, errorMsg); err != nil {
		logger.Errorf("feed update: close upload %d: %v", uploadId, err)
	}
	return updated, nil
}

func (u *feedUpdater) logItemFailure(ctx context.Context, uploadId, appId int64, skuId string, cause error) {
	logx.WithContext(ctx).Errorf("feed update: item failed: upload=%d app=%d sku=%s err=%v", uploadId, appId, skuId, cause)
	if _, err := u.uploadLogs.Insert(ctx, &uploaddal.UploadLogs{
		UploadId: uploadId,
		AppId:    appId,
		SkuId:    skuId,
		Message:  cause.Error(),
	}); err != nil {
		logx.WithContext(ctx).Errorf("feed update: record item failure: %v", err)
	}
}
