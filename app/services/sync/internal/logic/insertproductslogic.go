package logic

import (
	"context"

	"MarketLink/app/common/consts/biz"
	"MarketLink/app/common/snowflake"
	productdal "MarketLink/app/dal/product"
	uploaddal "MarketLink/app/dal/upload"
	"MarketLink/app/services/sync/internal/mq"
	"MarketLink/app/services/sync/internal/svc"
	"MarketLink/app/services/sync/internal/vtex"

	"github.com/zeromicro/go-zero/core/logx"
)

const skuPageSize = 250

type InsertProductsLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewInsertProductsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *InsertProductsLogic {
	return &InsertProductsLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// InsertProducts loads the full product set of a catalog into the local
// mirror. Incomplete arguments are a silent no-op: there is nothing to roll
// back. Failures are logged against the upload run rather than propagated,
// and idle upstream connections are dropped afterwards regardless of outcome
// because this path runs long enough for pooled connections to go stale.
func (l *InsertProductsLogic) InsertProducts(p *mq.InsertProductsPayload) error {
	if !p.Credentials.Complete() || p.CatalogId == "" || p.AppId == 0 {
		l.Logger.Infof("insert products: incomplete arguments, nothing to do")
		return nil
	}
	defer l.svcCtx.Vtex.CloseIdleConnections()

	uploadId := snowflake.Next()
	if _, err := l.svcCtx.Uploads.Insert(l.ctx, &uploaddal.Uploads{
		Id:        uploadId,
		AppId:     p.AppId,
		CatalogId: p.CatalogId,
		Status:    biz.UploadStatusProcessing,
	}); err != nil {
		l.Logger.Errorf("insert products: create upload for app=%d: %v", p.AppId, err)
		return nil
	}

	inserted, err := l.insertAllPages(uploadId, p.AppId, p.Credentials, "")
	if err != nil {
		l.Logger.Errorf("insert products: app=%d catalog=%s failed after %d items: %v", p.AppId, p.CatalogId, inserted, err)
		_ = l.svcCtx.Uploads.UpdateStatus(l.ctx, uploadId, biz.UploadStatusError, err.Error())
		return nil
	}

	l.Logger.Infof("insert products: app=%d catalog=%s inserted %d items", p.AppId, p.CatalogId, inserted)
	return l.svcCtx.Uploads.UpdateStatus(l.ctx, uploadId, biz.UploadStatusSuccess, "")
}

// insertAllPages walks the upstream SKU id listing page by page, upserting
// each item. Per-item failures are isolated into upload_logs; only listing
// failures abort the run.
func (l *InsertProductsLogic) insertAllPages(uploadId, appId int64, creds vtex.Credentials, sellerId string) (int, error) {
	inserted := 0
	for page := 1; ; page++ {
		ids, err := l.svcCtx.Vtex.ListSKUIds(l.ctx, creds, page, skuPageSize)
		if err != nil {
			return inserted, err
		}
		if len(ids) == 0 {
			break
		}
		for _, skuId := range ids {
			if err := l.ctx.Err(); err != nil {
				return inserted, err
			}
			if l.insertOne(uploadId, appId, creds, skuId, sellerId) {
				inserted++
			}
		}
		if len(ids) < skuPageSize {
			break
		}
	}
	return inserted, nil
}

func (l *InsertProductsLogic) insertOne(uploadId, appId int64, creds vtex.Credentials, skuId, sellerId string) bool {
	sku, err := l.svcCtx.Vtex.GetSKU(l.ctx, creds, skuId, sellerId)
	if err != nil {
		l.logItemFailure(uploadId, appId, skuId, err)
		return false
	}
	if _, err := l.svcCtx.Products.Upsert(l.ctx, &productdal.Products{
		AppId:       appId,
		SkuId:       skuId,
		SellerId:    sellerId,
		Title:       sku.Name,
		Description: sku.Description,
		Link:        sku.DetailUrl,
		ImageLink:   sku.ImageUrl,
		PriceCents:  sku.PriceCents,
		Available:   sku.IsActive,
	}); err != nil {
		l.logItemFailure(uploadId, appId, skuId, err)
		return false
	}
	return true
}

func (l *InsertProductsLogic) logItemFailure(uploadId, appId int64, skuId string, cause error) {
	l.Logger.Errorf("insert products: item failed: upload=%d app=%d sku=%s err=%v", uploadId, appId, skuId, cause)
	if _, err := l.svcCtx.UploadLogs.Insert(l.ctx, &uploaddal.UploadLogs{
		UploadId: uploadId,
		AppId:    appId,
		SkuId:    skuId,
		Message:  cause.Error(),
	}); err != nil {
		l.Logger.Errorf("insert products: record item failure: %v", err)
	}
}
