package logic

import (
	"context"

	"MarketLink/app/common/consts/biz"
	"MarketLink/app/common/snowflake"
	uploaddal "MarketLink/app/dal/upload"
	"MarketLink/app/services/sync/internal/mq"
	"MarketLink/app/services/sync/internal/svc"

	"github.com/zeromicro/go-zero/core/logx"
)

type InsertBySellersLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewInsertBySellersLogic(ctx context.Context, svcCtx *svc.ServiceContext) *InsertBySellersLogic {
	return &InsertBySellersLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// InsertBySellers runs a seller-scoped bulk insertion under the app's seller
// sync lock. Incomplete arguments are a silent no-op. The lock is released on
// every exit path whether or not the insertion succeeded.
func (l *InsertBySellersLogic) InsertBySellers(p *mq.InsertBySellersPayload) error {
	if !p.Credentials.Complete() || p.CatalogId == "" || p.AppId == 0 {
		l.Logger.Infof("insert by sellers: incomplete arguments, nothing to do")
		return nil
	}
	if len(p.Sellers) == 0 && !p.SyncAllSellers {
		l.Logger.Infof("insert by sellers: no sellers requested for app=%d, nothing to do", p.AppId)
		return nil
	}

	lock := l.svcCtx.SyncLocks.SellerSyncLock(p.AppId)
	acquired, err := lock.AcquireCtx(l.ctx)
	if err != nil {
		return err
	}
	if !acquired {
		l.Logger.Infof("insert by sellers: sync already running for app=%d", p.AppId)
		return nil
	}
	defer func() {
		if _, err := lock.ReleaseCtx(context.WithoutCancel(l.ctx)); err != nil {
			l.Logger.Errorf("insert by sellers: release lock for app=%d: %v", p.AppId, err)
		}
	}()
	defer l.svcCtx.Vtex.CloseIdleConnections()

	sellers := p.Sellers
	if p.SyncAllSellers {
		sellers, err = l.svcCtx.Vtex.ListSellers(l.ctx, p.Credentials)
		if err != nil {
			l.Logger.Errorf("insert by sellers: list sellers for app=%d: %v", p.AppId, err)
			return nil
		}
	}

	uploadId := snowflake.Next()
	if _, err := l.svcCtx.Uploads.Insert(l.ctx, &uploaddal.Uploads{
		Id:        uploadId,
		AppId:     p.AppId,
		CatalogId: p.CatalogId,
		Status:    biz.UploadStatusProcessing,
	}); err != nil {
		l.Logger.Errorf("insert by sellers: create upload for app=%d: %v", p.AppId, err)
		return nil
	}

	inner := NewInsertProductsLogic(l.ctx, l.svcCtx)
	total := 0
	var failure error
	for _, seller := range sellers {
		inserted, err := inner.insertAllPages(uploadId, p.AppId, p.Credentials, seller)
		total += inserted
		if err != nil {
			failure = err
			l.Logger.Errorf("insert by sellers: app=%d seller=%s failed: %v", p.AppId, seller, err)
			break
		}
	}

	if failure != nil {
		_ = l.svcCtx.Uploads.UpdateStatus(l.ctx, uploadId, biz.UploadStatusError, failure.Error())
		return nil
	}
	l.Logger.Infof("insert by sellers: app=%d inserted %d items across %d sellers", p.AppId, total, len(sellers))
	return l.svcCtx.Uploads.UpdateStatus(l.ctx, uploadId, biz.UploadStatusSuccess, "")
}
