package logic

import (
	"context"
	"errors"
	"fmt"

	appdal "MarketLink/app/dal/app"
	catalogdal "MarketLink/app/dal/catalog"
	productdal "MarketLink/app/dal/product"
	webhookdal "MarketLink/app/dal/webhook"
	"MarketLink/app/services/sync/internal/mq"
	"MarketLink/app/services/sync/internal/svc"
	"MarketLink/app/services/sync/internal/updater"

	"github.com/zeromicro/go-zero/core/logx"
)

type UpdateBatchLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewUpdateBatchLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UpdateBatchLogic {
	return &UpdateBatchLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// UpdateBatch applies one drained batch through the app's configured
// strategy. It returns (nil, nil) when the app disappeared, its initial sync
// was reverted, or no catalog context exists to apply against: the queue
// re-derives work from current state, so the next cycle retries naturally.
// Missing credentials are fatal for the batch and surface as an error.
func (l *UpdateBatchLogic) UpdateBatch(p *mq.UpdateBatchPayload) ([]*productdal.Products, error) {
	app, err := l.svcCtx.Apps.FindOne(l.ctx, p.AppId)
	if err != nil {
		if errors.Is(err, appdal.ErrNotFound) {
			l.Logger.Infof("update batch: app=%d no longer exists, dropping %d markers", p.AppId, len(p.Batch))
			return nil, nil
		}
		return nil, err
	}

	// Re-checked here because the app may have been deactivated between
	// admission and apply; never partially apply against an app mid-bootstrap.
	if !app.InitialSyncCompleted {
		l.Logger.Infof("update batch: app=%d initial sync pending, dropping %d markers", app.Id, len(p.Batch))
		return nil, nil
	}

	var cat *catalogdal.Catalogs
	if updater.RequiresCatalog(app.SyncMode) {
		cat, err = l.svcCtx.Catalogs.FindFirstByApp(l.ctx, app.Id)
		if err != nil {
			if errors.Is(err, catalogdal.ErrNotFound) {
				l.Logger.Infof("update batch: app=%d has no catalog to apply against", app.Id)
				return nil, nil
			}
			return nil, err
		}
	}

	if !app.HasCredentials() {
		return nil, fmt.Errorf("update batch: app=%d has no upstream credentials", app.Id)
	}

	entries := make([]webhookdal.Entry, 0, len(p.Batch))
	for _, marker := range p.Batch {
		entries = append(entries, webhookdal.ParseMarker(marker))
	}

	updated, err := l.svcCtx.Updaters.ForApp(app).Apply(l.ctx, app, cat, entries)
	if err != nil {
		return nil, err
	}

	if len(updated) > 0 {
		mq.PublishProductUpdates(l.svcCtx, updated)
	}

	l.Logger.Infof("update batch: app=%d applied %d/%d markers", app.Id, len(updated), len(p.Batch))
	return updated, nil
}
