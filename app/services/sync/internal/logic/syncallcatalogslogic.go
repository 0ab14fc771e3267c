package logic

import (
	"context"

	"MarketLink/app/services/sync/internal/svc"

	"github.com/zeromicro/go-zero/core/logx"
)

type SyncAllCatalogsLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewSyncAllCatalogsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SyncAllCatalogsLogic {
	return &SyncAllCatalogsLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// SyncAllCatalogs is the fleet driver: one reconciliation pass per configured
// tenant, each isolated by iteration so one tenant's failure cannot block
// another's.
func (l *SyncAllCatalogsLogic) SyncAllCatalogs() error {
	apps, err := l.svcCtx.Apps.FindAllConfigured(l.ctx)
	if err != nil {
		return err
	}

	failures := 0
	for _, app := range apps {
		if err := l.ctx.Err(); err != nil {
			return err
		}
		if err := NewSyncCatalogsLogic(l.ctx, l.svcCtx).SyncCatalogs(app.Id); err != nil {
			failures++
			l.Logger.Errorf("catalog sync sweep: app=%d: %v", app.Id, err)
		}
	}

	l.Logger.Infof("catalog sync sweep: visited %d apps, %d failed", len(apps), failures)
	return nil
}
