package logic

import (
	"context"

	"MarketLink/app/common/consts/biz"
	"MarketLink/app/services/sync/internal/svc"

	"github.com/zeromicro/go-zero/core/logx"
)

type CleanupLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewCleanupLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CleanupLogic {
	return &CleanupLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// Cleanup clears the append-only audit tables and moves stranded uploads to a
// terminal state. All operations are idempotent and commutative, so no
// locking is needed.
func (l *CleanupLogic) Cleanup() error {
	uploadLogs, err := l.svcCtx.UploadLogs.DeleteAll(l.ctx)
	if err != nil {
		return err
	}
	webhookLogs, err := l.svcCtx.WebhookLogs.DeleteAll(l.ctx)
	if err != nil {
		return err
	}

	stuckPending, err := l.svcCtx.Uploads.MarkStuck(l.ctx, biz.UploadStatusPending, biz.UploadStatusError)
	if err != nil {
		return err
	}
	stuckProcessing, err := l.svcCtx.Uploads.MarkStuck(l.ctx, biz.UploadStatusProcessing, biz.UploadStatusError)
	if err != nil {
		return err
	}

	l.Logger.Infof("cleanup: removed %d upload logs, %d webhook logs; closed %d stuck uploads",
		uploadLogs, webhookLogs, stuckPending+stuckProcessing)
	return nil
}
