package logic

import (
	"context"
	"encoding/json"
	"errors"

	"MarketLink/app/common/consts/biz"
	"MarketLink/app/common/snowflake"
	appdal "MarketLink/app/dal/app"
	webhookdal "MarketLink/app/dal/webhook"
	"MarketLink/app/services/sync/internal/mq"
	"MarketLink/app/services/sync/internal/svc"

	"github.com/hibiken/asynq"
	"github.com/zeromicro/go-zero/core/logx"
)

type AdmissionStatus string

const (
	AdmissionDropped   AdmissionStatus = "dropped"
	AdmissionEnqueued  AdmissionStatus = "enqueued"
	AdmissionCoalesced AdmissionStatus = "coalesced"
)

type DropReason string

const (
	DropUnknownApp         DropReason = "unknown_app"
	DropInitialSyncPending DropReason = "initial_sync_pending"
	DropSellerNotAllowed   DropReason = "seller_not_allowed"
	DropMissingSku         DropReason = "missing_sku"
)

// AdmissionResult says what happened to one inbound webhook. Drops are not
// errors: retrying would not change the outcome until an external
// precondition changes, so the reason exists for observability only.
type AdmissionResult struct {
	Status AdmissionStatus `json:"status"`
	Reason DropReason      `json:"reason,omitempty"`
}

// notificationPayload is the slice of the upstream webhook body the gate
// reads. Everything else is opaque and passes through unread.
type notificationPayload struct {
	IdSku       json.Number `json:"IdSku"`
	An          string      `json:"An"`
	SellerChain string      `json:"SellerChain"`
}

type AdmitWebhookLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewAdmitWebhookLogic(ctx context.Context, svcCtx *svc.ServiceContext) *AdmitWebhookLogic {
	return &AdmitWebhookLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// Admit runs the inbound filters in order, each a short-circuit: app lookup,
// initial-sync gate, seller allow-list, sku presence, then the dedup enqueue.
// Every newly created entry arms a debounced drain; the debounce marker
// collapses a burst into a single scheduled drain.
func (l *AdmitWebhookLogic) Admit(appId int64, raw []byte) (*AdmissionResult, error) {
	var payload notificationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		l.Logger.Infof("webhook: unparseable payload for app=%d: %v", appId, err)
	}
	sku := payload.IdSku.String()

	l.auditDelivery(appId, sku, raw)

	app, err := l.svcCtx.Apps.FindOne(l.ctx, appId)
	if err != nil {
		if errors.Is(err, appdal.ErrNotFound) {
			return dropped(DropUnknownApp), nil
		}
		return nil, err
	}

	if !app.InitialSyncCompleted {
		return dropped(DropInitialSyncPending), nil
	}

	seller := payload.SellerChain
	if seller == "" {
		seller = payload.An
	}
	if !app.SellerAllowed(seller) {
		return dropped(DropSellerNotAllowed), nil
	}

	if sku == "" {
		return dropped(DropMissingSku), nil
	}

	created, err := l.svcCtx.WebhookQueue.Enqueue(l.ctx, app.Id, webhookdal.Entry{
		SkuId:    sku,
		SellerId: seller,
	})
	if err != nil {
		return nil, err
	}

	if !created {
		return &AdmissionResult{Status: AdmissionCoalesced}, nil
	}

	// The debounce marker makes repeat calls no-ops, so every new entry may
	// try: this keeps a drain armed even after a dispatch failure rolled the
	// marker back, or when entries land mid-drain.
	if err := l.ScheduleDrain(app); err != nil {
		l.Logger.Errorf("webhook: schedule drain failed for app=%d: %v", app.Id, err)
	}
	return &AdmissionResult{Status: AdmissionEnqueued}, nil
}

// ScheduleDrain arms at most one pending drain per app. While the debounce
// marker is set, repeat calls are no-ops; the marker is cleared by the drain
// worker when it begins, so events arriving mid-drain re-arm a follow-up.
func (l *AdmitWebhookLogic) ScheduleDrain(app *appdal.Apps) error {
	fresh, err := l.svcCtx.WebhookQueue.MarkScheduled(l.ctx, app.Id)
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	queueName := app.QueueName(biz.QueueWebhooks)
	body, err := json.Marshal(mq.DequeuePayload{
		AppId:     app.Id,
		QueueName: queueName,
		BatchSize: l.svcCtx.BatchSize,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(mq.TaskDequeueWebhooks, body)
	_, err = l.svcCtx.Dispatcher.EnqueueContext(l.ctx, task,
		asynq.Queue(queueName),
		asynq.ProcessIn(l.svcCtx.DebounceWindow))
	if err != nil {
		// Roll back the marker so the next admission can schedule again.
		_ = l.svcCtx.WebhookQueue.ClearScheduled(l.ctx, app.Id)
		return err
	}
	return nil
}

func (l *AdmitWebhookLogic) auditDelivery(appId int64, sku string, raw []byte) {
	if _, err := l.svcCtx.WebhookLogs.Insert(l.ctx, &webhookdal.WebhookLogs{
		Id:      snowflake.Next(),
		AppId:   appId,
		SkuId:   sku,
		Payload: string(raw),
	}); err != nil {
		l.Logger.Errorf("webhook: audit log failed for app=%d: %v", appId, err)
	}
}

func dropped(reason DropReason) *AdmissionResult {
	return &AdmissionResult{Status: AdmissionDropped, Reason: reason}
}
