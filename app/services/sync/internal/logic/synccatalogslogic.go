package logic

import (
	"context"

	catalogdal "MarketLink/app/dal/catalog"
	"MarketLink/app/services/sync/internal/flows"
	"MarketLink/app/services/sync/internal/svc"
	"MarketLink/app/services/sync/internal/vtex"

	appdal "MarketLink/app/dal/app"

	"github.com/zeromicro/go-zero/core/logx"
)

type SyncCatalogsLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewSyncCatalogsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SyncCatalogsLogic {
	return &SyncCatalogsLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// SyncCatalogs reconciles one tenant's local catalog mirror against the
// remote set: discover, push to the flows platform, create what is missing,
// bulk-delete what disappeared, and flag the channel's connected catalog.
// A concurrent pass for the same app turns this call into a no-op.
func (l *SyncCatalogsLogic) SyncCatalogs(appId int64) error {
	app, err := l.svcCtx.Apps.FindOne(l.ctx, appId)
	if err != nil {
		return err
	}

	locked, err := l.svcCtx.SyncLocks.IsCatalogSyncLocked(l.ctx, appId)
	if err != nil {
		return err
	}
	if locked {
		l.Logger.Infof("catalog sync: already running for app=%d", appId)
		return nil
	}
	acquired, err := l.svcCtx.SyncLocks.AcquireCatalogSync(l.ctx, appId)
	if err != nil {
		return err
	}
	if !acquired {
		l.Logger.Infof("catalog sync: lost the lock race for app=%d", appId)
		return nil
	}
	defer func() {
		if err := l.svcCtx.SyncLocks.ReleaseCatalogSync(context.WithoutCancel(l.ctx), appId); err != nil {
			l.Logger.Errorf("catalog sync: release lock for app=%d: %v", appId, err)
		}
	}()

	if app.BusinessId == "" || app.ChannelId == "" {
		l.Logger.Infof("catalog sync: app=%d has no business/channel identity yet", appId)
		return nil
	}

	remote := l.discoverRemoteCatalogs(app)
	activeId := l.connectedCatalogId(app)

	l.pushToFlows(app, remote, activeId)

	local, err := l.svcCtx.Catalogs.ListByApp(l.ctx, appId)
	if err != nil {
		return err
	}
	localIds := make(map[string]struct{}, len(local))
	for _, c := range local {
		localIds[c.CatalogId] = struct{}{}
	}

	// One bad catalog must not block the rest.
	for id, cat := range remote {
		if _, ok := localIds[id]; ok {
			continue
		}
		if _, err := l.svcCtx.Catalogs.Insert(l.ctx, &catalogdal.Catalogs{
			CatalogId: id,
			Name:      cat.Name,
			Vertical:  cat.Vertical,
			AppId:     appId,
		}); err != nil {
			l.Logger.Errorf("catalog sync: create mirror for app=%d catalog=%s: %v", appId, id, err)
		}
	}

	var stale []string
	for id := range localIds {
		if _, ok := remote[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if _, err := l.svcCtx.Catalogs.DeleteByRemoteIds(l.ctx, appId, stale); err != nil {
			l.Logger.Errorf("catalog sync: delete stale mirrors for app=%d: %v", appId, err)
		}
	}

	if activeId != "" {
		if err := l.svcCtx.Catalogs.SetActive(l.ctx, appId, activeId); err != nil {
			l.Logger.Errorf("catalog sync: flag active catalog for app=%d: %v", appId, err)
		}
	}

	l.Logger.Infof("catalog sync: app=%d remote=%d local=%d stale=%d active=%q",
		appId, len(remote), len(local), len(stale), activeId)
	return nil
}

// discoverRemoteCatalogs lists the remote set. Upstream failures degrade to
// an empty result instead of propagating, so one broken tenant cannot abort
// the fleet sweep.
func (l *SyncCatalogsLogic) discoverRemoteCatalogs(app *appdal.Apps) map[string]vtex.Catalog {
	creds := l.credentials(app)
	ids, err := l.svcCtx.Vtex.ListCatalogIds(l.ctx, creds, app.BusinessId)
	if err != nil {
		l.Logger.Errorf("catalog sync: list remote catalogs for app=%d: %v", app.Id, err)
		return map[string]vtex.Catalog{}
	}
	remote := make(map[string]vtex.Catalog, len(ids))
	for _, id := range ids {
		cat, err := l.svcCtx.Vtex.GetCatalog(l.ctx, creds, id)
		if err != nil {
			l.Logger.Errorf("catalog sync: fetch catalog details app=%d catalog=%s: %v", app.Id, id, err)
			continue
		}
		if cat.Id == "" {
			cat.Id = id
		}
		remote[id] = *cat
	}
	return remote
}

// connectedCatalogId returns the catalog currently wired to the app's
// channel, or "" when there is none or the probe fails. Never fatal.
func (l *SyncCatalogsLogic) connectedCatalogId(app *appdal.Apps) string {
	id, err := l.svcCtx.Vtex.ConnectedCatalog(l.ctx, l.credentials(app), app.ChannelId)
	if err != nil {
		l.Logger.Errorf("catalog sync: connected catalog probe for app=%d: %v", app.Id, err)
		return ""
	}
	return id
}

func (l *SyncCatalogsLogic) pushToFlows(app *appdal.Apps, remote map[string]vtex.Catalog, activeId string) {
	payload := make([]flows.Catalog, 0, len(remote))
	for id, cat := range remote {
		payload = append(payload, flows.Catalog{
			Id:       id,
			Name:     cat.Name,
			IsActive: id == activeId,
		})
	}
	if err := l.svcCtx.Flows.PushCatalogs(l.ctx, app.ChannelId, payload); err != nil {
		l.Logger.Errorf("catalog sync: push catalogs to flows for app=%d: %v", app.Id, err)
	}
}

func (l *SyncCatalogsLogic) credentials(app *appdal.Apps) vtex.Credentials {
	return vtex.Credentials{
		Domain:   app.Domain,
		AppKey:   app.AppKey,
		AppToken: app.AppToken,
	}
}
