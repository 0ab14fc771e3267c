package logic

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"MarketLink/app/common/consts/biz"
	appdal "MarketLink/app/dal/app"
	catalogdal "MarketLink/app/dal/catalog"
	productdal "MarketLink/app/dal/product"
	uploaddal "MarketLink/app/dal/upload"
	webhookdal "MarketLink/app/dal/webhook"
	"MarketLink/app/services/sync/internal/flows"
	"MarketLink/app/services/sync/internal/svc"
	"MarketLink/app/services/sync/internal/updater"
	"MarketLink/app/services/sync/internal/vtex"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"
)

func TestMain(m *testing.M) {
	logx.Disable()
	m.Run()
}

type fakeResult struct {
	lastId int64
	rows   int64
}

func (r fakeResult) LastInsertId() (int64, error) { return r.lastId, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, nil }

type fakeAppsModel struct {
	apps map[int64]*appdal.Apps
}

func (m *fakeAppsModel) Insert(_ context.Context, data *appdal.Apps) (sql.Result, error) {
	m.apps[data.Id] = data
	return fakeResult{lastId: data.Id, rows: 1}, nil
}

func (m *fakeAppsModel) FindOne(_ context.Context, id int64) (*appdal.Apps, error) {
	if app, ok := m.apps[id]; ok {
		return app, nil
	}
	return nil, appdal.ErrNotFound
}

func (m *fakeAppsModel) FindAllConfigured(_ context.Context) ([]*appdal.Apps, error) {
	var resp []*appdal.Apps
	for _, app := range m.apps {
		if app.HasCredentials() {
			resp = append(resp, app)
		}
	}
	return resp, nil
}

func (m *fakeAppsModel) Update(_ context.Context, data *appdal.Apps) error {
	m.apps[data.Id] = data
	return nil
}

type fakeCatalogsModel struct {
	rows       []*catalogdal.Catalogs
	insertErrs map[string]error
	nextId     int64
}

func (m *fakeCatalogsModel) Insert(_ context.Context, data *catalogdal.Catalogs) (sql.Result, error) {
	if err := m.insertErrs[data.CatalogId]; err != nil {
		return nil, err
	}
	m.nextId++
	row := *data
	row.Id = m.nextId
	m.rows = append(m.rows, &row)
	return fakeResult{lastId: row.Id, rows: 1}, nil
}

func (m *fakeCatalogsModel) FindFirstByApp(_ context.Context, appId int64) (*catalogdal.Catalogs, error) {
	var first *catalogdal.Catalogs
	for _, row := range m.rows {
		if row.AppId != appId {
			continue
		}
		if first == nil || (row.IsActive && !first.IsActive) {
			first = row
		}
	}
	if first == nil {
		return nil, catalogdal.ErrNotFound
	}
	return first, nil
}

func (m *fakeCatalogsModel) ListByApp(_ context.Context, appId int64) ([]*catalogdal.Catalogs, error) {
	var resp []*catalogdal.Catalogs
	for _, row := range m.rows {
		if row.AppId == appId {
			resp = append(resp, row)
		}
	}
	return resp, nil
}

func (m *fakeCatalogsModel) DeleteByRemoteIds(_ context.Context, appId int64, remoteIds []string) (int64, error) {
	doomed := make(map[string]struct{}, len(remoteIds))
	for _, id := range remoteIds {
		doomed[id] = struct{}{}
	}
	kept := m.rows[:0]
	var deleted int64
	for _, row := range m.rows {
		if _, ok := doomed[row.CatalogId]; ok && row.AppId == appId {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return deleted, nil
}

func (m *fakeCatalogsModel) SetActive(_ context.Context, appId int64, remoteId string) error {
	for _, row := range m.rows {
		if row.AppId == appId {
			row.IsActive = row.CatalogId == remoteId
		}
	}
	return nil
}

func (m *fakeCatalogsModel) remoteIds(appId int64) []string {
	var ids []string
	for _, row := range m.rows {
		if row.AppId == appId {
			ids = append(ids, row.CatalogId)
		}
	}
	return ids
}

type fakeProductsModel struct {
	rows       map[string]*productdal.Products
	upsertErrs map[string]error
}

func productKey(appId int64, skuId, sellerId string) string {
	return fmt.Sprintf("%d|%s|%s", appId, skuId, sellerId)
}

func (m *fakeProductsModel) Upsert(_ context.Context, data *productdal.Products) (sql.Result, error) {
	if err := m.upsertErrs[data.SkuId]; err != nil {
		return nil, err
	}
	row := *data
	m.rows[productKey(data.AppId, data.SkuId, data.SellerId)] = &row
	return fakeResult{rows: 1}, nil
}

func (m *fakeProductsModel) FindOneBySku(_ context.Context, appId int64, skuId, sellerId string) (*productdal.Products, error) {
	if row, ok := m.rows[productKey(appId, skuId, sellerId)]; ok {
		return row, nil
	}
	return nil, productdal.ErrNotFound
}

func (m *fakeProductsModel) CountByApp(_ context.Context, appId int64) (int64, error) {
	var count int64
	for _, row := range m.rows {
		if row.AppId == appId {
			count++
		}
	}
	return count, nil
}

type fakeUploadsModel struct {
	rows      map[int64]*uploaddal.Uploads
	insertErr error
}

func (m *fakeUploadsModel) Insert(_ context.Context, data *uploaddal.Uploads) (sql.Result, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	row := *data
	m.rows[data.Id] = &row
	return fakeResult{lastId: data.Id, rows: 1}, nil
}

func (m *fakeUploadsModel) FindOne(_ context.Context, id int64) (*uploaddal.Uploads, error) {
	if row, ok := m.rows[id]; ok {
		return row, nil
	}
	return nil, uploaddal.ErrNotFound
}

func (m *fakeUploadsModel) UpdateStatus(_ context.Context, id int64, status, errorMsg string) error {
	row, ok := m.rows[id]
	if !ok {
		return uploaddal.ErrNotFound
	}
	row.Status = status
	row.ErrorMsg = errorMsg
	return nil
}

func (m *fakeUploadsModel) MarkStuck(_ context.Context, fromStatus, toStatus string) (int64, error) {
	var moved int64
	for _, row := range m.rows {
		if row.Status == fromStatus {
			row.Status = toStatus
			moved++
		}
	}
	return moved, nil
}

func (m *fakeUploadsModel) single(t *testing.T) *uploaddal.Uploads {
	t.Helper()
	if len(m.rows) != 1 {
		t.Fatalf("expected exactly one upload row, got %d", len(m.rows))
	}
	for _, row := range m.rows {
		return row
	}
	return nil
}

type fakeUploadLogsModel struct {
	rows []*uploaddal.UploadLogs
}

func (m *fakeUploadLogsModel) Insert(_ context.Context, data *uploaddal.UploadLogs) (sql.Result, error) {
	row := *data
	row.Id = int64(len(m.rows) + 1)
	m.rows = append(m.rows, &row)
	return fakeResult{lastId: row.Id, rows: 1}, nil
}

func (m *fakeUploadLogsModel) ListByUpload(_ context.Context, uploadId int64) ([]*uploaddal.UploadLogs, error) {
	var resp []*uploaddal.UploadLogs
	for _, row := range m.rows {
		if row.UploadId == uploadId {
			resp = append(resp, row)
		}
	}
	return resp, nil
}

func (m *fakeUploadLogsModel) DeleteAll(_ context.Context) (int64, error) {
	deleted := int64(len(m.rows))
	m.rows = nil
	return deleted, nil
}

type fakeWebhookLogsModel struct {
	rows []*webhookdal.WebhookLogs
}

func (m *fakeWebhookLogsModel) Insert(_ context.Context, data *webhookdal.WebhookLogs) (sql.Result, error) {
	row := *data
	m.rows = append(m.rows, &row)
	return fakeResult{lastId: row.Id, rows: 1}, nil
}

func (m *fakeWebhookLogsModel) CountByApp(_ context.Context, appId int64) (int64, error) {
	var count int64
	for _, row := range m.rows {
		if row.AppId == appId {
			count++
		}
	}
	return count, nil
}

func (m *fakeWebhookLogsModel) DeleteAll(_ context.Context) (int64, error) {
	deleted := int64(len(m.rows))
	m.rows = nil
	return deleted, nil
}

type dispatchedTask struct {
	Task *asynq.Task
	Opts []asynq.Option
}

// Queue extracts the asynq.Queue option the task was dispatched with.
func (d dispatchedTask) Queue() string {
	for _, opt := range d.Opts {
		if opt.Type() == asynq.QueueOpt {
			return opt.Value().(string)
		}
	}
	return ""
}

// Delay extracts the asynq.ProcessIn option the task was dispatched with.
func (d dispatchedTask) Delay() time.Duration {
	for _, opt := range d.Opts {
		if opt.Type() == asynq.ProcessInOpt {
			return opt.Value().(time.Duration)
		}
	}
	return 0
}

type fakeDispatcher struct {
	tasks     []dispatchedTask
	failTypes map[string]error
}

func (d *fakeDispatcher) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if err := d.failTypes[task.Type()]; err != nil {
		return nil, err
	}
	d.tasks = append(d.tasks, dispatchedTask{Task: task, Opts: opts})
	return &asynq.TaskInfo{
		ID:      fmt.Sprintf("task-%d", len(d.tasks)),
		Type:    task.Type(),
		Payload: task.Payload(),
	}, nil
}

func (d *fakeDispatcher) byType(taskType string) []dispatchedTask {
	var resp []dispatchedTask
	for _, task := range d.tasks {
		if task.Task.Type() == taskType {
			resp = append(resp, task)
		}
	}
	return resp
}

type fakeVtexAPI struct {
	catalogIds     []string
	listCatErr     error
	catalogs       map[string]*vtex.Catalog
	getCatErrs     map[string]error
	connectedId    string
	connectedErr   error
	skus           map[string]*vtex.SKU
	skuErrs        map[string]error
	skuPages       [][]string
	listSkuErr     error
	sellers        []string
	listSellersErr error
	idleClosed     int
}

func (f *fakeVtexAPI) ListCatalogIds(_ context.Context, _ vtex.Credentials, _ string) ([]string, error) {
	if f.listCatErr != nil {
		return nil, f.listCatErr
	}
	return f.catalogIds, nil
}

func (f *fakeVtexAPI) GetCatalog(_ context.Context, _ vtex.Credentials, catalogId string) (*vtex.Catalog, error) {
	if err := f.getCatErrs[catalogId]; err != nil {
		return nil, err
	}
	if cat, ok := f.catalogs[catalogId]; ok {
		copied := *cat
		return &copied, nil
	}
	return &vtex.Catalog{Id: catalogId, Name: "Catalog " + catalogId}, nil
}

func (f *fakeVtexAPI) ConnectedCatalog(_ context.Context, _ vtex.Credentials, _ string) (string, error) {
	if f.connectedErr != nil {
		return "", f.connectedErr
	}
	return f.connectedId, nil
}

func (f *fakeVtexAPI) GetSKU(_ context.Context, _ vtex.Credentials, skuId, _ string) (*vtex.SKU, error) {
	if err := f.skuErrs[skuId]; err != nil {
		return nil, err
	}
	if sku, ok := f.skus[skuId]; ok {
		copied := *sku
		return &copied, nil
	}
	return &vtex.SKU{Id: skuId, Name: "SKU " + skuId, IsActive: true}, nil
}

func (f *fakeVtexAPI) ListSKUIds(_ context.Context, _ vtex.Credentials, page, _ int) ([]string, error) {
	if f.listSkuErr != nil {
		return nil, f.listSkuErr
	}
	if page < 1 || page > len(f.skuPages) {
		return nil, nil
	}
	return f.skuPages[page-1], nil
}

func (f *fakeVtexAPI) ListSellers(_ context.Context, _ vtex.Credentials) ([]string, error) {
	if f.listSellersErr != nil {
		return nil, f.listSellersErr
	}
	return f.sellers, nil
}

func (f *fakeVtexAPI) CloseIdleConnections() {
	f.idleClosed++
}

type flowsPush struct {
	ChannelId string
	Catalogs  []flows.Catalog
}

type fakeFlowsAPI struct {
	pushes []flowsPush
	err    error
}

func (f *fakeFlowsAPI) PushCatalogs(_ context.Context, channelId string, catalogs []flows.Catalog) error {
	if f.err != nil {
		return f.err
	}
	f.pushes = append(f.pushes, flowsPush{ChannelId: channelId, Catalogs: catalogs})
	return nil
}

// testEnv wires a ServiceContext over in-memory fakes plus a real redis
// (miniredis) behind the queue and lock models, so the coordination paths
// exercise the actual Lua scripts and lock semantics.
type testEnv struct {
	mr          *miniredis.Miniredis
	svcCtx      *svc.ServiceContext
	apps        *fakeAppsModel
	catalogs    *fakeCatalogsModel
	products    *fakeProductsModel
	uploads     *fakeUploadsModel
	uploadLogs  *fakeUploadLogsModel
	webhookLogs *fakeWebhookLogsModel
	dispatcher  *fakeDispatcher
	vtex        *fakeVtexAPI
	flows       *fakeFlowsAPI
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rds := redis.New(mr.Addr())

	env := &testEnv{
		mr:          mr,
		apps:        &fakeAppsModel{apps: map[int64]*appdal.Apps{}},
		catalogs:    &fakeCatalogsModel{insertErrs: map[string]error{}},
		products:    &fakeProductsModel{rows: map[string]*productdal.Products{}, upsertErrs: map[string]error{}},
		uploads:     &fakeUploadsModel{rows: map[int64]*uploaddal.Uploads{}},
		uploadLogs:  &fakeUploadLogsModel{},
		webhookLogs: &fakeWebhookLogsModel{},
		dispatcher:  &fakeDispatcher{failTypes: map[string]error{}},
		vtex: &fakeVtexAPI{
			catalogs:   map[string]*vtex.Catalog{},
			getCatErrs: map[string]error{},
			skus:       map[string]*vtex.SKU{},
			skuErrs:    map[string]error{},
		},
		flows: &fakeFlowsAPI{},
	}
	env.svcCtx = &svc.ServiceContext{
		Apps:         env.apps,
		Catalogs:     env.catalogs,
		SyncLocks:    catalogdal.NewSyncLockModel(rds),
		Products:     env.products,
		Uploads:      env.uploads,
		UploadLogs:   env.uploadLogs,
		WebhookQueue: webhookdal.NewQueueModel(rds),
		WebhookLogs:  env.webhookLogs,
		Dispatcher:   env.dispatcher,
		Vtex:         env.vtex,
		Flows:        env.flows,
		Updaters: &updater.Factory{
			Vtex:       env.vtex,
			Products:   env.products,
			Uploads:    env.uploads,
			UploadLogs: env.uploadLogs,
		},
		DebounceWindow: biz.DefaultDebounceWindow,
		BatchSize:      biz.DefaultBatchSize,
	}
	return env
}

// addApp registers a fully configured tenant ready to admit webhooks.
func (e *testEnv) addApp(id int64) *appdal.Apps {
	app := &appdal.Apps{
		Id:                   id,
		Uuid:                 fmt.Sprintf("app-%d", id),
		Name:                 fmt.Sprintf("Tenant %d", id),
		Domain:               "acme.example.com",
		AppKey:               "key",
		AppToken:             "token",
		BusinessId:           "biz-1",
		ChannelId:            "chan-1",
		SyncMode:             biz.SyncModeFeed,
		InitialSyncCompleted: true,
	}
	e.apps.apps[id] = app
	return app
}

// addCatalog mirrors a remote catalog locally.
func (e *testEnv) addCatalog(appId int64, remoteId string) *catalogdal.Catalogs {
	cat := &catalogdal.Catalogs{
		CatalogId: remoteId,
		Name:      "Catalog " + remoteId,
		AppId:     appId,
	}
	e.catalogs.nextId++
	cat.Id = e.catalogs.nextId
	e.catalogs.rows = append(e.catalogs.rows, cat)
	return cat
}

func testCredentials() vtex.Credentials {
	return vtex.Credentials{Domain: "acme.example.com", AppKey: "key", AppToken: "token"}
}
