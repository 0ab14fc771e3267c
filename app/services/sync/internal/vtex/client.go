package vtex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zeromicro/go-zero/rest/httpc"
)

const defaultTimeout = 30 * time.Second

// API is the slice of the upstream commerce platform the pipeline consumes:
// catalog discovery, the channel's connected catalog, seller enumeration and
// per-SKU product fetches.
type API interface {
	ListCatalogIds(ctx context.Context, creds Credentials, businessId string) ([]string, error)
	GetCatalog(ctx context.Context, creds Credentials, catalogId string) (*Catalog, error)
	ConnectedCatalog(ctx context.Context, creds Credentials, channelId string) (string, error)
	GetSKU(ctx context.Context, creds Credentials, skuId, sellerId string) (*SKU, error)
	ListSKUIds(ctx context.Context, creds Credentials, page, pageSize int) ([]string, error)
	ListSellers(ctx context.Context, creds Credentials) ([]string, error)
	CloseIdleConnections()
}

type Client struct {
	cli *http.Client
	svc httpc.Service
}

var _ API = (*Client)(nil)

func NewClient() *Client {
	cli := &http.Client{Timeout: defaultTimeout}
	return &Client{
		cli: cli,
		svc: httpc.NewServiceWithClient("vtex", cli),
	}
}

type authedRequest struct {
	AppKey   string `header:"X-VTEX-API-AppKey"`
	AppToken string `header:"X-VTEX-API-AppToken"`
}

func (c *Client) ListCatalogIds(ctx context.Context, creds Credentials, businessId string) ([]string, error) {
	var resp struct {
		Data []struct {
			Id string `json:"id"`
		} `json:"data"`
	}
	u := fmt.Sprintf("https://%s/api/business/%s/catalogs", creds.Domain, url.PathEscape(businessId))
	if err := c.get(ctx, creds, u, &resp); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Data))
	for _, item := range resp.Data {
		ids = append(ids, item.Id)
	}
	return ids, nil
}

func (c *Client) GetCatalog(ctx context.Context, creds Credentials, catalogId string) (*Catalog, error) {
	var resp Catalog
	u := fmt.Sprintf("https://%s/api/catalogs/%s", creds.Domain, url.PathEscape(catalogId))
	if err := c.get(ctx, creds, u, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConnectedCatalog returns the id of the catalog currently connected to the
// channel, or "" when none is.
func (c *Client) ConnectedCatalog(ctx context.Context, creds Credentials, channelId string) (string, error) {
	var resp struct {
		Data []struct {
			Id string `json:"id"`
		} `json:"data"`
	}
	u := fmt.Sprintf("https://%s/api/channels/%s/connected_catalog", creds.Domain, url.PathEscape(channelId))
	if err := c.get(ctx, creds, u, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].Id, nil
}

func (c *Client) GetSKU(ctx context.Context, creds Credentials, skuId, sellerId string) (*SKU, error) {
	var resp SKU
	u := fmt.Sprintf("https://%s/api/catalog_system/pvt/sku/stockkeepingunitbyid/%s", creds.Domain, url.PathEscape(skuId))
	if sellerId != "" {
		u += "?seller=" + url.QueryEscape(sellerId)
	}
	if err := c.get(ctx, creds, u, &resp); err != nil {
		return nil, err
	}
	if resp.Id == "" {
		resp.Id = skuId
	}
	return &resp, nil
}

func (c *Client) ListSKUIds(ctx context.Context, creds Credentials, page, pageSize int) ([]string, error) {
	var raw []int64
	u := fmt.Sprintf("https://%s/api/catalog_system/pvt/sku/stockkeepingunitids?page=%d&pagesize=%d",
		creds.Domain, page, pageSize)
	if err := c.get(ctx, creds, u, &raw); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return ids, nil
}

func (c *Client) ListSellers(ctx context.Context, creds Credentials) ([]string, error) {
	var resp struct {
		Items []struct {
			Id string `json:"id"`
		} `json:"items"`
	}
	u := fmt.Sprintf("https://%s/api/seller-register/pvt/sellers", creds.Domain)
	if err := c.get(ctx, creds, u, &resp); err != nil {
		return nil, err
	}
	sellers := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		sellers = append(sellers, item.Id)
	}
	return sellers, nil
}

// CloseIdleConnections drops pooled upstream connections. The bulk insertion
// jobs run long enough for pooled connections to go stale, so they call this
// in a guaranteed cleanup step.
func (c *Client) CloseIdleConnections() {
	c.cli.CloseIdleConnections()
}

func (c *Client) get(ctx context.Context, creds Credentials, url string, out any) error {
	resp, err := c.svc.Do(ctx, http.MethodGet, url, authedRequest{
		AppKey:   creds.AppKey,
		AppToken: creds.AppToken,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vtex: %s returned status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
