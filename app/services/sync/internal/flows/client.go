package flows

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zeromicro/go-zero/rest/httpc"
)

const defaultTimeout = 30 * time.Second

// Catalog is the shape the flows platform expects when the reconciliation
// pass pushes the discovered catalog set.
type Catalog struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// API is the downstream flow/messaging platform, consumed only at this
// interface.
type API interface {
	PushCatalogs(ctx context.Context, channelId string, catalogs []Catalog) error
}

type Client struct {
	baseUrl string
	token   string
	svc     httpc.Service
}

var _ API = (*Client)(nil)

func NewClient(baseUrl, token string) *Client {
	return &Client{
		baseUrl: baseUrl,
		token:   token,
		svc:     httpc.NewServiceWithClient("flows", &http.Client{Timeout: defaultTimeout}),
	}
}

type pushCatalogsRequest struct {
	Authorization string    `header:"Authorization"`
	Catalogs      []Catalog `json:"catalogs"`
}

// PushCatalogs replaces the channel's catalog set on the flows side in one
// call.
func (c *Client) PushCatalogs(ctx context.Context, channelId string, catalogs []Catalog) error {
	u := fmt.Sprintf("%s/api/v1/channels/%s/catalogs", c.baseUrl, url.PathEscape(channelId))
	resp, err := c.svc.Do(ctx, http.MethodPut, u, pushCatalogsRequest{
		Authorization: "Token " + c.token,
		Catalogs:      catalogs,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("flows: push catalogs returned status %d", resp.StatusCode)
	}
	return nil
}
