// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package handler

import (
	"net/http"

	"MarketLink/app/services/sync/internal/handler/webhook"
	"MarketLink/app/services/sync/internal/svc"

	"github.com/zeromicro/go-zero/rest"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/api/webhook/:appId",
				Handler: webhook.NotificationHandler(serverCtx),
			},
		},
	)
}
