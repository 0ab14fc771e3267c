// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package webhook

import (
	"io"
	"net/http"

	"MarketLink/app/common/consts/errno"
	"MarketLink/app/common/response"
	"MarketLink/app/services/sync/internal/logic"
	"MarketLink/app/services/sync/internal/svc"
	"MarketLink/app/services/sync/internal/types"

	"github.com/zeromicro/go-zero/rest/httpx"
)

// NotificationHandler receives one upstream change notification. Drops are
// reported in the body, never as HTTP errors: the upstream source retries on
// non-2xx, and retrying a drop would not change the outcome.
func NotificationHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Only the path is parsed here; a full httpx.Parse would drain the
		// JSON body, which Admit must receive verbatim.
		var req types.WebhookNotificationRequest
		if err := httpx.ParsePath(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewAdmitWebhookLogic(r.Context(), svcCtx)
		result, err := l.Admit(req.AppId, raw)
		if err != nil {
			httpx.OkJsonCtx(r.Context(), w, response.NewResponse(errno.InternalError, err.Error()))
			return
		}
		httpx.OkJsonCtx(r.Context(), w, response.NewResponseWithData(errno.StatusOK, "ok", result))
	}
}
