// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package types

type WebhookNotificationRequest struct {
	AppId int64 `path:"appId"`
}
