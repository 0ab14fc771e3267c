package webhook

import (
	"errors"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var ErrNotFound = sqlx.ErrNotFound
var ErrEmptySku = errors.New("webhook queue entry requires a sku id")
