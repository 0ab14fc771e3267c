package mq

import (
	"context"
	"encoding/json"
	"time"

	productdal "MarketLink/app/dal/product"
	"MarketLink/app/services/sync/internal/svc"

	"github.com/segmentio/kafka-go"
	"github.com/zeromicro/go-zero/core/logx"
)

// PublishProductUpdates emits one product-updated event per changed record.
// Publishing is best effort: the catalog mirror is already consistent, so a
// lost event only delays downstream consumers until the next change.
func PublishProductUpdates(sc *svc.ServiceContext, products []*productdal.Products) {
	if len(sc.Config.KafkaConf.Broker) == 0 || sc.Config.KafkaConf.ProductsTopic == "" {
		return
	}

	msgs := make([]kafka.Message, 0, len(products))
	for _, p := range products {
		body, err := json.Marshal(ProductUpdatedEvent{
			AppId:    p.AppId,
			SkuId:    p.SkuId,
			SellerId: p.SellerId,
			Title:    p.Title,
		})
		if err != nil {
			continue
		}
		msgs = append(msgs, kafka.Message{Value: body})
	}
	if len(msgs) == 0 {
		return
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(sc.Config.KafkaConf.Broker...),
		Topic:        sc.Config.KafkaConf.ProductsTopic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	defer w.Close()

	if err := w.WriteMessages(context.Background(), msgs...); err != nil {
		logx.Errorf("kafka: publish %d product updates: %v", len(msgs), err)
	}
}
