package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/lojafacil/api/internal/platform/textutil"
	"github.com/lojafacil/api/internal/services"
)

// PubSubOrderPublisher publishes order lifecycle events to a Pub/Sub topic.
type PubSubOrderPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubOrderPublisher constructs a Pub/Sub backed order event publisher.
func NewPubSubOrderPublisher(topic *pubsub.Topic) (*PubSubOrderPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub order publisher: topic is required")
	}
	return &PubSubOrderPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishOrderCreated enqueues an order-created event on the configured topic.
func (p *PubSubOrderPublisher) PublishOrderCreated(ctx context.Context, message services.OrderCreatedMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub order publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal order created event: %w", err)
	}

	attrs := textutil.NormalizeStringMap(map[string]string{
		"orderId":        message.OrderID,
		"storeId":        message.StoreID,
		"status":         message.Status,
		"paymentMethod":  message.PaymentMethod,
		"deliveryMethod": message.DeliveryMethod,
	})

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish order created event: %w", err)
	}
	return id, nil
}
