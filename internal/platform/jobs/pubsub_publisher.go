package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/sicommerce/storefront/internal/services"
)

// PubSubOrderPublisher publishes order-submitted events to a Pub/Sub topic.
type PubSubOrderPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ services.OrderNotifier = (*PubSubOrderPublisher)(nil)

// NewPubSubOrderPublisher constructs a Pub/Sub backed order notifier.
func NewPubSubOrderPublisher(topic *pubsub.Topic) (*PubSubOrderPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub order publisher: topic is required")
	}
	return &PubSubOrderPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// NotifyOrderSubmitted publishes the event and waits for the server acknowledgement.
func (p *PubSubOrderPublisher) NotifyOrderSubmitted(ctx context.Context, event services.OrderSubmittedEvent) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub order publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "source", string(event.Source))
	setAttr(attrs, "paymentMethod", string(event.PaymentMethod))

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// LogOrderNotifier records order events in the log when no topic is configured.
type LogOrderNotifier struct {
	Logger *zap.Logger
}

var _ services.OrderNotifier = LogOrderNotifier{}

func (n LogOrderNotifier) NotifyOrderSubmitted(_ context.Context, event services.OrderSubmittedEvent) error {
	logger := n.Logger
	if logger == nil {
		return nil
	}
	logger.Info("order submitted event",
		zap.String("order_id", event.OrderID),
		zap.String("source", string(event.Source)),
		zap.Int("items", len(event.Items)),
		zap.Int64("total", event.Total),
	)
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
