package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/sicommerce/storefront/internal/domain"
	"github.com/sicommerce/storefront/internal/services"
)

func TestPubSubOrderPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "orders")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubOrderPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubOrderPublisher: %v", err)
	}

	event := services.OrderSubmittedEvent{
		OrderID:       "ord_test",
		Source:        domain.OrderSourceCartCheckout,
		Items:         []services.OrderEventItem{{ProductID: "p1", Name: "스마트폰", Price: 1290000, Quantity: 1}},
		Subtotal:      1290000,
		Total:         1290000,
		CustomerName:  "홍길동",
		CustomerEmail: "hong@example.com",
		PaymentMethod: domain.PaymentMethodKakaoPay,
		SubmittedAt:   time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC),
	}
	if err := publisher.NotifyOrderSubmitted(ctx, event); err != nil {
		t.Fatalf("NotifyOrderSubmitted: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.OrderSubmittedEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != "ord_test" || payload.Total != 1290000 || len(payload.Items) != 1 {
		t.Fatalf("unexpected payload %#v", payload)
	}
	attrs := messages[0].Attributes
	if attrs["orderId"] != "ord_test" || attrs["source"] != "cart_checkout" || attrs["paymentMethod"] != "kakaopay" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
}

func TestNewPubSubOrderPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubOrderPublisher(nil); err == nil {
		t.Fatalf("expected nil topic to be rejected")
	}
}

func TestLogOrderNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	notifier := LogOrderNotifier{Logger: zap.New(core)}

	if err := notifier.NotifyOrderSubmitted(context.Background(), services.OrderSubmittedEvent{OrderID: "ord_x", Total: 5000}); err != nil {
		t.Fatalf("NotifyOrderSubmitted: %v", err)
	}
	entries := logs.FilterMessage("order submitted event").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["order_id"]; got != "ord_x" {
		t.Fatalf("expected order_id field, got %v", got)
	}
	if err := (LogOrderNotifier{}).NotifyOrderSubmitted(context.Background(), services.OrderSubmittedEvent{}); err != nil {
		t.Fatalf("expected nil logger notifier to succeed, got %v", err)
	}
}
