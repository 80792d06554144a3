// Package events publishes order lifecycle events.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event types.
const (
	OrderCreated              = "order.created"
	OrderStatusChanged        = "order.status_changed"
	OrderPaymentStatusChanged = "order.payment_status_changed"
	OrderPaymentConfirmed     = "order.user_payment_confirmed"
)

// OrderEvent is the payload written for every accepted order change.
type OrderEvent struct {
	Type          string          `json:"type"`
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        uint            `json:"user_id"`
	OldStatus     string          `json:"old_status,omitempty"`
	NewStatus     string          `json:"new_status,omitempty"`
	OrderStatus   string          `json:"order_status"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	ActorID       uint            `json:"actor_id,omitempty"`
	ActorRole     string          `json:"actor_role,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Publisher delivers order events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// New returns a Kafka publisher when brokers are configured and a log-only publisher otherwise.
func New(brokers []string, topic string, log *zap.Logger) Publisher {
	if len(brokers) == 0 || topic == "" {
		log.Info("kafka brokers not configured, order events are logged only")
		return NewLogPublisher(log)
	}
	log.Info("order events publisher initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return NewKafkaPublisher(brokers, topic, log)
}

// LogPublisher logs events instead of sending them anywhere.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event OrderEvent) error {
	p.logger.Debug("order event",
		zap.String("event_type", event.Type),
		zap.String("order_id", event.OrderID),
		zap.String("order_status", event.OrderStatus),
		zap.String("payment_status", event.PaymentStatus),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
