package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rookgm/chowline/internal/models"
	"go.uber.org/zap"
)

const (
	ordersChannel = "orders.events"
	readyChannel  = "orders.ready"

	publishTimeout = 2 * time.Second
)

// RedisNotifier fans order state changes out over Redis pub/sub.
// Invoked after commits only; publish failures are logged and dropped so
// they can never fail the owning operation.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisNotifier creates new RedisNotifier instance
func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

type orderEvent struct {
	OrderID        string    `json:"order_id"`
	Number         string    `json:"number"`
	Status         string    `json:"status"`
	Type           string    `json:"type"`
	Total          int64     `json:"total"`
	EstimatedReady time.Time `json:"estimated_ready"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type readyEvent struct {
	OrderID   string    `json:"order_id"`
	Number    string    `json:"number"`
	Type      string    `json:"type"`
	ReadyTime time.Time `json:"ready_time"`
}

// Publish broadcasts the order's current state
func (n *RedisNotifier) Publish(ctx context.Context, order *models.Order) error {
	payload, err := json.Marshal(orderEvent{
		OrderID:        order.ID.String(),
		Number:         order.Number,
		Status:         string(order.Status),
		Type:           string(order.Type),
		Total:          order.Total,
		EstimatedReady: order.EstimatedReady,
		UpdatedAt:      order.UpdatedAt,
	})
	if err != nil {
		return err
	}

	return n.publish(ctx, ordersChannel, payload)
}

// PublishReady broadcasts that an order is ready for pickup or dispatch
func (n *RedisNotifier) PublishReady(ctx context.Context, order *models.Order) error {
	readyTime := order.EstimatedReady
	if order.ActualReady != nil {
		readyTime = *order.ActualReady
	}

	payload, err := json.Marshal(readyEvent{
		OrderID:   order.ID.String(),
		Number:    order.Number,
		Type:      string(order.Type),
		ReadyTime: readyTime,
	})
	if err != nil {
		return err
	}

	return n.publish(ctx, readyChannel, payload)
}

func (n *RedisNotifier) publish(ctx context.Context, channel string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		n.logger.Warn("redis publish failed", zap.String("channel", channel), zap.Error(err))
		return err
	}

	return nil
}
