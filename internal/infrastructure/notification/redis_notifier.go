package notification

import (
	"context"
	"encoding/json"
	"fmt"

	appinventory "github.com/ims/backend/internal/application/inventory"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStockAlertNotifier broadcasts stock alerts over Redis Pub/Sub.
// Each branch gets its own channel so branch dashboards only see their own
// alerts; subscribers use "<prefix>:<branch-id>".
type RedisStockAlertNotifier struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStockAlertNotifier creates a notifier publishing on the given
// channel prefix
func NewRedisStockAlertNotifier(client *redis.Client, prefix string, logger *zap.Logger) *RedisStockAlertNotifier {
	if prefix == "" {
		prefix = "alerts"
	}
	return &RedisStockAlertNotifier{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// SendAlert publishes the alert to the branch channel
func (n *RedisStockAlertNotifier) SendAlert(ctx context.Context, alert appinventory.StockAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal stock alert: %w", err)
	}

	channel := n.channelFor(alert)
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish stock alert to %s: %w", channel, err)
	}

	n.logger.Debug("stock alert broadcast",
		zap.String("channel", channel),
		zap.String("alert_type", alert.AlertType),
		zap.String("product", alert.ProductName),
	)
	return nil
}

// channelFor returns the branch-scoped channel for an alert
func (n *RedisStockAlertNotifier) channelFor(alert appinventory.StockAlert) string {
	return fmt.Sprintf("%s:%s", n.prefix, alert.BranchID)
}

// Close releases the underlying client
func (n *RedisStockAlertNotifier) Close() error {
	return n.client.Close()
}

// Ensure RedisStockAlertNotifier implements StockAlertNotifier
var _ appinventory.StockAlertNotifier = (*RedisStockAlertNotifier)(nil)
