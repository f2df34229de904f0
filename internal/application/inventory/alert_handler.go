package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/inventory"
	"github.com/ims/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StockAlertNotifier is the interface for pushing stock alerts to staff.
// Implementations can support different channels (log, pub/sub broadcast).
type StockAlertNotifier interface {
	// SendAlert sends a stock alert notification
	SendAlert(ctx context.Context, alert StockAlert) error
}

// StockAlert is the notification payload for a stock condition
type StockAlert struct {
	BranchID    uuid.UUID `json:"branch_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	AlertType   string    `json:"alert_type"` // "low_stock", "expiring", "recovered"
	Message     string    `json:"message"`
}

// StockAlertHandler reacts to low stock and expiry events: it persists an
// alert row for the branch's alert feed and pushes a notification.
// Both steps are best effort; a failed alert never fails the operation that
// raised the event.
type StockAlertHandler struct {
	scope    TransactionScope
	logger   *zap.Logger
	notifier StockAlertNotifier
}

// NewStockAlertHandler creates a new handler for stock alert events
func NewStockAlertHandler(scope TransactionScope, logger *zap.Logger) *StockAlertHandler {
	return &StockAlertHandler{
		scope:  scope,
		logger: logger,
	}
}

// WithNotifier sets the notifier for pushing alerts
func (h *StockAlertHandler) WithNotifier(notifier StockAlertNotifier) *StockAlertHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *StockAlertHandler) EventTypes() []string {
	return []string{
		inventory.EventTypeStockBelowThreshold,
		inventory.EventTypeStockRecovered,
		inventory.EventTypeBatchExpiring,
	}
}

// Handle processes a stock alert event
func (h *StockAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.StockBelowThresholdEvent:
		h.logger.Warn("stock below threshold",
			zap.String("branch_id", e.BranchID().String()),
			zap.String("product_id", e.ProductID.String()),
			zap.String("product", e.ProductName),
			zap.String("available", e.Available.String()),
			zap.String("threshold", e.Threshold.String()),
		)
		message := fmt.Sprintf("%s is low on stock: %s %s left (threshold %s %s)",
			e.ProductName, e.Available.String(), e.Unit, e.Threshold.String(), e.Unit)
		h.recordAlert(ctx, e.BranchID(), e.ProductID, inventory.AlertTypeLowStock, message)
		h.notify(ctx, StockAlert{
			BranchID:    e.BranchID(),
			ProductID:   e.ProductID,
			ProductName: e.ProductName,
			AlertType:   inventory.AlertTypeLowStock,
			Message:     message,
		})
		return nil

	case *inventory.StockRecoveredEvent:
		h.logger.Info("stock recovered above threshold",
			zap.String("branch_id", e.BranchID().String()),
			zap.String("product_id", e.ProductID.String()),
			zap.String("product", e.ProductName),
			zap.String("available", e.Available.String()),
		)
		// Recovery is pushed but not persisted as an alert row.
		h.notify(ctx, StockAlert{
			BranchID:    e.BranchID(),
			ProductID:   e.ProductID,
			ProductName: e.ProductName,
			AlertType:   "recovered",
			Message: fmt.Sprintf("%s recovered: %s %s available",
				e.ProductName, e.Available.String(), e.Unit),
		})
		return nil

	case *inventory.BatchExpiringEvent:
		message := fmt.Sprintf("%s: %s %s expire on %s",
			e.ProductName, e.QuantityLeft.String(), e.Unit, e.ExpiryDate.Format("2006-01-02"))
		h.recordAlert(ctx, e.BranchID(), e.ProductID, inventory.AlertTypeExpiring, message)
		h.notify(ctx, StockAlert{
			BranchID:    e.BranchID(),
			ProductID:   e.ProductID,
			ProductName: e.ProductName,
			AlertType:   inventory.AlertTypeExpiring,
			Message:     message,
		})
		return nil

	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}

// recordAlert persists an alert row unless an open one of the same type
// already exists for the product
func (h *StockAlertHandler) recordAlert(ctx context.Context, branchID, productID uuid.UUID, alertType, message string) {
	err := h.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.AlertRepo().ExistsOpen(ctx, branchID, productID, alertType)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return repos.AlertRepo().Save(ctx, inventory.NewInventoryAlert(branchID, productID, alertType, message))
	})
	if err != nil {
		h.logger.Error("failed to record stock alert",
			zap.String("product_id", productID.String()),
			zap.String("alert_type", alertType),
			zap.Error(err),
		)
	}
}

// notify pushes the alert if a notifier is configured
func (h *StockAlertHandler) notify(ctx context.Context, alert StockAlert) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.SendAlert(ctx, alert); err != nil {
		h.logger.Error("failed to send stock alert notification",
			zap.String("product_id", alert.ProductID.String()),
			zap.Error(err),
		)
	}
}

// Ensure StockAlertHandler implements shared.EventHandler
var _ shared.EventHandler = (*StockAlertHandler)(nil)

// LoggingStockAlertNotifier is a simple notifier that logs alerts.
// This is useful for development and testing.
type LoggingStockAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingStockAlertNotifier creates a new logging notifier
func NewLoggingStockAlertNotifier(logger *zap.Logger) *LoggingStockAlertNotifier {
	return &LoggingStockAlertNotifier{
		logger: logger,
	}
}

// SendAlert logs the stock alert
func (n *LoggingStockAlertNotifier) SendAlert(_ context.Context, alert StockAlert) error {
	n.logger.Warn("STOCK ALERT",
		zap.String("type", alert.AlertType),
		zap.String("branch_id", alert.BranchID.String()),
		zap.String("product_id", alert.ProductID.String()),
		zap.String("message", alert.Message),
	)
	return nil
}

// Ensure LoggingStockAlertNotifier implements StockAlertNotifier
var _ StockAlertNotifier = (*LoggingStockAlertNotifier)(nil)
