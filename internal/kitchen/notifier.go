package kitchen

import (
	"context"
	"errors"

	"deskgoo-pos/internal/logger"

	"go.uber.org/zap"
)

// Notifier delivers tickets to the kitchen. Implementations must tolerate
// the same (order, reason) pair being sent more than once.
type Notifier interface {
	Notify(ctx context.Context, t Ticket) error
}

// LogNotifier writes tickets to the structured log. It never fails.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(ctx context.Context, t Ticket) error {
	fields := []zap.Field{
		zap.String("layer", "kitchen"),
		zap.String("ticket_number", t.TicketNumber),
		zap.String("idempotency_key", t.IdempotencyKey()),
		zap.Int64("order_id", t.OrderID),
		zap.String("context", t.ContextLabel),
		zap.String("reason", string(t.Reason)),
		zap.Int("item_count", len(t.Items)),
		zap.String("total_amount", t.TotalAmount.StringFixed(2)),
		zap.Time("timestamp", t.Timestamp),
	}
	if len(t.VoidedOrderIDs) > 0 {
		fields = append(fields, zap.Int64s("voided_order_ids", t.VoidedOrderIDs))
	}

	logger.FromCtx(ctx).Info("kitchen ticket", fields...)
	return nil
}

// Multi fans a ticket out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, t Ticket) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
