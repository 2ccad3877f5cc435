package transfer

import (
	"context"
	"time"

	"deskgoo-pos/internal/kitchen"
	"deskgoo-pos/internal/logger"
	"deskgoo-pos/internal/order"
	"deskgoo-pos/internal/utils"

	"go.uber.org/zap"
)

func (s *service) buildTicket(ctx context.Context, o *order.Order, reason kitchen.Reason, notes *string) kitchen.Ticket {
	label, err := s.resolver.Label(ctx, o.Context())
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to resolve ticket label",
			zap.Int64("order_id", o.ID),
			zap.Error(err),
		)
	}

	items := make([]kitchen.TicketItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, kitchen.TicketItem{
			MenuItemID: it.MenuItemID,
			Name:       it.MenuItemName,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
			Notes:      it.Notes,
		})
	}

	return kitchen.Ticket{
		TicketNumber:   utils.GenerateTicketNumber(),
		OrderID:        o.ID,
		ContextLabel:   label,
		Reason:         reason,
		Items:          items,
		TotalAmount:    o.TotalAmount,
		VATAmount:      o.VATAmount,
		DiscountAmount: o.DiscountAmount,
		Notes:          notes,
		Timestamp:      s.now().UTC().Truncate(time.Millisecond),
	}
}

// notify is for side-effect tickets after a commit: the mutation already
// happened, so failures are logged and counted only.
func (s *service) notify(ctx context.Context, t kitchen.Ticket) {
	if err := s.kitchen.Notify(ctx, t); err != nil {
		s.metrics.Inc("kitchen_notify_failures")
		logger.FromCtx(ctx).Error("failed to notify kitchen",
			zap.String("layer", "transfer"),
			zap.Int64("order_id", t.OrderID),
			zap.String("reason", string(t.Reason)),
			zap.Error(err),
		)
		return
	}
	s.metrics.Inc("kitchen_tickets_sent")
}
