package table

import (
	"context"
	"fmt"

	"deskgoo-pos/internal/logger"
	"deskgoo-pos/internal/order"
	"deskgoo-pos/internal/takeaway"

	"go.uber.org/zap"
)

// TakeawayFinder is the slice of the takeaway store the resolver needs.
type TakeawayFinder interface {
	FindByID(ctx context.Context, id int64) (*takeaway.Takeaway, error)
	FindForUpdate(ctx context.Context, id int64) (*takeaway.Takeaway, error)
}

// Resolver maps orders to their serving context and is the only writer of
// table occupancy.
type Resolver struct {
	tables    Repository
	takeaways TakeawayFinder
}

var _ order.ContextResolver = (*Resolver)(nil)

func NewResolver(tables Repository, takeaways TakeawayFinder) *Resolver {
	return &Resolver{tables: tables, takeaways: takeaways}
}

// Validate checks that the context exists and can accept a new order.
func (r *Resolver) Validate(ctx context.Context, sc order.ServingContext) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	if sc.TableID != nil {
		_, err := r.tables.FindByID(ctx, *sc.TableID)
		return err
	}

	t, err := r.takeaways.FindForUpdate(ctx, *sc.TakeawayID)
	if err != nil {
		return err
	}
	if t.Deleted() {
		return takeaway.ErrTakeawayNotFound
	}
	if t.Status == takeaway.StatusCompleted {
		return takeaway.ErrTakeawayCompleted
	}
	return nil
}

// Occupy marks the table occupied. Takeaway contexts have no occupancy.
func (r *Resolver) Occupy(ctx context.Context, sc order.ServingContext) error {
	if sc.TableID == nil {
		return nil
	}
	if err := r.tables.SetStatus(ctx, *sc.TableID, StatusOccupied); err != nil {
		return fmt.Errorf("occupy table %d: %w", *sc.TableID, err)
	}
	return nil
}

// Release marks the table available unless some other active order still
// references it. Calling it again is harmless.
func (r *Resolver) Release(ctx context.Context, sc order.ServingContext) (bool, error) {
	if sc.TableID == nil {
		return false, nil
	}
	tableID := *sc.TableID

	busy, err := r.tables.HasActiveOrders(ctx, tableID)
	if err != nil {
		return false, err
	}
	if busy {
		logger.FromCtx(ctx).Debug("table kept occupied",
			zap.String("layer", "resolver"),
			zap.Int64("table_id", tableID),
		)
		return false, nil
	}

	if err := r.tables.SetStatus(ctx, tableID, StatusAvailable); err != nil {
		return false, fmt.Errorf("release table %d: %w", tableID, err)
	}
	return true, nil
}

// Label is the display name of the context: the table label, or the
// takeaway number.
func (r *Resolver) Label(ctx context.Context, sc order.ServingContext) (string, error) {
	if sc.TableID != nil {
		t, err := r.tables.FindByID(ctx, *sc.TableID)
		if err != nil {
			return "", err
		}
		if t.AreaName != "" {
			return t.AreaName + " / " + t.Label, nil
		}
		return t.Label, nil
	}
	if sc.TakeawayID != nil {
		t, err := r.takeaways.FindByID(ctx, *sc.TakeawayID)
		if err != nil {
			return "", err
		}
		return t.Number, nil
	}
	return "", order.ErrContextMissing
}
