package order

import (
	"context"
	"fmt"
	"time"

	"deskgoo-pos/internal/apperr"
	"deskgoo-pos/internal/db"
	"deskgoo-pos/internal/logger"
	"deskgoo-pos/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ContextResolver validates serving contexts and owns table occupancy.
// Occupancy is never written anywhere else.
type ContextResolver interface {
	Validate(ctx context.Context, sc ServingContext) error
	Occupy(ctx context.Context, sc ServingContext) error
	// Release frees the table unless another active order still uses it.
	// It reports whether the table ended up available.
	Release(ctx context.Context, sc ServingContext) (bool, error)
	Label(ctx context.Context, sc ServingContext) (string, error)
}

type Service interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error)
	AddItems(ctx context.Context, orderID int64, items []ItemInput) (*Order, error)
	UpdateItem(ctx context.Context, orderID, itemID int64, in UpdateItemInput) (*OrderItem, error)
	RemoveItem(ctx context.Context, orderID, itemID int64) (*RemoveItemResult, error)
	UpdateStatus(ctx context.Context, orderID int64, status Status) (*Order, error)
	UpdatePaymentMethod(ctx context.Context, orderID int64, method PaymentMethod) (*Order, error)
	Checkout(ctx context.Context, orderID int64, in CheckoutInput) (*Order, error)
	GetOrder(ctx context.Context, orderID int64) (*OrderDetail, error)
	ListOrders(ctx context.Context, f ListFilter) ([]Order, error)
	ListAudit(ctx context.Context, orderID int64) ([]AuditEntry, error)
}

type service struct {
	repo     Repository
	tx       db.TxManager
	resolver ContextResolver
	now      func() time.Time
}

func NewService(repo Repository, tx db.TxManager, resolver ContextResolver) Service {
	return &service{
		repo:     repo,
		tx:       tx,
		resolver: resolver,
		now:      time.Now,
	}
}

func (s *service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
	)
	log.Info("CreateOrder started")

	sc := ServingContext{TableID: in.TableID, TakeawayID: in.TakeawayID}
	if err := sc.Validate(); err != nil {
		log.Warn("invalid serving context", zap.Error(err))
		return nil, err
	}

	items, err := newItems(in.Items)
	if err != nil {
		log.Warn("invalid items", zap.Error(err))
		return nil, err
	}
	if err := validateVAT(in.VATPercentage); err != nil {
		return nil, err
	}
	if err := validateDiscount(in.DiscountAmount, in.DiscountType); err != nil {
		return nil, err
	}

	status := StatusPending
	if in.Status != nil {
		st, err := ParseStatus(string(*in.Status))
		if err != nil {
			return nil, err
		}
		if st.IsTerminal() {
			return nil, ErrInvalidStatus
		}
		status = st
	}

	total, vat := Totals(items, in.VATPercentage)
	o := &Order{
		TableID:        in.TableID,
		TakeawayID:     in.TakeawayID,
		OrderType:      sc.Type(),
		TotalAmount:    total,
		DiscountAmount: in.DiscountAmount,
		DiscountType:   in.DiscountType,
		VATAmount:      vat,
		VATPercentage:  in.VATPercentage,
		Status:         status,
		Notes:          in.Notes,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.resolver.Validate(ctx, sc); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, o); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = o.ID
			if err := s.repo.InsertItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		if err := s.resolver.Occupy(ctx, sc); err != nil {
			return err
		}
		return s.audit(ctx, o.ID, AuditCreated, fmt.Sprintf("order opened with %d item(s), total %s", len(items), total.StringFixed(2)))
	})
	if err != nil {
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}

	o.Items = items
	log.Info("CreateOrder success", zap.Int64("order_id", o.ID))
	return o, nil
}

func (s *service) AddItems(ctx context.Context, orderID int64, in []ItemInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItems"),
		zap.Int64("order_id", orderID),
	)
	log.Info("AddItems started")

	items, err := newItems(in)
	if err != nil {
		log.Warn("invalid items", zap.Error(err))
		return nil, err
	}

	var o *Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err = s.repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return ErrOrderClosed
		}

		for i := range items {
			items[i].OrderID = orderID
			if err := s.repo.InsertItem(ctx, &items[i]); err != nil {
				return err
			}
		}

		if err := s.recompute(ctx, o); err != nil {
			return err
		}
		return s.audit(ctx, orderID, AuditItemsAdded, fmt.Sprintf("%d item(s) added", len(items)))
	})
	if err != nil {
		log.Error("failed to add items", zap.Error(err))
		return nil, err
	}

	log.Info("AddItems success", zap.Int("count", len(items)))
	return o, nil
}

func (s *service) UpdateItem(ctx context.Context, orderID, itemID int64, in UpdateItemInput) (*OrderItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateItem"),
		zap.Int64("order_id", orderID),
		zap.Int64("item_id", itemID),
	)
	log.Info("UpdateItem started")

	if err := validateItemUpdate(in); err != nil {
		log.Warn("invalid item update", zap.Error(err))
		return nil, err
	}

	var item *OrderItem
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return ErrOrderClosed
		}

		item, err = s.repo.FindItem(ctx, orderID, itemID)
		if err != nil {
			return err
		}

		detail := applyItemUpdate(item, in)
		if err := s.repo.UpdateItem(ctx, item); err != nil {
			return err
		}

		if err := s.recompute(ctx, o); err != nil {
			return err
		}
		return s.audit(ctx, orderID, AuditItemUpdated, detail)
	})
	if err != nil {
		log.Error("failed to update item", zap.Error(err))
		return nil, err
	}

	log.Info("UpdateItem success")
	return item, nil
}

func validateItemUpdate(in UpdateItemInput) error {
	if in.MenuItemID != nil {
		if *in.MenuItemID <= 0 {
			return apperr.Validation("menu_item_id must be positive")
		}
		if in.Quantity == nil || in.UnitPrice == nil || in.TotalPrice == nil {
			return apperr.Validation("quantity, unit_price and total_price are required when menu_item_id is set")
		}
		if *in.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if in.UnitPrice.IsNegative() {
			return apperr.Validation("unit_price must not be negative")
		}
		if !isCents(*in.UnitPrice) || !isCents(*in.TotalPrice) {
			return apperr.Validation("prices allow at most 2 decimal places")
		}
		if !LineTotal(*in.Quantity, *in.UnitPrice).Equal(*in.TotalPrice) {
			return apperr.Validation("total_price does not equal quantity x unit_price")
		}
		return nil
	}

	if in.Quantity == nil && in.Notes == nil {
		return ErrNothingToUpdate
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// applyItemUpdate mutates item in place and returns the audit detail.
func applyItemUpdate(item *OrderItem, in UpdateItemInput) string {
	if in.MenuItemID != nil {
		item.MenuItemID = *in.MenuItemID
		item.Quantity = *in.Quantity
		item.UnitPrice = *in.UnitPrice
		item.TotalPrice = *in.TotalPrice
		if in.Notes != nil {
			item.Notes = in.Notes
		}
		return fmt.Sprintf("item %d replaced: menu item %d x %d at %s",
			item.ID, item.MenuItemID, item.Quantity, item.UnitPrice.StringFixed(2))
	}

	prev := item.Quantity
	if in.Quantity != nil {
		item.Quantity = *in.Quantity
		item.TotalPrice = LineTotal(item.Quantity, item.UnitPrice)
	}
	if in.Notes != nil {
		item.Notes = in.Notes
	}
	return fmt.Sprintf("item %d quantity %d -> %d", item.ID, prev, item.Quantity)
}

func (s *service) RemoveItem(ctx context.Context, orderID, itemID int64) (*RemoveItemResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "RemoveItem"),
		zap.Int64("order_id", orderID),
		zap.Int64("item_id", itemID),
	)
	log.Info("RemoveItem started")

	result := &RemoveItemResult{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return ErrOrderClosed
		}

		if err := s.repo.DeleteItem(ctx, orderID, itemID); err != nil {
			return err
		}
		result.ItemRemoved = true

		remaining, err := s.repo.ListItems(ctx, orderID)
		if err != nil {
			return err
		}

		if len(remaining) > 0 {
			o.Items = remaining
			o.TotalAmount, o.VATAmount = Totals(remaining, o.VATPercentage)
			if err := s.repo.UpdateTotals(ctx, orderID, o.TotalAmount, o.VATAmount); err != nil {
				return err
			}
			result.Order = o
			return s.audit(ctx, orderID, AuditItemRemoved, fmt.Sprintf("item %d removed", itemID))
		}

		if err := s.repo.Delete(ctx, orderID); err != nil {
			return err
		}
		result.OrderDeleted = true

		freed, err := s.resolver.Release(ctx, o.Context())
		if err != nil {
			return err
		}
		result.TableFreed = o.IsDineIn() && freed

		return s.audit(ctx, orderID, AuditDeletedNoItems, fmt.Sprintf("last item %d removed, order deleted", itemID))
	})
	if err != nil {
		log.Error("failed to remove item", zap.Error(err))
		return nil, err
	}

	log.Info("RemoveItem success",
		zap.Bool("order_deleted", result.OrderDeleted),
		zap.Bool("table_freed", result.TableFreed),
	)
	return result, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID int64, status Status) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateStatus"),
		zap.Int64("order_id", orderID),
		zap.String("status", string(status)),
	)
	log.Info("UpdateStatus started")

	status, err := ParseStatus(string(status))
	if err != nil {
		log.Warn("invalid status", zap.Error(err))
		return nil, err
	}

	var o *Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == status {
			return nil
		}
		if o.Status.IsTerminal() {
			return ErrOrderClosed
		}

		prev := o.Status
		if err := s.repo.UpdateStatus(ctx, orderID, status); err != nil {
			return err
		}
		o.Status = status
		return s.audit(ctx, orderID, AuditStatusChanged, fmt.Sprintf("%s -> %s", displayStatus(prev), status))
	})
	if err != nil {
		log.Error("failed to update status", zap.Error(err))
		return nil, err
	}

	if status.IsTerminal() {
		s.releaseAfterClose(ctx, log, o)
	}

	log.Info("UpdateStatus success")
	return o, nil
}

func (s *service) UpdatePaymentMethod(ctx context.Context, orderID int64, method PaymentMethod) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdatePaymentMethod"),
		zap.Int64("order_id", orderID),
	)

	if !method.Valid() {
		return nil, ErrInvalidPayment
	}

	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePaymentMethod(ctx, orderID, method); err != nil {
		log.Error("failed to update payment method", zap.Error(err))
		return nil, err
	}
	if err := s.audit(ctx, orderID, AuditPaymentMethod, string(method)); err != nil {
		log.Warn("failed to write audit entry", zap.Error(err))
	}

	o.PaymentMethod = &method
	log.Info("UpdatePaymentMethod success", zap.String("payment_method", string(method)))
	return o, nil
}

func (s *service) Checkout(ctx context.Context, orderID int64, in CheckoutInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.Int64("order_id", orderID),
	)
	log.Info("Checkout started")

	if err := validateCheckout(in); err != nil {
		log.Warn("invalid checkout input", zap.Error(err))
		return nil, err
	}

	var o *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return ErrOrderClosed
		}

		f := checkoutFields(o, in, s.now())
		if err := s.repo.Checkout(ctx, orderID, f); err != nil {
			return err
		}
		applyCheckout(o, f)

		return s.audit(ctx, orderID, AuditCheckedOut, fmt.Sprintf("completed, total %s", o.TotalAmount.StringFixed(2)))
	})
	if err != nil {
		log.Error("failed to checkout order", zap.Error(err))
		return nil, err
	}

	s.releaseAfterClose(ctx, log, o)

	log.Info("Checkout success")
	return o, nil
}

func validateCheckout(in CheckoutInput) error {
	if in.PaymentMethod != nil && !in.PaymentMethod.Valid() {
		return ErrInvalidPayment
	}
	if in.VATPercentage != nil {
		if err := validateVAT(*in.VATPercentage); err != nil {
			return err
		}
	}
	if in.DiscountAmount != nil {
		if err := validateDiscount(*in.DiscountAmount, in.DiscountType); err != nil {
			return err
		}
	} else if in.DiscountType != nil && !in.DiscountType.Valid() {
		return ErrInvalidDiscount
	}
	for _, amt := range []*decimal.Decimal{in.CashAmount, in.CardAmount, in.OnlineAmount} {
		if amt != nil && amt.IsNegative() {
			return apperr.Validation("payment amounts must not be negative")
		}
	}
	return nil
}

func checkoutFields(o *Order, in CheckoutInput, now time.Time) CheckoutFields {
	f := CheckoutFields{
		Status:           StatusCompleted,
		PaymentMethod:    in.PaymentMethod,
		DiscountAmount:   o.DiscountAmount,
		DiscountType:     o.DiscountType,
		VATPercentage:    o.VATPercentage,
		CashAmount:       o.CashAmount,
		CardAmount:       o.CardAmount,
		OnlineAmount:     o.OnlineAmount,
		PaymentBreakdown: in.PaymentBreakdown,
		InvoiceData:      in.InvoiceData,
		InvoiceAt:        now,
	}
	if in.DiscountAmount != nil {
		f.DiscountAmount = *in.DiscountAmount
	}
	if in.DiscountType != nil {
		f.DiscountType = in.DiscountType
	}
	if in.VATPercentage != nil {
		f.VATPercentage = *in.VATPercentage
	}
	if in.CashAmount != nil {
		f.CashAmount = *in.CashAmount
	}
	if in.CardAmount != nil {
		f.CardAmount = *in.CardAmount
	}
	if in.OnlineAmount != nil {
		f.OnlineAmount = *in.OnlineAmount
	}
	_, f.VATAmount = Totals(o.Items, f.VATPercentage)
	return f
}

func applyCheckout(o *Order, f CheckoutFields) {
	o.Status = f.Status
	if f.PaymentMethod != nil {
		o.PaymentMethod = f.PaymentMethod
	}
	o.DiscountAmount = f.DiscountAmount
	o.DiscountType = f.DiscountType
	o.VATPercentage = f.VATPercentage
	o.VATAmount = f.VATAmount
	o.CashAmount = f.CashAmount
	o.CardAmount = f.CardAmount
	o.OnlineAmount = f.OnlineAmount
	if len(f.PaymentBreakdown) > 0 {
		o.PaymentBreakdown = f.PaymentBreakdown
	}
	if o.CustomerInvoiceData == nil && f.InvoiceData != nil {
		at := f.InvoiceAt
		o.CustomerInvoiceData = f.InvoiceData
		o.InvoiceGeneratedAt = &at
	}
}

// releaseAfterClose frees a dine-in table once its order reached a terminal
// state. The order is already committed, so a failure here is only logged.
func (s *service) releaseAfterClose(ctx context.Context, log *zap.Logger, o *Order) {
	if !o.IsDineIn() {
		return
	}
	freed, err := s.resolver.Release(ctx, o.Context())
	if err != nil {
		log.Error("failed to release table after close",
			zap.Int64("table_id", *o.TableID),
			zap.Error(err),
		)
		return
	}
	log.Info("table released", zap.Int64("table_id", *o.TableID), zap.Bool("freed", freed))
}

func (s *service) GetOrder(ctx context.Context, orderID int64) (*OrderDetail, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	label, err := s.resolver.Label(ctx, o.Context())
	if err != nil {
		// A deleted table or ticket must not hide the order itself.
		logger.FromCtx(ctx).Warn("failed to resolve context label",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
	}

	return &OrderDetail{Order: *o, ContextLabel: label}, nil
}

func (s *service) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	if f.Type != nil && !f.Type.Valid() {
		return nil, ErrInvalidOrderType
	}
	return s.repo.List(ctx, f)
}

func (s *service) ListAudit(ctx context.Context, orderID int64) ([]AuditEntry, error) {
	return s.repo.ListAudit(ctx, orderID)
}

// recompute reloads the item set and rewrites the derived totals.
func (s *service) recompute(ctx context.Context, o *Order) error {
	items, err := s.repo.ListItems(ctx, o.ID)
	if err != nil {
		return err
	}
	o.Items = items
	o.TotalAmount, o.VATAmount = Totals(items, o.VATPercentage)
	return s.repo.UpdateTotals(ctx, o.ID, o.TotalAmount, o.VATAmount)
}

func (s *service) audit(ctx context.Context, orderID int64, event AuditEvent, detail string) error {
	return AppendAudit(ctx, s.repo, orderID, event, detail)
}

// AppendAudit writes one audit entry attributed to the staff member in ctx.
func AppendAudit(ctx context.Context, repo Repository, orderID int64, event AuditEvent, detail string) error {
	e := &AuditEntry{
		OrderID:   orderID,
		EventType: event,
		Detail:    detail,
		Actor:     utils.ActorFromContext(ctx),
	}
	if err := repo.AppendAudit(ctx, e); err != nil {
		return fmt.Errorf("audit %s: %w", event, err)
	}
	return nil
}

func displayStatus(s Status) string {
	if s == StatusNone {
		return "(none)"
	}
	return string(s)
}
