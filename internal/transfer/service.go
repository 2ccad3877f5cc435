package transfer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"deskgoo-pos/internal/apperr"
	"deskgoo-pos/internal/db"
	"deskgoo-pos/internal/kitchen"
	"deskgoo-pos/internal/logger"
	"deskgoo-pos/internal/metrics"
	"deskgoo-pos/internal/order"
	"deskgoo-pos/internal/table"

	"go.uber.org/zap"
)

type Service interface {
	GetActiveOrders(ctx context.Context) ([]order.ActiveOrder, error)
	GetOrderByTable(ctx context.Context, tableID int64) (*order.OrderDetail, error)
	ListAvailableTables(ctx context.Context) ([]table.DiningTable, error)
	TransferOrder(ctx context.Context, in TransferInput) (*TransferResult, error)
	MergeOrders(ctx context.Context, in MergeInput) (*MergeResult, error)
	ReprintTicket(ctx context.Context, orderID int64, reason kitchen.Reason) (*kitchen.Ticket, error)
}

type Deps struct {
	Orders   order.Repository
	Tables   table.Repository
	Resolver order.ContextResolver
	Tx       db.TxManager
	Kitchen  kitchen.Notifier
	Metrics  *metrics.Registry

	// AllowOccupied lets a full transfer land on a table that already has
	// an active order.
	AllowOccupied bool
}

type service struct {
	orders        order.Repository
	tables        table.Repository
	resolver      order.ContextResolver
	tx            db.TxManager
	kitchen       kitchen.Notifier
	metrics       *metrics.Registry
	allowOccupied bool
	now           func() time.Time
}

func NewService(d Deps) Service {
	m := d.Metrics
	if m == nil {
		m = metrics.NewRegistry()
	}
	k := d.Kitchen
	if k == nil {
		k = kitchen.NewLogNotifier()
	}

	return &service{
		orders:        d.Orders,
		tables:        d.Tables,
		resolver:      d.Resolver,
		tx:            d.Tx,
		kitchen:       k,
		metrics:       m,
		allowOccupied: d.AllowOccupied,
		now:           time.Now,
	}
}

func (s *service) GetActiveOrders(ctx context.Context) ([]order.ActiveOrder, error) {
	return s.orders.ListActive(ctx)
}

// GetOrderByTable returns the newest active order on the table.
func (s *service) GetOrderByTable(ctx context.Context, tableID int64) (*order.OrderDetail, error) {
	if tableID <= 0 {
		return nil, order.ErrInvalidTableID
	}
	if _, err := s.tables.FindByID(ctx, tableID); err != nil {
		return nil, err
	}

	o, err := s.orders.FindActiveByTable(ctx, tableID, false)
	if err != nil {
		return nil, err
	}

	label, err := s.resolver.Label(ctx, o.Context())
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to resolve context label",
			zap.Int64("order_id", o.ID),
			zap.Error(err),
		)
	}
	return &order.OrderDetail{Order: *o, ContextLabel: label}, nil
}

func (s *service) ListAvailableTables(ctx context.Context) ([]table.DiningTable, error) {
	return s.tables.ListAvailable(ctx)
}

func validateTransfer(in *TransferInput) error {
	if in.OrderID <= 0 {
		return ErrInvalidOrderID
	}
	if in.NewTableID <= 0 {
		return ErrInvalidTableID
	}
	if in.Mode == "" {
		in.Mode = ModeFull
	}
	if !in.Mode.Valid() {
		return ErrInvalidMode
	}
	if in.Mode == ModeFull {
		return nil
	}

	if len(in.Items) == 0 {
		return ErrNoSelectedItems
	}
	seen := make(map[int64]struct{}, len(in.Items))
	for _, sel := range in.Items {
		if sel.ItemID <= 0 {
			return apperr.Validation("item_id must be positive")
		}
		if sel.Quantity <= 0 {
			return apperr.Validationf("item %d: quantity must be greater than zero", sel.ItemID)
		}
		if _, dup := seen[sel.ItemID]; dup {
			return fmt.Errorf("item %d: %w", sel.ItemID, ErrDuplicateItem)
		}
		seen[sel.ItemID] = struct{}{}
	}
	return nil
}

func (s *service) TransferOrder(ctx context.Context, in TransferInput) (*TransferResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "TransferOrder"),
		zap.Int64("order_id", in.OrderID),
		zap.Int64("new_table_id", in.NewTableID),
	)
	log.Info("TransferOrder started", zap.String("mode", string(in.Mode)))
	timer := metrics.StartTimer()

	if err := validateTransfer(&in); err != nil {
		log.Warn("invalid transfer request", zap.Error(err))
		s.metrics.Inc("transfer_rejected")
		return nil, err
	}

	var (
		res *TransferResult
		err error
	)
	if in.Mode == ModeFull {
		res, err = s.transferFull(ctx, in)
	} else {
		res, err = s.transferPartial(ctx, in)
	}
	if err != nil {
		log.Error("failed to transfer order", zap.Error(err))
		s.metrics.Inc("transfer_failed")
		return nil, err
	}

	s.metrics.ObserveSince("transfer_"+string(in.Mode), timer)
	log.Info("TransferOrder success",
		zap.Bool("source_deleted", res.SourceDeleted),
		zap.Bool("target_created", res.TargetCreated),
		zap.Bool("source_table_freed", res.SourceTableFreed),
	)
	return res, nil
}

// lockSource loads and locks an order that is about to move tables.
func (s *service) lockSource(ctx context.Context, in TransferInput) (*order.Order, error) {
	src, err := s.orders.FindForUpdate(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if src.Status.IsTerminal() {
		return nil, order.ErrOrderClosed
	}
	if !src.IsDineIn() {
		return nil, ErrNotDineIn
	}
	if *src.TableID == in.NewTableID {
		return nil, ErrSameTable
	}
	return src, nil
}

// activeOn returns the active order on a table, or nil when there is none.
// The row stays locked until the transaction ends.
func (s *service) activeOn(ctx context.Context, tableID int64) (*order.Order, error) {
	o, err := s.orders.FindActiveByTable(ctx, tableID, true)
	if errors.Is(err, order.ErrOrderNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) transferFull(ctx context.Context, in TransferInput) (*TransferResult, error) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "service"), zap.String("method", "transferFull"))

	res := &TransferResult{Mode: ModeFull}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		src, err := s.lockSource(ctx, in)
		if err != nil {
			return err
		}
		if _, err := s.tables.FindForUpdate(ctx, in.NewTableID); err != nil {
			return err
		}

		occupant, err := s.activeOn(ctx, in.NewTableID)
		if err != nil {
			return err
		}
		if occupant != nil && !s.allowOccupied {
			return ErrDestinationBusy
		}

		oldCtx := src.Context()
		newCtx := order.DineIn(in.NewTableID)
		if err := s.orders.UpdateContext(ctx, src.ID, newCtx); err != nil {
			return err
		}

		freed, err := s.resolver.Release(ctx, oldCtx)
		if err != nil {
			return err
		}
		if err := s.resolver.Occupy(ctx, newCtx); err != nil {
			return err
		}

		detail := fmt.Sprintf("table %d -> table %d", *oldCtx.TableID, in.NewTableID)
		if occupant != nil {
			detail += fmt.Sprintf(" (destination already had order %d)", occupant.ID)
			log.Info("transfer into occupied table", zap.Int64("occupant_order_id", occupant.ID))
		}
		if err := order.AppendAudit(ctx, s.orders, src.ID, order.AuditTransferred, withNotes(detail, in.Notes)); err != nil {
			return err
		}

		src.TableID = newCtx.TableID
		res.SourceOrder = src
		res.SourceTableFreed = freed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, s.buildTicket(ctx, res.SourceOrder, kitchen.ReasonTransfer, in.Notes))
	return res, nil
}

func (s *service) transferPartial(ctx context.Context, in TransferInput) (*TransferResult, error) {
	res := &TransferResult{Mode: ModePartial}
	var src *order.Order

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		src, err = s.lockSource(ctx, in)
		if err != nil {
			return err
		}

		byID := make(map[int64]order.OrderItem, len(src.Items))
		for _, it := range src.Items {
			byID[it.ID] = it
		}
		for _, sel := range in.Items {
			it, ok := byID[sel.ItemID]
			if !ok {
				return fmt.Errorf("item %d: %w", sel.ItemID, order.ErrItemNotFound)
			}
			if sel.Quantity > it.Quantity {
				return apperr.Validationf("item %d: cannot transfer %d, only %d available",
					sel.ItemID, sel.Quantity, it.Quantity)
			}
		}

		if _, err := s.tables.FindForUpdate(ctx, in.NewTableID); err != nil {
			return err
		}
		target, err := s.activeOn(ctx, in.NewTableID)
		if err != nil {
			return err
		}
		if target == nil {
			target = &order.Order{
				TableID:       &in.NewTableID,
				OrderType:     order.TypeDineIn,
				VATPercentage: src.VATPercentage,
				Status:        src.Status,
			}
			if err := s.orders.Create(ctx, target); err != nil {
				return err
			}
			res.TargetCreated = true
		}

		moved := 0
		for _, sel := range in.Items {
			it := byID[sel.ItemID]
			if sel.Quantity == it.Quantity {
				if err := s.orders.DeleteItem(ctx, src.ID, it.ID); err != nil {
					return err
				}
			} else {
				it.Quantity -= sel.Quantity
				it.TotalPrice = order.LineTotal(it.Quantity, it.UnitPrice)
				if err := s.orders.UpdateItem(ctx, &it); err != nil {
					return err
				}
			}

			portion := order.OrderItem{
				OrderID:      target.ID,
				MenuItemID:   it.MenuItemID,
				MenuItemName: it.MenuItemName,
				Quantity:     sel.Quantity,
				UnitPrice:    it.UnitPrice,
				TotalPrice:   order.LineTotal(sel.Quantity, it.UnitPrice),
				Notes:        it.Notes,
			}
			if err := s.orders.InsertItem(ctx, &portion); err != nil {
				return err
			}
			moved += sel.Quantity
		}

		if err := s.recompute(ctx, target); err != nil {
			return err
		}
		if err := s.resolver.Occupy(ctx, target.Context()); err != nil {
			return err
		}

		remaining, err := s.orders.ListItems(ctx, src.ID)
		if err != nil {
			return err
		}
		srcDetail := fmt.Sprintf("%d unit(s) moved to order %d on table %d", moved, target.ID, in.NewTableID)
		if len(remaining) == 0 {
			if err := s.orders.Delete(ctx, src.ID); err != nil {
				return err
			}
			freed, err := s.resolver.Release(ctx, src.Context())
			if err != nil {
				return err
			}
			res.SourceDeleted = true
			res.SourceTableFreed = freed
			srcDetail += ", source emptied and deleted"
		} else {
			src.Items = remaining
			src.TotalAmount, src.VATAmount = order.Totals(remaining, src.VATPercentage)
			if err := s.orders.UpdateTotals(ctx, src.ID, src.TotalAmount, src.VATAmount); err != nil {
				return err
			}
		}

		if err := order.AppendAudit(ctx, s.orders, src.ID, order.AuditPartialOut, withNotes(srcDetail, in.Notes)); err != nil {
			return err
		}
		inDetail := fmt.Sprintf("%d unit(s) received from order %d on table %d", moved, src.ID, *src.TableID)
		if err := order.AppendAudit(ctx, s.orders, target.ID, order.AuditPartialIn, withNotes(inDetail, in.Notes)); err != nil {
			return err
		}

		res.TargetOrder = target
		if !res.SourceDeleted {
			res.SourceOrder = src
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	srcTicket := s.buildTicket(ctx, src, kitchen.ReasonPartialSource, in.Notes)
	if res.SourceDeleted {
		srcTicket.Items = nil
		srcTicket.VoidedOrderIDs = []int64{src.ID}
	}
	s.notify(ctx, srcTicket)
	s.notify(ctx, s.buildTicket(ctx, res.TargetOrder, kitchen.ReasonPartialTarget, in.Notes))

	return res, nil
}

func validateMerge(in MergeInput) error {
	if len(in.SourceOrderIDs) < 2 {
		return ErrTooFewSources
	}
	if in.TargetTableID <= 0 {
		return apperr.Validation("target_table_id must be positive")
	}
	seen := make(map[int64]struct{}, len(in.SourceOrderIDs))
	for _, id := range in.SourceOrderIDs {
		if id <= 0 {
			return ErrInvalidOrderID
		}
		if _, dup := seen[id]; dup {
			return ErrDuplicateSource
		}
		seen[id] = struct{}{}
	}
	return nil
}

type lineKey struct {
	menuItemID int64
	unitPrice  string
}

// mergeLines unions line items by (menu item, unit price), keeping the
// order in which keys first appear.
func mergeLines(sources []*order.Order) []order.OrderItem {
	var (
		lines []order.OrderItem
		index = make(map[lineKey]int)
	)
	for _, src := range sources {
		for _, it := range src.Items {
			key := lineKey{menuItemID: it.MenuItemID, unitPrice: it.UnitPrice.String()}
			if i, ok := index[key]; ok {
				lines[i].Quantity += it.Quantity
				lines[i].TotalPrice = lines[i].TotalPrice.Add(it.TotalPrice)
				if lines[i].Notes == nil {
					lines[i].Notes = it.Notes
				}
				continue
			}
			index[key] = len(lines)
			lines = append(lines, order.OrderItem{
				MenuItemID:   it.MenuItemID,
				MenuItemName: it.MenuItemName,
				Quantity:     it.Quantity,
				UnitPrice:    it.UnitPrice,
				TotalPrice:   it.TotalPrice,
				Notes:        it.Notes,
			})
		}
	}
	return lines
}

func (s *service) MergeOrders(ctx context.Context, in MergeInput) (*MergeResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "MergeOrders"),
		zap.Int64s("source_order_ids", in.SourceOrderIDs),
		zap.Int64("target_table_id", in.TargetTableID),
	)
	log.Info("MergeOrders started")
	timer := metrics.StartTimer()

	if err := validateMerge(in); err != nil {
		log.Warn("invalid merge request", zap.Error(err))
		s.metrics.Inc("merge_rejected")
		return nil, err
	}

	res := &MergeResult{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.tables.FindForUpdate(ctx, in.TargetTableID); err != nil {
			return err
		}

		// Lock in id order so two merges over the same orders cannot deadlock.
		lockOrder := append([]int64(nil), in.SourceOrderIDs...)
		sort.Slice(lockOrder, func(i, j int) bool { return lockOrder[i] < lockOrder[j] })
		locked := make(map[int64]*order.Order, len(lockOrder))
		for _, id := range lockOrder {
			o, err := s.orders.FindForUpdate(ctx, id)
			if err != nil {
				return fmt.Errorf("order %d: %w", id, err)
			}
			if o.Status.IsTerminal() {
				return fmt.Errorf("order %d: %w", id, order.ErrOrderClosed)
			}
			locked[id] = o
		}
		sources := make([]*order.Order, 0, len(in.SourceOrderIDs))
		for _, id := range in.SourceOrderIDs {
			sources = append(sources, locked[id])
		}

		if !s.allowOccupied {
			occupant, err := s.activeOn(ctx, in.TargetTableID)
			if err != nil {
				return err
			}
			if occupant != nil && locked[occupant.ID] == nil {
				return ErrDestinationBusy
			}
		}

		first := sources[0]
		merged := &order.Order{
			TableID:       &in.TargetTableID,
			OrderType:     order.TypeDineIn,
			VATPercentage: first.VATPercentage,
			Status:        first.Status,
		}
		lines := mergeLines(sources)
		merged.TotalAmount, merged.VATAmount = order.Totals(lines, merged.VATPercentage)
		if err := s.orders.Create(ctx, merged); err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = merged.ID
			if err := s.orders.InsertItem(ctx, &lines[i]); err != nil {
				return err
			}
		}
		if err := s.recompute(ctx, merged); err != nil {
			return err
		}

		var tableRefs []string
		for _, src := range sources {
			if err := s.orders.Delete(ctx, src.ID); err != nil {
				return err
			}
			res.VoidedOrderIDs = append(res.VoidedOrderIDs, src.ID)
			tableRefs = append(tableRefs, contextRef(src))
		}
		released := make(map[int64]bool)
		for _, src := range sources {
			if !src.IsDineIn() || released[*src.TableID] {
				continue
			}
			released[*src.TableID] = true
			freed, err := s.resolver.Release(ctx, src.Context())
			if err != nil {
				return err
			}
			if freed {
				res.FreedTableIDs = append(res.FreedTableIDs, *src.TableID)
			}
		}
		if err := s.resolver.Occupy(ctx, merged.Context()); err != nil {
			return err
		}

		detail := fmt.Sprintf("merged orders %s from %s", joinIDs(res.VoidedOrderIDs), strings.Join(tableRefs, ", "))
		if err := order.AppendAudit(ctx, s.orders, merged.ID, order.AuditMerged, withNotes(detail, in.Notes)); err != nil {
			return err
		}
		for _, src := range sources {
			into := fmt.Sprintf("merged into order %d on table %d", merged.ID, in.TargetTableID)
			if err := order.AppendAudit(ctx, s.orders, src.ID, order.AuditMergedInto, into); err != nil {
				return err
			}
		}

		res.Order = merged
		return nil
	})
	if err != nil {
		log.Error("failed to merge orders", zap.Error(err))
		s.metrics.Inc("merge_failed")
		return nil, err
	}

	ticket := s.buildTicket(ctx, res.Order, kitchen.ReasonMerge, in.Notes)
	ticket.VoidedOrderIDs = res.VoidedOrderIDs
	s.notify(ctx, ticket)

	s.metrics.ObserveSince("merge", timer)
	log.Info("MergeOrders success", zap.Int64("order_id", res.Order.ID))
	return res, nil
}

// ReprintTicket sends the current state of an order to the kitchen. Unlike
// the tickets issued after a transfer, a sink failure is returned so the
// caller can retry.
func (s *service) ReprintTicket(ctx context.Context, orderID int64, reason kitchen.Reason) (*kitchen.Ticket, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ReprintTicket"),
		zap.Int64("order_id", orderID),
	)

	if reason == "" {
		reason = kitchen.ReasonReprint
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ticket := s.buildTicket(ctx, o, reason, nil)
	if err := s.kitchen.Notify(ctx, ticket); err != nil {
		s.metrics.Inc("kitchen_notify_failures")
		log.Error("failed to reprint ticket", zap.Error(err))
		return nil, err
	}
	s.metrics.Inc("kitchen_tickets_sent")

	if err := order.AppendAudit(ctx, s.orders, orderID, order.AuditTicketReprinted, string(reason)); err != nil {
		log.Warn("failed to write audit entry", zap.Error(err))
	}

	log.Info("ReprintTicket success", zap.String("ticket_number", ticket.TicketNumber))
	return &ticket, nil
}

// recompute reloads the item set and rewrites the derived totals.
func (s *service) recompute(ctx context.Context, o *order.Order) error {
	items, err := s.orders.ListItems(ctx, o.ID)
	if err != nil {
		return err
	}
	o.Items = items
	o.TotalAmount, o.VATAmount = order.Totals(items, o.VATPercentage)
	return s.orders.UpdateTotals(ctx, o.ID, o.TotalAmount, o.VATAmount)
}

func withNotes(detail string, notes *string) string {
	if notes == nil || strings.TrimSpace(*notes) == "" {
		return detail
	}
	return detail + ": " + strings.TrimSpace(*notes)
}

func contextRef(o *order.Order) string {
	if o.TableID != nil {
		return fmt.Sprintf("table %d", *o.TableID)
	}
	if o.TakeawayID != nil {
		return fmt.Sprintf("takeaway %d", *o.TakeawayID)
	}
	return "unknown context"
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
