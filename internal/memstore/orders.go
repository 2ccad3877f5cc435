package memstore

import (
	"context"
	"sort"

	"deskgoo-pos/internal/order"

	"github.com/shopspring/decimal"
)

type orderRepo struct {
	s *Store
}

var _ order.Repository = (*orderRepo)(nil)

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	defer r.s.lock(ctx)()
	st := r.s.data

	now := r.s.now()
	o.ID = st.nextID()
	o.CreatedAt, o.UpdatedAt = now, now
	stored := *o
	stored.Items = nil
	st.orders[o.ID] = stored
	return nil
}

func (r *orderRepo) InsertItem(ctx context.Context, it *order.OrderItem) error {
	defer r.s.lock(ctx)()
	st := r.s.data

	if _, ok := st.orders[it.OrderID]; !ok {
		return order.ErrOrderNotFound
	}
	now := r.s.now()
	it.ID = st.nextID()
	it.CreatedAt, it.UpdatedAt = now, now
	st.items[it.ID] = *it
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	defer r.s.lock(ctx)()
	return r.find(id)
}

func (r *orderRepo) FindForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	defer r.s.lock(ctx)()
	return r.find(id)
}

func (r *orderRepo) find(id int64) (*order.Order, error) {
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	o.Items = r.itemsOf(id)
	return &o, nil
}

func (r *orderRepo) FindActiveByTable(ctx context.Context, tableID int64, _ bool) (*order.Order, error) {
	defer r.s.lock(ctx)()

	var found *order.Order
	for _, o := range r.s.data.orders {
		if o.TableID == nil || *o.TableID != tableID || !o.Status.IsActive() {
			continue
		}
		if found == nil || newer(o, *found) {
			cp := o
			found = &cp
		}
	}
	if found == nil {
		return nil, order.ErrOrderNotFound
	}
	found.Items = r.itemsOf(found.ID)
	return found, nil
}

func newer(a, b order.Order) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// itemsOf returns the order's items by id, with menu names resolved.
func (r *orderRepo) itemsOf(orderID int64) []order.OrderItem {
	st := r.s.data
	items := []order.OrderItem{}
	for _, it := range st.items {
		if it.OrderID != orderID {
			continue
		}
		if m, ok := st.menu[it.MenuItemID]; ok {
			it.MenuItemName = m.Name
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (r *orderRepo) ListItems(ctx context.Context, orderID int64) ([]order.OrderItem, error) {
	defer r.s.lock(ctx)()
	return r.itemsOf(orderID), nil
}

func (r *orderRepo) FindItem(ctx context.Context, orderID, itemID int64) (*order.OrderItem, error) {
	defer r.s.lock(ctx)()

	it, ok := r.s.data.items[itemID]
	if !ok || it.OrderID != orderID {
		return nil, order.ErrItemNotFound
	}
	if m, ok := r.s.data.menu[it.MenuItemID]; ok {
		it.MenuItemName = m.Name
	}
	return &it, nil
}

func (r *orderRepo) UpdateItem(ctx context.Context, it *order.OrderItem) error {
	defer r.s.lock(ctx)()
	st := r.s.data

	cur, ok := st.items[it.ID]
	if !ok || cur.OrderID != it.OrderID {
		return order.ErrItemNotFound
	}
	cur.MenuItemID = it.MenuItemID
	cur.Quantity = it.Quantity
	cur.UnitPrice = it.UnitPrice
	cur.TotalPrice = it.TotalPrice
	cur.Notes = it.Notes
	cur.UpdatedAt = r.s.now()
	st.items[it.ID] = cur
	return nil
}

func (r *orderRepo) DeleteItem(ctx context.Context, orderID, itemID int64) error {
	defer r.s.lock(ctx)()
	st := r.s.data

	it, ok := st.items[itemID]
	if !ok || it.OrderID != orderID {
		return order.ErrItemNotFound
	}
	delete(st.items, itemID)
	return nil
}

// update applies fn to a stored order and bumps updated_at.
func (r *orderRepo) update(ctx context.Context, id int64, fn func(o *order.Order)) error {
	defer r.s.lock(ctx)()
	st := r.s.data

	o, ok := st.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	fn(&o)
	o.UpdatedAt = r.s.now()
	st.orders[id] = o
	return nil
}

func (r *orderRepo) UpdateTotals(ctx context.Context, orderID int64, total, vat decimal.Decimal) error {
	return r.update(ctx, orderID, func(o *order.Order) {
		o.TotalAmount = total
		o.VATAmount = vat
	})
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID int64, status order.Status) error {
	return r.update(ctx, orderID, func(o *order.Order) {
		o.Status = status
	})
}

func (r *orderRepo) UpdatePaymentMethod(ctx context.Context, orderID int64, method order.PaymentMethod) error {
	return r.update(ctx, orderID, func(o *order.Order) {
		o.PaymentMethod = &method
	})
}

func (r *orderRepo) UpdateContext(ctx context.Context, orderID int64, sc order.ServingContext) error {
	return r.update(ctx, orderID, func(o *order.Order) {
		o.TableID = sc.TableID
		o.TakeawayID = sc.TakeawayID
		o.OrderType = sc.Type()
	})
}

func (r *orderRepo) Checkout(ctx context.Context, orderID int64, f order.CheckoutFields) error {
	return r.update(ctx, orderID, func(o *order.Order) {
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
	})
}

func (r *orderRepo) Delete(ctx context.Context, orderID int64) error {
	defer r.s.lock(ctx)()
	st := r.s.data

	if _, ok := st.orders[orderID]; !ok {
		return order.ErrOrderNotFound
	}
	for id, it := range st.items {
		if it.OrderID == orderID {
			delete(st.items, id)
		}
	}
	delete(st.orders, orderID)
	return nil
}

func (r *orderRepo) sorted(keep func(o order.Order) bool) []order.Order {
	out := []order.Order{}
	for _, o := range r.s.data.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out
}

func (r *orderRepo) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	defer r.s.lock(ctx)()

	return r.sorted(func(o order.Order) bool {
		if f.Type != nil && o.OrderType != *f.Type {
			return false
		}
		if f.TakeawayID != nil && (o.TakeawayID == nil || *o.TakeawayID != *f.TakeawayID) {
			return false
		}
		return !f.ActiveOnly || o.Status.IsActive()
	}), nil
}

func (r *orderRepo) ListActive(ctx context.Context) ([]order.ActiveOrder, error) {
	defer r.s.lock(ctx)()
	st := r.s.data

	result := []order.ActiveOrder{}
	for _, o := range r.sorted(func(o order.Order) bool { return o.Status.IsActive() }) {
		a := order.ActiveOrder{Order: o, ItemCount: len(r.itemsOf(o.ID))}
		if o.TableID != nil {
			if t, ok := st.tables[*o.TableID]; ok {
				label := t.Label
				a.TableLabel = &label
				if ar, ok := st.areas[t.AreaID]; ok {
					name := ar.name
					a.AreaName = &name
				}
			}
		}
		if o.TakeawayID != nil {
			if tk, ok := st.takeaways[*o.TakeawayID]; ok {
				number := tk.Number
				a.TakeawayNumber = &number
			}
		}
		result = append(result, a)
	}
	return result, nil
}

func (r *orderRepo) AppendAudit(ctx context.Context, e *order.AuditEntry) error {
	defer r.s.lock(ctx)()
	st := r.s.data

	e.ID = st.nextID()
	e.CreatedAt = r.s.now()
	st.audit = append(st.audit, *e)
	return nil
}

func (r *orderRepo) ListAudit(ctx context.Context, orderID int64) ([]order.AuditEntry, error) {
	defer r.s.lock(ctx)()

	entries := []order.AuditEntry{}
	for _, e := range r.s.data.audit {
		if e.OrderID == orderID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
