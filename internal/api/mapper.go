package api

import (
	"encoding/json"
	"time"

	"deskgoo-pos/internal/order"
	"deskgoo-pos/internal/table"
	"deskgoo-pos/internal/takeaway"
	"deskgoo-pos/internal/transfer"

	"github.com/shopspring/decimal"
)

type OrderItemView struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	MenuItemID   int64           `json:"menu_item_id"`
	MenuItemName string          `json:"menu_item_name,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Notes        *string         `json:"notes,omitempty"`
}

type OrderView struct {
	ID           int64           `json:"id"`
	TableID      *int64          `json:"table_id"`
	TakeawayID   *int64          `json:"takeaway_id"`
	OrderType    string          `json:"order_type"`
	ContextLabel string          `json:"context_label,omitempty"`
	Items        []OrderItemView `json:"items"`

	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DiscountType   *string         `json:"discount_type,omitempty"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	VATPercentage  decimal.Decimal `json:"vat_percentage"`

	Status        string  `json:"status"`
	PaymentMethod *string `json:"payment_method,omitempty"`
	Notes         *string `json:"notes,omitempty"`

	CustomerInvoiceData *string         `json:"customer_invoice_data,omitempty"`
	InvoiceGeneratedAt  *time.Time      `json:"invoice_generated_at,omitempty"`
	CashAmount          decimal.Decimal `json:"cash_amount"`
	CardAmount          decimal.Decimal `json:"card_amount"`
	OnlineAmount        decimal.Decimal `json:"online_amount"`
	PaymentBreakdown    json.RawMessage `json:"payment_breakdown,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ActiveOrderView struct {
	OrderView
	TableLabel     *string `json:"table_label,omitempty"`
	AreaName       *string `json:"area_name,omitempty"`
	TakeawayNumber *string `json:"takeaway_number,omitempty"`
	ItemCount      int     `json:"item_count"`
}

type AuditView struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	EventType string    `json:"event_type"`
	Detail    string    `json:"detail"`
	Actor     *string   `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type TableView struct {
	ID       int64  `json:"id"`
	AreaID   int64  `json:"area_id"`
	AreaName string `json:"area_name"`
	Label    string `json:"label"`
	Seats    int    `json:"seats"`
	Status   string `json:"status"`
}

type TakeawayView struct {
	ID        int64      `json:"id"`
	Number    string     `json:"takeaway_number"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type TakeawaySummaryView struct {
	TakeawayView
	OrderCount          int             `json:"order_count"`
	ActiveOrderCount    int             `json:"active_order_count"`
	CompletedOrderCount int             `json:"completed_order_count"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
}

type TakeawayDetailView struct {
	TakeawayView
	Orders []OrderView `json:"orders"`
}

type RemoveItemView struct {
	ItemRemoved  bool       `json:"item_removed"`
	OrderDeleted bool       `json:"order_deleted"`
	TableFreed   bool       `json:"table_freed"`
	Order        *OrderView `json:"order,omitempty"`
}

type TransferView struct {
	Mode             string     `json:"mode"`
	SourceOrder      *OrderView `json:"source_order,omitempty"`
	TargetOrder      *OrderView `json:"target_order,omitempty"`
	SourceDeleted    bool       `json:"source_deleted"`
	TargetCreated    bool       `json:"target_created"`
	SourceTableFreed bool       `json:"source_table_freed"`
}

type MergeView struct {
	Order          *OrderView `json:"order"`
	VoidedOrderIDs []int64    `json:"voided_order_ids"`
	FreedTableIDs  []int64    `json:"freed_table_ids"`
}

func toItemView(i order.OrderItem) OrderItemView {
	return OrderItemView{
		ID:           i.ID,
		OrderID:      i.OrderID,
		MenuItemID:   i.MenuItemID,
		MenuItemName: i.MenuItemName,
		Quantity:     i.Quantity,
		UnitPrice:    i.UnitPrice,
		TotalPrice:   i.TotalPrice,
		Notes:        i.Notes,
	}
}

func toOrderView(o *order.Order) *OrderView {
	if o == nil {
		return nil
	}

	items := make([]OrderItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, toItemView(item))
	}

	v := &OrderView{
		ID:                  o.ID,
		TableID:             o.TableID,
		TakeawayID:          o.TakeawayID,
		OrderType:           string(o.OrderType),
		Items:               items,
		TotalAmount:         o.TotalAmount,
		DiscountAmount:      o.DiscountAmount,
		VATAmount:           o.VATAmount,
		VATPercentage:       o.VATPercentage,
		Status:              string(o.Status),
		Notes:               o.Notes,
		CustomerInvoiceData: o.CustomerInvoiceData,
		InvoiceGeneratedAt:  o.InvoiceGeneratedAt,
		CashAmount:          o.CashAmount,
		CardAmount:          o.CardAmount,
		OnlineAmount:        o.OnlineAmount,
		PaymentBreakdown:    o.PaymentBreakdown,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
	if o.DiscountType != nil {
		dt := string(*o.DiscountType)
		v.DiscountType = &dt
	}
	if o.PaymentMethod != nil {
		pm := string(*o.PaymentMethod)
		v.PaymentMethod = &pm
	}
	return v
}

func toOrderDetailView(d *order.OrderDetail) *OrderView {
	v := toOrderView(&d.Order)
	v.ContextLabel = d.ContextLabel
	return v
}

func toOrderViews(orders []order.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for i := range orders {
		out = append(out, *toOrderView(&orders[i]))
	}
	return out
}

func toActiveOrderViews(orders []order.ActiveOrder) []ActiveOrderView {
	out := make([]ActiveOrderView, 0, len(orders))
	for i := range orders {
		a := orders[i]
		out = append(out, ActiveOrderView{
			OrderView:      *toOrderView(&a.Order),
			TableLabel:     a.TableLabel,
			AreaName:       a.AreaName,
			TakeawayNumber: a.TakeawayNumber,
			ItemCount:      a.ItemCount,
		})
	}
	return out
}

func toAuditViews(entries []order.AuditEntry) []AuditView {
	out := make([]AuditView, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditView{
			ID:        e.ID,
			OrderID:   e.OrderID,
			EventType: string(e.EventType),
			Detail:    e.Detail,
			Actor:     e.Actor,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

func toTableViews(tables []table.DiningTable) []TableView {
	out := make([]TableView, 0, len(tables))
	for _, t := range tables {
		out = append(out, TableView{
			ID:       t.ID,
			AreaID:   t.AreaID,
			AreaName: t.AreaName,
			Label:    t.Label,
			Seats:    t.Seats,
			Status:   string(t.Status),
		})
	}
	return out
}

func toTakeawayView(t *takeaway.Takeaway) TakeawayView {
	return TakeawayView{
		ID:        t.ID,
		Number:    t.Number,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		DeletedAt: t.DeletedAt,
	}
}

func toTakeawaySummaryViews(list []takeaway.Summary) []TakeawaySummaryView {
	out := make([]TakeawaySummaryView, 0, len(list))
	for i := range list {
		s := list[i]
		out = append(out, TakeawaySummaryView{
			TakeawayView:        toTakeawayView(&s.Takeaway),
			OrderCount:          s.OrderCount,
			ActiveOrderCount:    s.ActiveOrderCount,
			CompletedOrderCount: s.CompletedOrderCount,
			TotalAmount:         s.TotalAmount,
		})
	}
	return out
}

func toTakeawayDetailView(d *takeaway.Detail) TakeawayDetailView {
	return TakeawayDetailView{
		TakeawayView: toTakeawayView(&d.Takeaway),
		Orders:       toOrderViews(d.Orders),
	}
}

func toRemoveItemView(r *order.RemoveItemResult) RemoveItemView {
	return RemoveItemView{
		ItemRemoved:  r.ItemRemoved,
		OrderDeleted: r.OrderDeleted,
		TableFreed:   r.TableFreed,
		Order:        toOrderView(r.Order),
	}
}

func toTransferView(r *transfer.TransferResult) TransferView {
	return TransferView{
		Mode:             string(r.Mode),
		SourceOrder:      toOrderView(r.SourceOrder),
		TargetOrder:      toOrderView(r.TargetOrder),
		SourceDeleted:    r.SourceDeleted,
		TargetCreated:    r.TargetCreated,
		SourceTableFreed: r.SourceTableFreed,
	}
}

func toMergeView(r *transfer.MergeResult) MergeView {
	return MergeView{
		Order:          toOrderView(r.Order),
		VoidedOrderIDs: r.VoidedOrderIDs,
		FreedTableIDs:  r.FreedTableIDs,
	}
}
