package order

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	TypeDineIn   OrderType = "dine_in"
	TypeTakeaway OrderType = "takeaway"
)

func (t OrderType) Valid() bool {
	return t == TypeDineIn || t == TypeTakeaway
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (d DiscountType) Valid() bool {
	return d == DiscountPercentage || d == DiscountFixed
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentOnline PaymentMethod = "online"
	PaymentOthers PaymentMethod = "others"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentOnline, PaymentOthers:
		return true
	}
	return false
}

// ServingContext is where an order is served: exactly one of a dining table
// or a takeaway ticket.
type ServingContext struct {
	TableID    *int64
	TakeawayID *int64
}

func DineIn(tableID int64) ServingContext {
	return ServingContext{TableID: &tableID}
}

func Takeaway(takeawayID int64) ServingContext {
	return ServingContext{TakeawayID: &takeawayID}
}

func (c ServingContext) Validate() error {
	switch {
	case c.TableID != nil && c.TakeawayID != nil:
		return ErrContextBoth
	case c.TableID == nil && c.TakeawayID == nil:
		return ErrContextMissing
	case c.TableID != nil && *c.TableID <= 0:
		return ErrInvalidTableID
	case c.TakeawayID != nil && *c.TakeawayID <= 0:
		return ErrInvalidTakeawayID
	}
	return nil
}

func (c ServingContext) Type() OrderType {
	if c.TakeawayID != nil {
		return TypeTakeaway
	}
	return TypeDineIn
}

type Order struct {
	ID         int64
	TableID    *int64
	TakeawayID *int64
	OrderType  OrderType
	Items      []OrderItem

	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	DiscountType   *DiscountType
	VATAmount      decimal.Decimal
	VATPercentage  decimal.Decimal

	Status        Status
	PaymentMethod *PaymentMethod
	Notes         *string

	// Written once at checkout, never overwritten.
	CustomerInvoiceData *string
	InvoiceGeneratedAt  *time.Time

	CashAmount       decimal.Decimal
	CardAmount       decimal.Decimal
	OnlineAmount     decimal.Decimal
	PaymentBreakdown json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Order) Context() ServingContext {
	return ServingContext{TableID: o.TableID, TakeawayID: o.TakeawayID}
}

func (o *Order) IsDineIn() bool {
	return o.TableID != nil
}

type OrderItem struct {
	ID           int64
	OrderID      int64
	MenuItemID   int64
	MenuItemName string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
	Notes        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderDetail is an order with its resolved serving-context label.
type OrderDetail struct {
	Order
	ContextLabel string
}

// ActiveOrder is the listing row of a non-terminal order.
type ActiveOrder struct {
	Order
	TableLabel     *string
	AreaName       *string
	TakeawayNumber *string
	ItemCount      int
}

type ListFilter struct {
	Type       *OrderType
	TakeawayID *int64
	ActiveOnly bool
}

type AuditEvent string

const (
	AuditCreated         AuditEvent = "created"
	AuditItemsAdded      AuditEvent = "items_added"
	AuditItemUpdated     AuditEvent = "item_updated"
	AuditItemRemoved     AuditEvent = "item_removed"
	AuditStatusChanged   AuditEvent = "status_changed"
	AuditPaymentMethod   AuditEvent = "payment_method_changed"
	AuditCheckedOut      AuditEvent = "checked_out"
	AuditTransferred     AuditEvent = "transferred"
	AuditPartialOut      AuditEvent = "partial_transfer_out"
	AuditPartialIn       AuditEvent = "partial_transfer_in"
	AuditMerged          AuditEvent = "merged"
	AuditMergedInto      AuditEvent = "merged_into"
	AuditDeletedNoItems  AuditEvent = "deleted_no_items"
	AuditTicketReprinted AuditEvent = "ticket_reprinted"
)

// AuditEntry is one row of the per-order event history. Entries outlive the
// order they describe.
type AuditEntry struct {
	ID        int64
	OrderID   int64
	EventType AuditEvent
	Detail    string
	Actor     *string
	CreatedAt time.Time
}

// ItemInput is a new line item as supplied by the caller.
type ItemInput struct {
	MenuItemID int64
	Quantity   int
	UnitPrice  *decimal.Decimal
	TotalPrice *decimal.Decimal
	Notes      *string
}

type CreateOrderInput struct {
	TableID        *int64
	TakeawayID     *int64
	Items          []ItemInput
	Status         *Status
	VATPercentage  decimal.Decimal
	DiscountAmount decimal.Decimal
	DiscountType   *DiscountType
	Notes          *string
}

// UpdateItemInput selects one of two modes. With MenuItemID set the line is
// replaced wholesale; otherwise only quantity (and notes) change.
type UpdateItemInput struct {
	Quantity   *int
	UnitPrice  *decimal.Decimal
	TotalPrice *decimal.Decimal
	MenuItemID *int64
	Notes      *string
}

type CheckoutInput struct {
	PaymentMethod    *PaymentMethod
	DiscountAmount   *decimal.Decimal
	DiscountType     *DiscountType
	VATPercentage    *decimal.Decimal
	CashAmount       *decimal.Decimal
	CardAmount       *decimal.Decimal
	OnlineAmount     *decimal.Decimal
	PaymentBreakdown json.RawMessage
	InvoiceData      *string
}

// CheckoutFields is what the repository stamps on an order at checkout.
type CheckoutFields struct {
	Status           Status
	PaymentMethod    *PaymentMethod
	DiscountAmount   decimal.Decimal
	DiscountType     *DiscountType
	VATPercentage    decimal.Decimal
	VATAmount        decimal.Decimal
	CashAmount       decimal.Decimal
	CardAmount       decimal.Decimal
	OnlineAmount     decimal.Decimal
	PaymentBreakdown json.RawMessage
	InvoiceData      *string
	InvoiceAt        time.Time
}

type RemoveItemResult struct {
	ItemRemoved  bool
	OrderDeleted bool
	TableFreed   bool
	Order        *Order
}
