package kitchen

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Reason says why a ticket is (re)issued to the kitchen.
type Reason string

const (
	ReasonReprint       Reason = "reprint"
	ReasonTransfer      Reason = "transfer"
	ReasonPartialSource Reason = "partial-transfer-source"
	ReasonPartialTarget Reason = "partial-transfer-target"
	ReasonMerge         Reason = "merge"
)

type TicketItem struct {
	MenuItemID int64           `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Notes      *string         `json:"notes,omitempty"`
}

// Ticket is the payload handed to the kitchen printing/display side.
type Ticket struct {
	TicketNumber   string          `json:"ticket_number"`
	OrderID        int64           `json:"order_id"`
	ContextLabel   string          `json:"context_label"`
	Reason         Reason          `json:"reason"`
	Items          []TicketItem    `json:"items"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	VoidedOrderIDs []int64         `json:"voided_order_ids,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// IdempotencyKey identifies the (order, reason) pair. Sinks may use it to
// collapse duplicate deliveries.
func (t Ticket) IdempotencyKey() string {
	return fmt.Sprintf("order-%d:%s", t.OrderID, t.Reason)
}

// RoutingKey is the topic the ticket is published under, e.g.
// "kitchen.ticket.merge".
func (t Ticket) RoutingKey() string {
	return "kitchen.ticket." + string(t.Reason)
}
