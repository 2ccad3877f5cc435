package takeaway

import (
	"time"

	"deskgoo-pos/internal/order"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type Takeaway struct {
	ID        int64
	Number    string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func (t *Takeaway) Deleted() bool {
	return t.DeletedAt != nil
}

// Summary is a ticket with aggregate figures over its orders.
type Summary struct {
	Takeaway
	OrderCount          int
	ActiveOrderCount    int
	CompletedOrderCount int
	TotalAmount         decimal.Decimal
}

type OrderCounts struct {
	Total  int
	Active int
}

type Detail struct {
	Takeaway
	Orders []order.Order
}
