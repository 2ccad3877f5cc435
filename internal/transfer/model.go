package transfer

import (
	"deskgoo-pos/internal/order"
)

type Mode string

const (
	ModeFull    Mode = "full"
	ModePartial Mode = "partial"
)

func (m Mode) Valid() bool {
	return m == ModeFull || m == ModePartial
}

// SelectedItem is a quantity of one source line to move in a partial
// transfer.
type SelectedItem struct {
	ItemID   int64
	Quantity int
}

type TransferInput struct {
	OrderID    int64
	NewTableID int64
	Notes      *string
	Mode       Mode
	Items      []SelectedItem
}

type TransferResult struct {
	Mode Mode

	// SourceOrder is nil when a partial transfer emptied and deleted it.
	SourceOrder *order.Order
	// TargetOrder is only set for partial transfers.
	TargetOrder *order.Order

	SourceDeleted    bool
	TargetCreated    bool
	SourceTableFreed bool
}

type MergeInput struct {
	SourceOrderIDs []int64
	TargetTableID  int64
	Notes          *string
}

type MergeResult struct {
	Order          *order.Order
	VoidedOrderIDs []int64
	FreedTableIDs  []int64
}
