package order

import (
	"fmt"
	"strings"
)

// Status is the single order status vocabulary. The empty value is a legacy
// row with no status and counts as active.
type Status string

const (
	StatusNone      Status = ""
	StatusPending   Status = "pending"
	StatusDraft     Status = "draft"
	StatusPlaced    Status = "placed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"

	// statusPaid is written by older tills on settled takeaway orders.
	statusPaid Status = "paid"
)

var knownStatuses = map[Status]struct{}{
	StatusPending:   {},
	StatusDraft:     {},
	StatusPlaced:    {},
	StatusPreparing: {},
	StatusReady:     {},
	StatusServed:    {},
	StatusCompleted: {},
	StatusCancelled: {},
}

// ParseStatus normalises s. Legacy "paid" reads as completed.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == statusPaid {
		return StatusCompleted, nil
	}
	if _, ok := knownStatuses[st]; !ok {
		return StatusNone, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == statusPaid
}

// IsCompleted is true for completed orders, legacy paid rows included.
func (s Status) IsCompleted() bool {
	return s == StatusCompleted || s == statusPaid
}

// IsActive is the non-terminal predicate used for occupancy, transfer
// targets and takeaway completion.
func (s Status) IsActive() bool {
	return !s.IsTerminal()
}

// ActivePredicate is IsActive as a SQL condition on the status column of the
// given table alias.
func ActivePredicate(alias string) string {
	col := "status"
	if alias != "" {
		col = alias + ".status"
	}
	return fmt.Sprintf("(%s IS NULL OR %s NOT IN ('%s', '%s', '%s'))", col, col, StatusCompleted, StatusCancelled, statusPaid)
}
