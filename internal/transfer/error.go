package transfer

import "deskgoo-pos/internal/apperr"

var (
	ErrInvalidMode     = apperr.Validation("mode must be full or partial")
	ErrInvalidOrderID  = apperr.Validation("order_id must be positive")
	ErrInvalidTableID  = apperr.Validation("new_table_id must be positive")
	ErrSameTable       = apperr.Validation("order is already on that table")
	ErrNotDineIn       = apperr.Validation("only dine-in orders can be transferred")
	ErrNoSelectedItems = apperr.Validation("partial transfer requires at least one item")
	ErrDuplicateItem   = apperr.Validation("each item may be selected once")
	ErrTooFewSources   = apperr.Validation("merge requires at least two orders")
	ErrDuplicateSource = apperr.Validation("merge source orders must be distinct")
	ErrDestinationBusy = apperr.Conflict("destination table already has an active order")
)
