package order

import "deskgoo-pos/internal/apperr"

var (
	ErrOrderNotFound = apperr.NotFound("order not found")
	ErrItemNotFound  = apperr.NotFound("order item not found")

	ErrContextBoth       = apperr.Validation("provide either table_id or takeaway_id, not both")
	ErrContextMissing    = apperr.Validation("either table_id or takeaway_id is required")
	ErrInvalidTableID    = apperr.Validation("table_id must be positive")
	ErrInvalidTakeawayID = apperr.Validation("takeaway_id must be positive")
	ErrNoItems           = apperr.Validation("order must contain at least one item")
	ErrInvalidQuantity   = apperr.Validation("quantity must be a positive integer")
	ErrInvalidStatus     = apperr.Validation("invalid order status")
	ErrInvalidPayment    = apperr.Validation("invalid payment method")
	ErrInvalidDiscount   = apperr.Validation("invalid discount")
	ErrInvalidVAT        = apperr.Validation("vat_percentage must be between 0 and 100")
	ErrNothingToUpdate   = apperr.Validation("no fields to update")
	ErrInvalidOrderType  = apperr.Validation("order type must be dine_in or takeaway")

	ErrOrderClosed = apperr.Conflict("order is already completed or cancelled")
)
