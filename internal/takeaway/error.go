package takeaway

import "deskgoo-pos/internal/apperr"

const PgUniqueViolation = "23505"

var (
	ErrTakeawayNotFound        = apperr.NotFound("takeaway not found")
	ErrTakeawayCompleted       = apperr.Conflict("takeaway is already completed")
	ErrTakeawayHasActiveOrders = apperr.Conflict("takeaway still has orders that are not completed or cancelled")
	ErrTakeawayHasOrders       = apperr.Conflict("cannot delete a takeaway that has orders")
	ErrInvalidDate             = apperr.Validation("date must be formatted as YYYY-MM-DD")
)
