package menu

import "deskgoo-pos/internal/apperr"

var (
	ErrItemNotFound      = apperr.NotFound("menu item not found")
	ErrInvalidCategoryID = apperr.Validation("category_id must be positive")
	ErrInvalidItemID     = apperr.Validation("menu item id must be positive")
)
