package table

import "deskgoo-pos/internal/apperr"

var ErrTableNotFound = apperr.NotFound("table not found")
