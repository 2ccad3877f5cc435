package menu

import "github.com/shopspring/decimal"

type Category struct {
	ID        int64
	Name      string
	ItemCount int
}

type Item struct {
	ID           int64
	CategoryID   *int64
	CategoryName string
	Name         string
	Price        decimal.Decimal
	Available    bool
}

type ItemFilter struct {
	CategoryID    *int64
	Search        string
	AvailableOnly bool
	Limit         int
	Page          int
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// normalize applies the pagination defaults and returns the row offset.
func normalize(limit, page int) (int, int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page <= 0 {
		page = 1
	}
	return limit, page, (page - 1) * limit
}
