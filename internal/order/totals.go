package order

import (
	"fmt"

	"deskgoo-pos/internal/apperr"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals derives total_amount and vat_amount from the current item set.
// VAT is charged on the item total and rounded to cents.
func Totals(items []OrderItem, vatPercentage decimal.Decimal) (total, vat decimal.Decimal) {
	total = decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	vat = total.Mul(vatPercentage).Div(hundred).Round(2)
	return total, vat
}

// LineTotal is quantity times unit price.
func LineTotal(qty int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// newItem validates one ItemInput and turns it into a line item. Quantity
// defaults to 1. Both prices are required, carry at most two decimals, and
// total_price must equal quantity times unit_price.
func newItem(idx int, in ItemInput) (OrderItem, error) {
	if in.MenuItemID <= 0 {
		return OrderItem{}, apperr.Validationf("item %d: menu_item_id is required", idx)
	}
	if in.UnitPrice == nil {
		return OrderItem{}, apperr.Validationf("item %d: unit_price is required", idx)
	}
	if in.TotalPrice == nil {
		return OrderItem{}, apperr.Validationf("item %d: total_price is required", idx)
	}
	if in.UnitPrice.IsNegative() {
		return OrderItem{}, apperr.Validationf("item %d: unit_price must not be negative", idx)
	}
	if !isCents(*in.UnitPrice) || !isCents(*in.TotalPrice) {
		return OrderItem{}, apperr.Validationf("item %d: prices allow at most 2 decimal places", idx)
	}

	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return OrderItem{}, fmt.Errorf("item %d: %w", idx, ErrInvalidQuantity)
	}

	total := LineTotal(qty, *in.UnitPrice)
	if !total.Equal(*in.TotalPrice) {
		return OrderItem{}, apperr.Validationf("item %d: total_price %s does not equal quantity x unit_price (%s)",
			idx, in.TotalPrice.String(), total.String())
	}

	return OrderItem{
		MenuItemID: in.MenuItemID,
		Quantity:   qty,
		UnitPrice:  *in.UnitPrice,
		TotalPrice: total,
		Notes:      in.Notes,
	}, nil
}

// isCents matches the NUMERIC(12,2) price columns.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

func newItems(in []ItemInput) ([]OrderItem, error) {
	if len(in) == 0 {
		return nil, ErrNoItems
	}
	items := make([]OrderItem, 0, len(in))
	for i, it := range in {
		item, err := newItem(i, it)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func validateDiscount(amount decimal.Decimal, typ *DiscountType) error {
	if amount.IsNegative() {
		return ErrInvalidDiscount
	}
	if typ == nil {
		return nil
	}
	if !typ.Valid() {
		return ErrInvalidDiscount
	}
	if *typ == DiscountPercentage && amount.GreaterThan(hundred) {
		return ErrInvalidDiscount
	}
	return nil
}

func validateVAT(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return ErrInvalidVAT
	}
	return nil
}
