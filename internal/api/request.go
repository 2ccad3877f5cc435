package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type ItemRequest struct {
	MenuItemID int64            `json:"menu_item_id" validate:"required,gt=0"`
	Quantity   int              `json:"quantity,omitempty" validate:"omitempty,min=1"`
	UnitPrice  *decimal.Decimal `json:"unit_price" validate:"required"`
	TotalPrice *decimal.Decimal `json:"total_price" validate:"required"`
	Notes      *string          `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type CreateOrderRequest struct {
	TableID        *int64           `json:"table_id,omitempty" validate:"omitempty,gt=0"`
	TakeawayID     *int64           `json:"takeaway_id,omitempty" validate:"omitempty,gt=0"`
	Items          []ItemRequest    `json:"items" validate:"required,min=1,dive"`
	Status         *string          `json:"status,omitempty"`
	VATPercentage  *decimal.Decimal `json:"vat_percentage,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	DiscountType   *string          `json:"discount_type,omitempty" validate:"omitempty,oneof=percentage fixed"`
	Notes          *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type AddItemsRequest struct {
	Items []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateItemRequest struct {
	Quantity   *int             `json:"quantity,omitempty" validate:"omitempty,min=1"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
	TotalPrice *decimal.Decimal `json:"total_price,omitempty"`
	MenuItemID *int64           `json:"menu_item_id,omitempty" validate:"omitempty,gt=0"`
	Notes      *string          `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type UpdatePaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash card online others"`
}

type CheckoutRequest struct {
	PaymentMethod    *string          `json:"payment_method,omitempty" validate:"omitempty,oneof=cash card online others"`
	DiscountAmount   *decimal.Decimal `json:"discount_amount,omitempty"`
	DiscountType     *string          `json:"discount_type,omitempty" validate:"omitempty,oneof=percentage fixed"`
	VATPercentage    *decimal.Decimal `json:"vat_percentage,omitempty"`
	CashAmount       *decimal.Decimal `json:"cash_amount,omitempty"`
	CardAmount       *decimal.Decimal `json:"card_amount,omitempty"`
	OnlineAmount     *decimal.Decimal `json:"online_amount,omitempty"`
	PaymentBreakdown json.RawMessage  `json:"payment_breakdown,omitempty"`
	InvoiceData      *string          `json:"customer_invoice_data,omitempty"`
}

type ReprintRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=64"`
}

type SelectedItemRequest struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,min=1"`
}

type TransferRequest struct {
	OrderID    int64                 `json:"order_id" validate:"required,gt=0"`
	NewTableID int64                 `json:"new_table_id" validate:"required,gt=0"`
	Notes      *string               `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Mode       string                `json:"mode,omitempty" validate:"omitempty,oneof=full partial"`
	Items      []SelectedItemRequest `json:"selected_items,omitempty" validate:"omitempty,dive"`
}

type MergeRequest struct {
	SourceOrderIDs []int64 `json:"source_order_ids" validate:"required,min=2,dive,gt=0"`
	TargetTableID  int64   `json:"target_table_id" validate:"required,gt=0"`
	Notes          *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type MenuCategoriesQuery struct {
	Search string `form:"q" json:"q" validate:"omitempty,max=100"`
	Limit  int    `form:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
	Page   int    `form:"page" json:"page" validate:"omitempty,min=1"`
}

type MenuItemsQuery struct {
	CategoryID *int64 `form:"category_id" json:"category_id" validate:"omitempty,gt=0"`
	Search     string `form:"q" json:"q" validate:"omitempty,max=100"`
	Available  bool   `form:"available" json:"available"`
	Limit      int    `form:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
	Page       int    `form:"page" json:"page" validate:"omitempty,min=1"`
}
