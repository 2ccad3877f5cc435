package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"deskgoo-pos/internal/apperr"
	"deskgoo-pos/internal/db"
	"deskgoo-pos/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	InsertItem(ctx context.Context, item *OrderItem) error
	FindByID(ctx context.Context, id int64) (*Order, error)
	FindForUpdate(ctx context.Context, id int64) (*Order, error)
	FindActiveByTable(ctx context.Context, tableID int64, forUpdate bool) (*Order, error)
	ListItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	FindItem(ctx context.Context, orderID, itemID int64) (*OrderItem, error)
	UpdateItem(ctx context.Context, item *OrderItem) error
	DeleteItem(ctx context.Context, orderID, itemID int64) error
	UpdateTotals(ctx context.Context, orderID int64, total, vat decimal.Decimal) error
	UpdateStatus(ctx context.Context, orderID int64, status Status) error
	UpdatePaymentMethod(ctx context.Context, orderID int64, method PaymentMethod) error
	UpdateContext(ctx context.Context, orderID int64, sc ServingContext) error
	Checkout(ctx context.Context, orderID int64, f CheckoutFields) error
	Delete(ctx context.Context, orderID int64) error
	List(ctx context.Context, f ListFilter) ([]Order, error)
	ListActive(ctx context.Context) ([]ActiveOrder, error)
	AppendAudit(ctx context.Context, e *AuditEntry) error
	ListAudit(ctx context.Context, orderID int64) ([]AuditEntry, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) conn(ctx context.Context) db.DBTX {
	return db.Conn(ctx, r.db)
}

func orderColumns(alias string) string {
	cols := []string{
		"id", "table_id", "takeaway_id", "order_type",
		"total_amount", "discount_amount", "discount_type",
		"vat_amount", "vat_percentage", "status", "payment_method", "notes",
		"customer_invoice_data", "invoice_generated_at",
		"cash_amount", "card_amount", "online_amount", "payment_breakdown",
		"created_at", "updated_at",
	}
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	for i, c := range cols {
		switch c {
		case "status":
			cols[i] = "COALESCE(" + prefix + c + ", '')"
		case "total_amount", "discount_amount", "vat_amount", "vat_percentage",
			"cash_amount", "card_amount", "online_amount":
			cols[i] = "COALESCE(" + prefix + c + ", 0)"
		default:
			cols[i] = prefix + c
		}
	}
	return strings.Join(cols, ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrderInto(row scanner, extra ...any) (*Order, error) {
	var (
		o         Order
		orderType string
		status    string
		discount  sql.NullString
		payment   sql.NullString
		breakdown []byte
	)

	dest := []any{
		&o.ID, &o.TableID, &o.TakeawayID, &orderType,
		&o.TotalAmount, &o.DiscountAmount, &discount,
		&o.VATAmount, &o.VATPercentage, &status, &payment, &o.Notes,
		&o.CustomerInvoiceData, &o.InvoiceGeneratedAt,
		&o.CashAmount, &o.CardAmount, &o.OnlineAmount, &breakdown,
		&o.CreatedAt, &o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	o.OrderType = OrderType(orderType)
	o.Status = Status(status)
	if discount.Valid {
		dt := DiscountType(discount.String)
		o.DiscountType = &dt
	}
	if payment.Valid {
		pm := PaymentMethod(payment.String)
		o.PaymentMethod = &pm
	}
	if len(breakdown) > 0 {
		o.PaymentBreakdown = breakdown
	}

	return &o, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
	)

	query := `
		INSERT INTO orders (
			table_id, takeaway_id, order_type,
			total_amount, discount_amount, discount_type,
			vat_amount, vat_percentage, status, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.conn(ctx).QueryRowContext(ctx, query,
		o.TableID,
		o.TakeawayID,
		o.OrderType,
		o.TotalAmount,
		o.DiscountAmount,
		o.DiscountType,
		o.VATAmount,
		o.VATPercentage,
		o.Status,
		o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return apperr.Persistence("insert order", err)
	}

	return nil
}

func (r *repository) InsertItem(ctx context.Context, item *OrderItem) error {
	query := `
		INSERT INTO order_items (
			order_id, menu_item_id, quantity, unit_price, total_price, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.conn(ctx).QueryRowContext(ctx, query,
		item.OrderID,
		item.MenuItemID,
		item.Quantity,
		item.UnitPrice,
		item.TotalPrice,
		item.Notes,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to insert order item",
			zap.String("layer", "repository"),
			zap.Int64("order_id", item.OrderID),
			zap.Error(err),
		)
		return apperr.Persistence("insert order item", err)
	}

	return nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*Order, error) {
	return r.findOne(ctx, id, false)
}

// FindForUpdate loads the order and locks its row until the surrounding
// transaction ends.
func (r *repository) FindForUpdate(ctx context.Context, id int64) (*Order, error) {
	return r.findOne(ctx, id, true)
}

func (r *repository) findOne(ctx context.Context, id int64, forUpdate bool) (*Order, error) {
	query := "SELECT " + orderColumns("") + " FROM orders WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	o, err := scanOrderInto(r.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, apperr.Persistence("load order", err)
	}

	o.Items, err = r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}

	return o, nil
}

func (r *repository) FindActiveByTable(ctx context.Context, tableID int64, forUpdate bool) (*Order, error) {
	query := "SELECT " + orderColumns("") + " FROM orders WHERE table_id = $1 AND " +
		ActivePredicate("") + " ORDER BY created_at DESC, id DESC LIMIT 1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	o, err := scanOrderInto(r.conn(ctx).QueryRowContext(ctx, query, tableID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, apperr.Persistence("load active order for table", err)
	}

	o.Items, err = r.ListItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	return o, nil
}

const itemColumns = `
	oi.id, oi.order_id, oi.menu_item_id, COALESCE(mi.name, ''),
	oi.quantity, oi.unit_price, oi.total_price, oi.notes,
	oi.created_at, oi.updated_at
`

func scanItem(row scanner) (*OrderItem, error) {
	var it OrderItem
	err := row.Scan(
		&it.ID, &it.OrderID, &it.MenuItemID, &it.MenuItemName,
		&it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.Notes,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *repository) ListItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	query := "SELECT " + itemColumns + `
		FROM order_items oi
		LEFT JOIN menu_items mi ON mi.id = oi.menu_item_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`

	rows, err := r.conn(ctx).QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, apperr.Persistence("list order items", err)
	}
	defer rows.Close()

	items := []OrderItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apperr.Persistence("scan order item", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list order items", err)
	}

	return items, nil
}

func (r *repository) FindItem(ctx context.Context, orderID, itemID int64) (*OrderItem, error) {
	query := "SELECT " + itemColumns + `
		FROM order_items oi
		LEFT JOIN menu_items mi ON mi.id = oi.menu_item_id
		WHERE oi.id = $1 AND oi.order_id = $2`

	it, err := scanItem(r.conn(ctx).QueryRowContext(ctx, query, itemID, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, apperr.Persistence("load order item", err)
	}
	return it, nil
}

func (r *repository) UpdateItem(ctx context.Context, item *OrderItem) error {
	query := `
		UPDATE order_items
		SET menu_item_id = $1, quantity = $2, unit_price = $3, total_price = $4,
		    notes = $5, updated_at = NOW()
		WHERE id = $6 AND order_id = $7
	`
	return r.execOne(ctx, "update order item", ErrItemNotFound, query,
		item.MenuItemID, item.Quantity, item.UnitPrice, item.TotalPrice,
		item.Notes, item.ID, item.OrderID,
	)
}

func (r *repository) DeleteItem(ctx context.Context, orderID, itemID int64) error {
	return r.execOne(ctx, "delete order item", ErrItemNotFound,
		`DELETE FROM order_items WHERE id = $1 AND order_id = $2`, itemID, orderID)
}

func (r *repository) UpdateTotals(ctx context.Context, orderID int64, total, vat decimal.Decimal) error {
	return r.execOne(ctx, "update order totals", ErrOrderNotFound,
		`UPDATE orders SET total_amount = $1, vat_amount = $2, updated_at = NOW() WHERE id = $3`,
		total, vat, orderID)
}

func (r *repository) UpdateStatus(ctx context.Context, orderID int64, status Status) error {
	return r.execOne(ctx, "update order status", ErrOrderNotFound,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, orderID)
}

func (r *repository) UpdatePaymentMethod(ctx context.Context, orderID int64, method PaymentMethod) error {
	return r.execOne(ctx, "update payment method", ErrOrderNotFound,
		`UPDATE orders SET payment_method = $1, updated_at = NOW() WHERE id = $2`,
		method, orderID)
}

func (r *repository) UpdateContext(ctx context.Context, orderID int64, sc ServingContext) error {
	return r.execOne(ctx, "update order context", ErrOrderNotFound,
		`UPDATE orders SET table_id = $1, takeaway_id = $2, order_type = $3, updated_at = NOW() WHERE id = $4`,
		sc.TableID, sc.TakeawayID, sc.Type(), orderID)
}

func (r *repository) Checkout(ctx context.Context, orderID int64, f CheckoutFields) error {
	var invoiceAt *time.Time
	if f.InvoiceData != nil {
		invoiceAt = &f.InvoiceAt
	}

	// The invoice snapshot is immutable once written.
	query := `
		UPDATE orders SET
			status = $1,
			payment_method = COALESCE($2, payment_method),
			discount_amount = $3,
			discount_type = $4,
			vat_percentage = $5,
			vat_amount = $6,
			cash_amount = $7,
			card_amount = $8,
			online_amount = $9,
			payment_breakdown = COALESCE($10, payment_breakdown),
			customer_invoice_data = COALESCE(customer_invoice_data, $11),
			invoice_generated_at = COALESCE(invoice_generated_at, $12),
			updated_at = NOW()
		WHERE id = $13
	`
	return r.execOne(ctx, "checkout order", ErrOrderNotFound, query,
		f.Status,
		f.PaymentMethod,
		f.DiscountAmount,
		f.DiscountType,
		f.VATPercentage,
		f.VATAmount,
		f.CashAmount,
		f.CardAmount,
		f.OnlineAmount,
		nullableJSON(f.PaymentBreakdown),
		f.InvoiceData,
		invoiceAt,
		orderID,
	)
}

// Delete hard-deletes the order and its items. Audit rows are kept.
func (r *repository) Delete(ctx context.Context, orderID int64) error {
	if _, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return apperr.Persistence("delete order items", err)
	}
	return r.execOne(ctx, "delete order", ErrOrderNotFound, `DELETE FROM orders WHERE id = $1`, orderID)
}

func (r *repository) execOne(ctx context.Context, op string, notFound error, query string, args ...any) error {
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to "+op,
			zap.String("layer", "repository"),
			zap.Error(err),
		)
		return apperr.Persistence(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Order, error) {
	var (
		where []string
		args  []any
	)

	if f.Type != nil {
		args = append(args, *f.Type)
		where = append(where, fmt.Sprintf("order_type = $%d", len(args)))
	}
	if f.TakeawayID != nil {
		args = append(args, *f.TakeawayID)
		where = append(where, fmt.Sprintf("takeaway_id = $%d", len(args)))
	}
	if f.ActiveOnly {
		where = append(where, ActivePredicate(""))
	}

	query := "SELECT " + orderColumns("") + " FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Persistence("list orders", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrderInto(rows)
		if err != nil {
			return nil, apperr.Persistence("scan order", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list orders", err)
	}

	return orders, nil
}

func (r *repository) ListActive(ctx context.Context) ([]ActiveOrder, error) {
	query := "SELECT " + orderColumns("o") + `,
			t.label, a.name, tk.takeaway_number,
			(SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id)
		FROM orders o
		LEFT JOIN dining_tables t ON t.id = o.table_id
		LEFT JOIN areas a ON a.id = t.area_id
		LEFT JOIN takeaways tk ON tk.id = o.takeaway_id
		WHERE ` + ActivePredicate("o") + `
		ORDER BY o.created_at DESC, o.id DESC`

	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Persistence("list active orders", err)
	}
	defer rows.Close()

	result := []ActiveOrder{}
	for rows.Next() {
		var a ActiveOrder
		o, err := scanOrderInto(rows, &a.TableLabel, &a.AreaName, &a.TakeawayNumber, &a.ItemCount)
		if err != nil {
			return nil, apperr.Persistence("scan active order", err)
		}
		a.Order = *o
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list active orders", err)
	}

	return result, nil
}

func (r *repository) AppendAudit(ctx context.Context, e *AuditEntry) error {
	query := `
		INSERT INTO order_audit_log (order_id, event_type, detail, actor, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`
	err := r.conn(ctx).QueryRowContext(ctx, query, e.OrderID, e.EventType, e.Detail, e.Actor).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return apperr.Persistence("append audit entry", err)
	}
	return nil
}

func (r *repository) ListAudit(ctx context.Context, orderID int64) ([]AuditEntry, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `
		SELECT id, order_id, event_type, detail, actor, created_at
		FROM order_audit_log
		WHERE order_id = $1
		ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, apperr.Persistence("list audit entries", err)
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var (
			e     AuditEntry
			event string
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &event, &e.Detail, &e.Actor, &e.CreatedAt); err != nil {
			return nil, apperr.Persistence("scan audit entry", err)
		}
		e.EventType = AuditEvent(event)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list audit entries", err)
	}

	return entries, nil
}
