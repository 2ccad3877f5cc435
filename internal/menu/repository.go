package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"deskgoo-pos/internal/apperr"
	"deskgoo-pos/internal/db"
	"deskgoo-pos/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	ListCategories(ctx context.Context, search string, limit, offset int) ([]Category, int64, error)
	ListItems(ctx context.Context, f ItemFilter, limit, offset int) ([]Item, int64, error)
	FindItem(ctx context.Context, id int64) (*Item, error)
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

func (r *repository) ListCategories(ctx context.Context, search string, limit, offset int) ([]Category, int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListCategories"),
		zap.String("search", search),
		zap.Int("limit", limit),
		zap.Int("offset", offset),
	)

	where := ""
	args := []any{}
	if search != "" {
		where = " WHERE c.name ILIKE $1"
		args = append(args, "%"+search+"%")
	}

	var total int64
	if err := r.conn(ctx).QueryRowContext(ctx, "SELECT COUNT(*) FROM categories c"+where, args...).Scan(&total); err != nil {
		log.Error("failed to count categories", zap.Error(err))
		return nil, 0, apperr.Persistence("count categories", err)
	}

	query := `
		SELECT c.id, c.name,
			(SELECT COUNT(*) FROM menu_items mi WHERE mi.category_id = c.id)
		FROM categories c` + where +
		fmt.Sprintf(" ORDER BY c.name ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	log.Debug("Executing ListCategories query", zap.String("query", query))

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list categories", zap.Error(err))
		return nil, 0, apperr.Persistence("list categories", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ItemCount); err != nil {
			return nil, 0, apperr.Persistence("scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Persistence("list categories", err)
	}

	return categories, total, nil
}

const itemSelect = `
	SELECT mi.id, mi.category_id, COALESCE(c.name, ''), mi.name, mi.price, mi.available
	FROM menu_items mi
	LEFT JOIN categories c ON c.id = mi.category_id`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var it Item
	if err := row.Scan(&it.ID, &it.CategoryID, &it.CategoryName, &it.Name, &it.Price, &it.Available); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *repository) ListItems(ctx context.Context, f ItemFilter, limit, offset int) ([]Item, int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListItems"),
	)

	where := []string{}
	args := []any{}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		where = append(where, fmt.Sprintf("mi.category_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("mi.name ILIKE $%d", len(args)))
	}
	if f.AvailableOnly {
		where = append(where, "mi.available")
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.conn(ctx).QueryRowContext(ctx, "SELECT COUNT(*) FROM menu_items mi"+clause, args...).Scan(&total); err != nil {
		log.Error("failed to count menu items", zap.Error(err))
		return nil, 0, apperr.Persistence("count menu items", err)
	}

	query := itemSelect + clause +
		fmt.Sprintf(" ORDER BY mi.name ASC, mi.id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list menu items", zap.Error(err))
		return nil, 0, apperr.Persistence("list menu items", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("scan menu item", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Persistence("list menu items", err)
	}

	return items, total, nil
}

func (r *repository) FindItem(ctx context.Context, id int64) (*Item, error) {
	it, err := scanItem(r.conn(ctx).QueryRowContext(ctx, itemSelect+" WHERE mi.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, apperr.Persistence("find menu item", err)
	}
	return it, nil
}
