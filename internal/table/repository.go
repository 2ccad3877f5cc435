package table

import (
	"context"
	"database/sql"
	"errors"

	"deskgoo-pos/internal/apperr"
	"deskgoo-pos/internal/db"
	"deskgoo-pos/internal/logger"
	"deskgoo-pos/internal/order"

	"go.uber.org/zap"
)

type Repository interface {
	FindByID(ctx context.Context, id int64) (*DiningTable, error)
	FindForUpdate(ctx context.Context, id int64) (*DiningTable, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	HasActiveOrders(ctx context.Context, tableID int64) (bool, error)
	ListAvailable(ctx context.Context) ([]DiningTable, error)
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

func (r *repository) FindByID(ctx context.Context, id int64) (*DiningTable, error) {
	return r.find(ctx, id, false)
}

// FindForUpdate locks the table row. Transfers and merges take this lock
// before deciding whether to reuse the destination's active order.
func (r *repository) FindForUpdate(ctx context.Context, id int64) (*DiningTable, error) {
	return r.find(ctx, id, true)
}

func (r *repository) find(ctx context.Context, id int64, forUpdate bool) (*DiningTable, error) {
	query := `
		SELECT t.id, t.area_id, COALESCE(a.name, ''), t.label, t.seats, t.status
		FROM dining_tables t
		LEFT JOIN areas a ON a.id = t.area_id
		WHERE t.id = $1`
	if forUpdate {
		query += " FOR UPDATE OF t"
	}

	var (
		t      DiningTable
		status string
	)
	err := r.conn(ctx).QueryRowContext(ctx, query, id).
		Scan(&t.ID, &t.AreaID, &t.AreaName, &t.Label, &t.Seats, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, apperr.Persistence("load table", err)
	}
	t.Status = Status(status)

	return &t, nil
}

func (r *repository) SetStatus(ctx context.Context, id int64, status Status) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE dining_tables SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update table status",
			zap.String("layer", "repository"),
			zap.Int64("table_id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return apperr.Persistence("update table status", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Persistence("update table status", err)
	}
	if n == 0 {
		return ErrTableNotFound
	}
	return nil
}

func (r *repository) HasActiveOrders(ctx context.Context, tableID int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE table_id = $1 AND `+order.ActivePredicate("")+`)`,
		tableID,
	).Scan(&exists)
	if err != nil {
		return false, apperr.Persistence("check active orders", err)
	}
	return exists, nil
}

// ListAvailable lists tables without an active order, whatever their stored
// status says.
func (r *repository) ListAvailable(ctx context.Context) ([]DiningTable, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `
		SELECT t.id, t.area_id, COALESCE(a.name, ''), t.label, t.seats, t.status
		FROM dining_tables t
		LEFT JOIN areas a ON a.id = t.area_id
		WHERE NOT EXISTS (
			SELECT 1 FROM orders o
			WHERE o.table_id = t.id AND `+order.ActivePredicate("o")+`
		)
		ORDER BY a.name, t.label`)
	if err != nil {
		return nil, apperr.Persistence("list available tables", err)
	}
	defer rows.Close()

	tables := []DiningTable{}
	for rows.Next() {
		var (
			t      DiningTable
			status string
		)
		if err := rows.Scan(&t.ID, &t.AreaID, &t.AreaName, &t.Label, &t.Seats, &status); err != nil {
			return nil, apperr.Persistence("scan table", err)
		}
		t.Status = Status(status)
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list available tables", err)
	}

	return tables, nil
}
