package takeaway

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"deskgoo-pos/internal/apperr"
	"deskgoo-pos/internal/db"
	"deskgoo-pos/internal/logger"
	"deskgoo-pos/internal/order"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	FindByID(ctx context.Context, id int64) (*Takeaway, error)
	FindForUpdate(ctx context.Context, id int64) (*Takeaway, error)
	LastNumber(ctx context.Context) (string, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	Insert(ctx context.Context, t *Takeaway) error
	ListActive(ctx context.Context, day *time.Time) ([]Summary, error)
	CountOrders(ctx context.Context, id int64) (OrderCounts, error)
	MarkCompleted(ctx context.Context, id int64) error
	SoftDelete(ctx context.Context, id int64) error
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

const takeawayColumns = `id, takeaway_number, status, created_at, updated_at, deleted_at`

func scanTakeaway(row interface{ Scan(...any) error }) (*Takeaway, error) {
	var (
		t      Takeaway
		status string
	)
	if err := row.Scan(&t.ID, &t.Number, &status, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt); err != nil {
		return nil, err
	}
	t.Status = Status(status)
	return &t, nil
}

// FindByID also returns soft-deleted rows; callers decide what a deleted
// ticket means for them.
func (r *repository) FindByID(ctx context.Context, id int64) (*Takeaway, error) {
	return r.find(ctx, id, "")
}

func (r *repository) FindForUpdate(ctx context.Context, id int64) (*Takeaway, error) {
	return r.find(ctx, id, " FOR UPDATE")
}

func (r *repository) find(ctx context.Context, id int64, lock string) (*Takeaway, error) {
	query := "SELECT " + takeawayColumns + " FROM takeaways WHERE id = $1" + lock
	t, err := scanTakeaway(r.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTakeawayNotFound
	}
	if err != nil {
		return nil, apperr.Persistence("load takeaway", err)
	}
	return t, nil
}

// LastNumber is the number of the most recently inserted ticket, deleted
// ones included, or "" when there is none.
func (r *repository) LastNumber(ctx context.Context) (string, error) {
	var number string
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT takeaway_number FROM takeaways ORDER BY id DESC LIMIT 1`).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Persistence("load last takeaway number", err)
	}
	return number, nil
}

func (r *repository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM takeaways WHERE takeaway_number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, apperr.Persistence("check takeaway number", err)
	}
	return exists, nil
}

// Insert leaves unique violations unwrapped so the caller can retry with a
// fresh number.
func (r *repository) Insert(ctx context.Context, t *Takeaway) error {
	err := r.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO takeaways (takeaway_number, status, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, t.Number, t.Status).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return err
		}
		logger.FromCtx(ctx).Error("failed to insert takeaway",
			zap.String("layer", "repository"),
			zap.String("number", t.Number),
			zap.Error(err),
		)
		return apperr.Persistence("insert takeaway", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation
}

func (r *repository) ListActive(ctx context.Context, day *time.Time) ([]Summary, error) {
	query := `
		SELECT t.id, t.takeaway_number, t.status, t.created_at, t.updated_at, t.deleted_at,
			COUNT(o.id),
			COUNT(o.id) FILTER (WHERE ` + order.ActivePredicate("o") + `),
			COUNT(o.id) FILTER (WHERE o.status IN ('completed', 'paid')),
			COALESCE(SUM(o.total_amount), 0)
		FROM takeaways t
		LEFT JOIN orders o ON o.takeaway_id = t.id
		WHERE t.deleted_at IS NULL AND t.status = 'active'`

	var args []any
	if day != nil {
		query += ` AND t.created_at::date = $1::date`
		args = append(args, day.Format("2006-01-02"))
	}
	query += `
		GROUP BY t.id
		ORDER BY t.created_at DESC, t.id DESC`

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Persistence("list takeaways", err)
	}
	defer rows.Close()

	result := []Summary{}
	for rows.Next() {
		var (
			s      Summary
			status string
		)
		err := rows.Scan(
			&s.ID, &s.Number, &status, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
			&s.OrderCount, &s.ActiveOrderCount, &s.CompletedOrderCount, &s.TotalAmount,
		)
		if err != nil {
			return nil, apperr.Persistence("scan takeaway", err)
		}
		s.Status = Status(status)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list takeaways", err)
	}

	return result, nil
}

func (r *repository) CountOrders(ctx context.Context, id int64) (OrderCounts, error) {
	var c OrderCounts
	err := r.conn(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE `+order.ActivePredicate("")+`)
		FROM orders WHERE takeaway_id = $1
	`, id).Scan(&c.Total, &c.Active)
	if err != nil {
		return OrderCounts{}, apperr.Persistence("count takeaway orders", err)
	}
	return c, nil
}

func (r *repository) MarkCompleted(ctx context.Context, id int64) error {
	return r.execOne(ctx, "complete takeaway",
		`UPDATE takeaways SET status = 'completed', updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	return r.execOne(ctx, "delete takeaway",
		`UPDATE takeaways SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if n == 0 {
		return ErrTakeawayNotFound
	}
	return nil
}
