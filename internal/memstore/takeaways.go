package memstore

import (
	"context"
	"sort"
	"time"

	"deskgoo-pos/internal/takeaway"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type takeawayRepo struct {
	s *Store
}

var _ takeaway.Repository = (*takeawayRepo)(nil)

func (r *takeawayRepo) FindByID(ctx context.Context, id int64) (*takeaway.Takeaway, error) {
	defer r.s.lock(ctx)()
	return r.find(id)
}

func (r *takeawayRepo) FindForUpdate(ctx context.Context, id int64) (*takeaway.Takeaway, error) {
	defer r.s.lock(ctx)()
	return r.find(id)
}

func (r *takeawayRepo) find(id int64) (*takeaway.Takeaway, error) {
	t, ok := r.s.data.takeaways[id]
	if !ok {
		return nil, takeaway.ErrTakeawayNotFound
	}
	return &t, nil
}

// LastNumber is the number of the most recently inserted ticket, deleted
// ones included.
func (r *takeawayRepo) LastNumber(ctx context.Context) (string, error) {
	defer r.s.lock(ctx)()

	var (
		lastID int64
		number string
	)
	for id, t := range r.s.data.takeaways {
		if id > lastID {
			lastID, number = id, t.Number
		}
	}
	return number, nil
}

func (r *takeawayRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	defer r.s.lock(ctx)()
	return r.exists(number), nil
}

func (r *takeawayRepo) exists(number string) bool {
	for _, t := range r.s.data.takeaways {
		if t.Number == number {
			return true
		}
	}
	return false
}

// Insert rejects a reused number the way the unique index does.
func (r *takeawayRepo) Insert(ctx context.Context, t *takeaway.Takeaway) error {
	defer r.s.lock(ctx)()

	if r.exists(t.Number) {
		return &pq.Error{Code: takeaway.PgUniqueViolation, Message: "duplicate key value violates unique constraint"}
	}
	now := r.s.now()
	t.ID = r.s.data.nextID()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Status == "" {
		t.Status = takeaway.StatusActive
	}
	r.s.data.takeaways[t.ID] = *t
	return nil
}

func (r *takeawayRepo) ListActive(ctx context.Context, day *time.Time) ([]takeaway.Summary, error) {
	defer r.s.lock(ctx)()

	result := []takeaway.Summary{}
	for _, t := range r.s.data.takeaways {
		if t.Deleted() || t.Status != takeaway.StatusActive {
			continue
		}
		if day != nil && t.CreatedAt.Format("2006-01-02") != day.Format("2006-01-02") {
			continue
		}

		sum := takeaway.Summary{Takeaway: t, TotalAmount: decimal.Zero}
		for _, o := range r.s.data.orders {
			if o.TakeawayID == nil || *o.TakeawayID != t.ID {
				continue
			}
			sum.OrderCount++
			if o.Status.IsActive() {
				sum.ActiveOrderCount++
			}
			if o.Status.IsCompleted() {
				sum.CompletedOrderCount++
			}
			sum.TotalAmount = sum.TotalAmount.Add(o.TotalAmount)
		}
		result = append(result, sum)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *takeawayRepo) CountOrders(ctx context.Context, id int64) (takeaway.OrderCounts, error) {
	defer r.s.lock(ctx)()

	var c takeaway.OrderCounts
	for _, o := range r.s.data.orders {
		if o.TakeawayID == nil || *o.TakeawayID != id {
			continue
		}
		c.Total++
		if o.Status.IsActive() {
			c.Active++
		}
	}
	return c, nil
}

func (r *takeawayRepo) MarkCompleted(ctx context.Context, id int64) error {
	return r.update(ctx, id, func(t *takeaway.Takeaway) {
		t.Status = takeaway.StatusCompleted
	})
}

func (r *takeawayRepo) SoftDelete(ctx context.Context, id int64) error {
	return r.update(ctx, id, func(t *takeaway.Takeaway) {
		now := r.s.now()
		t.DeletedAt = &now
	})
}

func (r *takeawayRepo) update(ctx context.Context, id int64, fn func(t *takeaway.Takeaway)) error {
	defer r.s.lock(ctx)()

	t, ok := r.s.data.takeaways[id]
	if !ok || t.Deleted() {
		return takeaway.ErrTakeawayNotFound
	}
	fn(&t)
	t.UpdatedAt = r.s.now()
	r.s.data.takeaways[id] = t
	return nil
}
