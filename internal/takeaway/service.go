package takeaway

import (
	"context"
	"time"

	"deskgoo-pos/internal/db"
	"deskgoo-pos/internal/logger"
	"deskgoo-pos/internal/order"

	"go.uber.org/zap"
)

const (
	// maxNumberProbes bounds the search for an unused number before falling
	// back to a time-based one.
	maxNumberProbes = 1000
	maxInsertTries  = 3
)

// OrderLister is the slice of the order store needed to show a ticket.
type OrderLister interface {
	List(ctx context.Context, f order.ListFilter) ([]order.Order, error)
}

type Service interface {
	Create(ctx context.Context) (*Takeaway, error)
	ListActive(ctx context.Context, day string) ([]Summary, error)
	Get(ctx context.Context, id int64) (*Detail, error)
	Complete(ctx context.Context, id int64) (*Takeaway, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	repo   Repository
	orders OrderLister
	tx     db.TxManager
	now    func() time.Time
}

func NewService(repo Repository, orders OrderLister, tx db.TxManager) Service {
	return &service{
		repo:   repo,
		orders: orders,
		tx:     tx,
		now:    time.Now,
	}
}

func (s *service) Create(ctx context.Context) (*Takeaway, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateTakeaway"),
	)
	log.Info("CreateTakeaway started")

	var lastErr error
	for attempt := 1; attempt <= maxInsertTries; attempt++ {
		number, err := s.allocateNumber(ctx)
		if err != nil {
			log.Error("failed to allocate takeaway number", zap.Error(err))
			return nil, err
		}

		t := &Takeaway{Number: number, Status: StatusActive}
		err = s.repo.Insert(ctx, t)
		if err == nil {
			log.Info("CreateTakeaway success",
				zap.Int64("takeaway_id", t.ID),
				zap.String("number", t.Number),
			)
			return t, nil
		}
		if !isUniqueViolation(err) {
			log.Error("failed to insert takeaway", zap.Error(err))
			return nil, err
		}

		log.Warn("takeaway number taken concurrently, retrying",
			zap.String("number", number),
			zap.Int("attempt", attempt),
		)
		lastErr = err
	}

	return nil, lastErr
}

// allocateNumber continues from the newest ticket and skips any number that
// already exists, deleted tickets included, so numbers are never reused.
func (s *service) allocateNumber(ctx context.Context) (string, error) {
	last, err := s.repo.LastNumber(ctx)
	if err != nil {
		return "", err
	}

	candidate := nextNumber(last)
	for i := 0; i < maxNumberProbes; i++ {
		exists, err := s.repo.NumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = nextNumber(candidate)
	}

	return "T" + s.now().Format("150405"), nil
}

func (s *service) ListActive(ctx context.Context, day string) ([]Summary, error) {
	var filter *time.Time
	if day != "" {
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, ErrInvalidDate
		}
		filter = &d
	}
	return s.repo.ListActive(ctx, filter)
}

func (s *service) Get(ctx context.Context, id int64) (*Detail, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Deleted() {
		return nil, ErrTakeawayNotFound
	}

	orders, err := s.orders.List(ctx, order.ListFilter{TakeawayID: &t.ID})
	if err != nil {
		return nil, err
	}

	return &Detail{Takeaway: *t, Orders: orders}, nil
}

func (s *service) Complete(ctx context.Context, id int64) (*Takeaway, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CompleteTakeaway"),
		zap.Int64("takeaway_id", id),
	)

	var t *Takeaway
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.repo.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Deleted() {
			return ErrTakeawayNotFound
		}
		if t.Status == StatusCompleted {
			return nil
		}

		counts, err := s.repo.CountOrders(ctx, id)
		if err != nil {
			return err
		}
		if counts.Active > 0 {
			return ErrTakeawayHasActiveOrders
		}

		if err := s.repo.MarkCompleted(ctx, id); err != nil {
			return err
		}
		t.Status = StatusCompleted
		return nil
	})
	if err != nil {
		log.Warn("failed to complete takeaway", zap.Error(err))
		return nil, err
	}

	log.Info("CompleteTakeaway success")
	return t, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "DeleteTakeaway"),
		zap.Int64("takeaway_id", id),
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Deleted() {
			return ErrTakeawayNotFound
		}

		counts, err := s.repo.CountOrders(ctx, id)
		if err != nil {
			return err
		}
		if counts.Total > 0 {
			return ErrTakeawayHasOrders
		}

		return s.repo.SoftDelete(ctx, id)
	})
	if err != nil {
		log.Warn("failed to delete takeaway", zap.Error(err))
		return err
	}

	log.Info("DeleteTakeaway success")
	return nil
}
