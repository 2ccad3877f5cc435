package menu

import (
	"context"

	"deskgoo-pos/internal/logger"

	"go.uber.org/zap"
)

// Page is one slice of a listing plus the unpaged total.
type Page[T any] struct {
	Rows  []T
	Total int64
	Limit int
	Page  int
}

// Service is the read side of the menu the till picks items from.
type Service interface {
	ListCategories(ctx context.Context, search string, limit, page int) (*Page[Category], error)
	ListItems(ctx context.Context, f ItemFilter) (*Page[Item], error)
	GetItem(ctx context.Context, id int64) (*Item, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListCategories(ctx context.Context, search string, limit, page int) (*Page[Category], error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListCategories"),
	)

	limit, page, offset := normalize(limit, page)
	rows, total, err := s.repo.ListCategories(ctx, search, limit, offset)
	if err != nil {
		log.Error("failed to list categories", zap.Error(err))
		return nil, err
	}

	return &Page[Category]{Rows: rows, Total: total, Limit: limit, Page: page}, nil
}

func (s *service) ListItems(ctx context.Context, f ItemFilter) (*Page[Item], error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListItems"),
	)

	if f.CategoryID != nil && *f.CategoryID <= 0 {
		return nil, ErrInvalidCategoryID
	}

	limit, page, offset := normalize(f.Limit, f.Page)
	rows, total, err := s.repo.ListItems(ctx, f, limit, offset)
	if err != nil {
		log.Error("failed to list menu items", zap.Error(err))
		return nil, err
	}

	log.Debug("ListItems success", zap.Int("count", len(rows)), zap.Int64("total", total))
	return &Page[Item]{Rows: rows, Total: total, Limit: limit, Page: page}, nil
}

func (s *service) GetItem(ctx context.Context, id int64) (*Item, error) {
	if id <= 0 {
		return nil, ErrInvalidItemID
	}
	return s.repo.FindItem(ctx, id)
}
