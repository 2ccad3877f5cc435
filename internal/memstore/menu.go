package memstore

import (
	"context"
	"sort"
	"strings"

	"deskgoo-pos/internal/menu"
)

type menuRepo struct {
	s *Store
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func contains(name, search string) bool {
	return search == "" || strings.Contains(strings.ToLower(name), strings.ToLower(search))
}

func (r *menuRepo) ListCategories(ctx context.Context, search string, limit, offset int) ([]menu.Category, int64, error) {
	defer r.s.lock(ctx)()

	counts := map[int64]int{}
	for _, it := range r.s.data.menu {
		if it.CategoryID != nil {
			counts[*it.CategoryID]++
		}
	}

	all := []menu.Category{}
	for _, c := range r.s.data.categories {
		if !contains(c.Name, search) {
			continue
		}
		c.ItemCount = counts[c.ID]
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	return page(all, limit, offset), int64(len(all)), nil
}

func (r *menuRepo) ListItems(ctx context.Context, f menu.ItemFilter, limit, offset int) ([]menu.Item, int64, error) {
	defer r.s.lock(ctx)()

	all := []menu.Item{}
	for _, it := range r.s.data.menu {
		if f.CategoryID != nil && (it.CategoryID == nil || *it.CategoryID != *f.CategoryID) {
			continue
		}
		if f.AvailableOnly && !it.Available {
			continue
		}
		if !contains(it.Name, f.Search) {
			continue
		}
		all = append(all, it)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})

	return page(all, limit, offset), int64(len(all)), nil
}

func (r *menuRepo) FindItem(ctx context.Context, id int64) (*menu.Item, error) {
	defer r.s.lock(ctx)()

	it, ok := r.s.data.menu[id]
	if !ok {
		return nil, menu.ErrItemNotFound
	}
	return &it, nil
}
