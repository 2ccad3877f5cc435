package memstore

import (
	"context"
	"sort"

	"deskgoo-pos/internal/table"
)

type tableRepo struct {
	s *Store
}

var _ table.Repository = (*tableRepo)(nil)

func (r *tableRepo) FindByID(ctx context.Context, id int64) (*table.DiningTable, error) {
	defer r.s.lock(ctx)()
	return r.find(id)
}

func (r *tableRepo) FindForUpdate(ctx context.Context, id int64) (*table.DiningTable, error) {
	defer r.s.lock(ctx)()
	return r.find(id)
}

func (r *tableRepo) find(id int64) (*table.DiningTable, error) {
	t, ok := r.s.data.tables[id]
	if !ok {
		return nil, table.ErrTableNotFound
	}
	t.AreaName = r.s.data.areas[t.AreaID].name
	return &t, nil
}

func (r *tableRepo) SetStatus(ctx context.Context, id int64, status table.Status) error {
	defer r.s.lock(ctx)()

	t, ok := r.s.data.tables[id]
	if !ok {
		return table.ErrTableNotFound
	}
	t.Status = status
	r.s.data.tables[id] = t
	return nil
}

func (r *tableRepo) HasActiveOrders(ctx context.Context, tableID int64) (bool, error) {
	defer r.s.lock(ctx)()
	return r.busy(tableID), nil
}

func (r *tableRepo) busy(tableID int64) bool {
	for _, o := range r.s.data.orders {
		if o.TableID != nil && *o.TableID == tableID && o.Status.IsActive() {
			return true
		}
	}
	return false
}

func (r *tableRepo) ListAvailable(ctx context.Context) ([]table.DiningTable, error) {
	defer r.s.lock(ctx)()

	tables := []table.DiningTable{}
	for id, t := range r.s.data.tables {
		if r.busy(id) {
			continue
		}
		t.AreaName = r.s.data.areas[t.AreaID].name
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].AreaName != tables[j].AreaName {
			return tables[i].AreaName < tables[j].AreaName
		}
		return tables[i].Label < tables[j].Label
	})
	return tables, nil
}
