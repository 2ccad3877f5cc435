// Package memstore is an in-memory record store behind the same repository
// interfaces as the SQL implementation. It backs DB_DRIVER=memory and the
// engine tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"deskgoo-pos/internal/db"
	"deskgoo-pos/internal/menu"
	"deskgoo-pos/internal/order"
	"deskgoo-pos/internal/table"
	"deskgoo-pos/internal/takeaway"

	"github.com/shopspring/decimal"
)

type area struct {
	id   int64
	name string
}

type state struct {
	areas      map[int64]area
	tables     map[int64]table.DiningTable
	categories map[int64]menu.Category
	menu       map[int64]menu.Item
	orders     map[int64]order.Order
	items      map[int64]order.OrderItem
	takeaways  map[int64]takeaway.Takeaway
	audit      []order.AuditEntry
	seq        int64
}

func newState() *state {
	return &state{
		areas:      make(map[int64]area),
		tables:     make(map[int64]table.DiningTable),
		categories: make(map[int64]menu.Category),
		menu:       make(map[int64]menu.Item),
		orders:     make(map[int64]order.Order),
		items:      make(map[int64]order.OrderItem),
		takeaways:  make(map[int64]takeaway.Takeaway),
	}
}

// clone copies every map. Pointer fields inside records are shared, which
// is safe because records are always replaced, never patched in place.
func (st *state) clone() *state {
	c := &state{
		areas:      make(map[int64]area, len(st.areas)),
		tables:     make(map[int64]table.DiningTable, len(st.tables)),
		categories: make(map[int64]menu.Category, len(st.categories)),
		menu:       make(map[int64]menu.Item, len(st.menu)),
		orders:     make(map[int64]order.Order, len(st.orders)),
		items:      make(map[int64]order.OrderItem, len(st.items)),
		takeaways:  make(map[int64]takeaway.Takeaway, len(st.takeaways)),
		audit:      append([]order.AuditEntry(nil), st.audit...),
		seq:        st.seq,
	}
	for k, v := range st.areas {
		c.areas[k] = v
	}
	for k, v := range st.tables {
		c.tables[k] = v
	}
	for k, v := range st.categories {
		c.categories[k] = v
	}
	for k, v := range st.menu {
		c.menu[k] = v
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	for k, v := range st.takeaways {
		c.takeaways[k] = v
	}
	return c
}

func (st *state) nextID() int64 {
	st.seq++
	return st.seq
}

// Store holds all records. Every operation runs under txMu, so a
// transaction sees no concurrent writers and a failed one is undone by
// restoring the snapshot taken when it began.
type Store struct {
	txMu sync.Mutex
	data *state
	now  func() time.Time
}

func New() *Store {
	return &Store{data: newState(), now: time.Now}
}

type txMarker struct{}

func (s *Store) inTx(ctx context.Context) bool {
	m, ok := ctx.Value(txMarker{}).(*Store)
	return ok && m == s
}

// lock serialises a single operation unless ctx already holds the store's
// transaction.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txMarker{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) TxManager() db.TxManager {
	return s
}

func (s *Store) Orders() order.Repository {
	return &orderRepo{s: s}
}

func (s *Store) Tables() table.Repository {
	return &tableRepo{s: s}
}

func (s *Store) Menu() menu.Repository {
	return &menuRepo{s: s}
}

func (s *Store) Takeaways() takeaway.Repository {
	return &takeawayRepo{s: s}
}

func (s *Store) AddArea(name string) int64 {
	defer s.lock(context.Background())()
	id := s.data.nextID()
	s.data.areas[id] = area{id: id, name: name}
	return id
}

// AddTable registers an available table. areaID may be zero.
func (s *Store) AddTable(areaID int64, label string, seats int) int64 {
	defer s.lock(context.Background())()
	id := s.data.nextID()
	s.data.tables[id] = table.DiningTable{
		ID:     id,
		AreaID: areaID,
		Label:  label,
		Seats:  seats,
		Status: table.StatusAvailable,
	}
	return id
}

func (s *Store) AddCategory(name string) int64 {
	defer s.lock(context.Background())()
	id := s.data.nextID()
	s.data.categories[id] = menu.Category{ID: id, Name: name}
	return id
}

// AddMenuItem adds an uncategorised, available item with no list price.
func (s *Store) AddMenuItem(name string) int64 {
	return s.AddPricedItem(0, name, decimal.Zero)
}

// AddPricedItem adds an available item; categoryID 0 leaves it
// uncategorised.
func (s *Store) AddPricedItem(categoryID int64, name string, price decimal.Decimal) int64 {
	defer s.lock(context.Background())()
	id := s.data.nextID()
	it := menu.Item{ID: id, Name: name, Price: price, Available: true}
	if c, ok := s.data.categories[categoryID]; ok {
		it.CategoryID = &c.ID
		it.CategoryName = c.Name
	}
	s.data.menu[id] = it
	return id
}

func (s *Store) SetItemAvailable(id int64, available bool) {
	defer s.lock(context.Background())()
	if it, ok := s.data.menu[id]; ok {
		it.Available = available
		s.data.menu[id] = it
	}
}

// SeedDemo lays out a small floor and menu for the memory driver.
func (s *Store) SeedDemo() {
	hall := s.AddArea("Main Hall")
	terrace := s.AddArea("Terrace")
	for i, label := range []string{"T1", "T2", "T3", "T4"} {
		s.AddTable(hall, label, 2+2*(i%2))
	}
	for _, label := range []string{"R1", "R2"} {
		s.AddTable(terrace, label, 6)
	}

	food := s.AddCategory("Food")
	drinks := s.AddCategory("Drinks")
	s.AddPricedItem(food, "Chicken Momo", decimal.NewFromInt(10))
	s.AddPricedItem(food, "Veg Chowmein", decimal.NewFromInt(8))
	s.AddPricedItem(food, "Thukpa", decimal.NewFromInt(9))
	s.AddPricedItem(drinks, "Masala Tea", decimal.RequireFromString("2.50"))
	s.AddPricedItem(drinks, "Lassi", decimal.RequireFromString("3.50"))
}
