package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"deskgoo-pos/internal/apperr"
	"deskgoo-pos/internal/kitchen"
	"deskgoo-pos/internal/memstore"
	"deskgoo-pos/internal/metrics"
	"deskgoo-pos/internal/order"
	"deskgoo-pos/internal/table"
	"deskgoo-pos/internal/takeaway"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	tickets []kitchen.Ticket
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, t kitchen.Ticket) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.tickets = append(n.tickets, t)
	return nil
}

func (n *recordingNotifier) reasons() []kitchen.Reason {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]kitchen.Reason, 0, len(n.tickets))
	for _, t := range n.tickets {
		out = append(out, t.Reason)
	}
	return out
}

type fixture struct {
	store   *memstore.Store
	orders  order.Service
	engine  Service
	kitchen *recordingNotifier
	metrics *metrics.Registry

	t1, t2, t3 int64
	momo, tea  int64
}

func newFixture(t *testing.T, allowOccupied bool) *fixture {
	t.Helper()

	s := memstore.New()
	hall := s.AddArea("Main Hall")
	f := &fixture{
		store:   s,
		kitchen: &recordingNotifier{},
		metrics: metrics.NewRegistry(),
		t1:      s.AddTable(hall, "T1", 4),
		t2:      s.AddTable(hall, "T2", 4),
		t3:      s.AddTable(hall, "T3", 6),
		momo:    s.AddMenuItem("Momo"),
		tea:     s.AddMenuItem("Tea"),
	}

	resolver := table.NewResolver(s.Tables(), s.Takeaways())
	f.orders = order.NewService(s.Orders(), s.TxManager(), resolver)
	f.engine = NewService(Deps{
		Orders:        s.Orders(),
		Tables:        s.Tables(),
		Resolver:      resolver,
		Tx:            s.TxManager(),
		Kitchen:       f.kitchen,
		Metrics:       f.metrics,
		AllowOccupied: allowOccupied,
	})
	return f
}

func item(menuID int64, qty int, price int64) order.ItemInput {
	unit := decimal.NewFromInt(price)
	total := unit.Mul(decimal.NewFromInt(int64(qty)))
	return order.ItemInput{MenuItemID: menuID, Quantity: qty, UnitPrice: &unit, TotalPrice: &total}
}

func (f *fixture) open(t *testing.T, tableID int64, items ...order.ItemInput) *order.Order {
	t.Helper()
	o, err := f.orders.CreateOrder(context.Background(), order.CreateOrderInput{TableID: &tableID, Items: items})
	require.NoError(t, err)
	return o
}

func (f *fixture) tableStatus(t *testing.T, id int64) table.Status {
	t.Helper()
	tbl, err := f.store.Tables().FindByID(context.Background(), id)
	require.NoError(t, err)
	return tbl.Status
}

func (f *fixture) reload(t *testing.T, id int64) *order.Order {
	t.Helper()
	o, err := f.store.Orders().FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func assertAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got.String())
}

func assertTotalsConsistent(t *testing.T, o *order.Order) {
	t.Helper()
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.TotalPrice)
	}
	assert.True(t, o.TotalAmount.Equal(sum), "order %d total %s != items %s", o.ID, o.TotalAmount, sum)
}

func TestTransferOrder_Partial(t *testing.T) {
	ctx := context.Background()

	t.Run("Splits a line between two tables", func(t *testing.T) {
		f := newFixture(t, true)
		src := f.open(t, f.t1, item(f.momo, 5, 10))

		res, err := f.engine.TransferOrder(ctx, TransferInput{
			OrderID:    src.ID,
			NewTableID: f.t2,
			Mode:       ModePartial,
			Items:      []SelectedItem{{ItemID: src.Items[0].ID, Quantity: 2}},
		})

		require.NoError(t, err)
		assert.True(t, res.TargetCreated)
		assert.False(t, res.SourceDeleted)

		gotSrc := f.reload(t, src.ID)
		gotDst := f.reload(t, res.TargetOrder.ID)
		require.Len(t, gotSrc.Items, 1)
		require.Len(t, gotDst.Items, 1)
		assert.Equal(t, 3, gotSrc.Items[0].Quantity)
		assert.Equal(t, 2, gotDst.Items[0].Quantity)
		assertAmount(t, 30, gotSrc.TotalAmount)
		assertAmount(t, 20, gotDst.TotalAmount)
		assert.True(t, gotSrc.TotalAmount.Add(gotDst.TotalAmount).Equal(src.TotalAmount))
		assertTotalsConsistent(t, gotSrc)
		assertTotalsConsistent(t, gotDst)

		assert.Equal(t, order.TypeDineIn, gotDst.OrderType)
		assert.Equal(t, table.StatusOccupied, f.tableStatus(t, f.t1))
		assert.Equal(t, table.StatusOccupied, f.tableStatus(t, f.t2))
		assert.Equal(t, []kitchen.Reason{kitchen.ReasonPartialSource, kitchen.ReasonPartialTarget}, f.kitchen.reasons())

		srcAudit, _ := f.orders.ListAudit(ctx, src.ID)
		dstAudit, _ := f.orders.ListAudit(ctx, gotDst.ID)
		assert.Equal(t, order.AuditPartialOut, srcAudit[len(srcAudit)-1].EventType)
		assert.Equal(t, order.AuditPartialIn, dstAudit[len(dstAudit)-1].EventType)
	})

	t.Run("Too many units leaves both orders unchanged", func(t *testing.T) {
		f := newFixture(t, true)
		src := f.open(t, f.t1, item(f.momo, 5, 10))

		_, err := f.engine.TransferOrder(ctx, TransferInput{
			OrderID:    src.ID,
			NewTableID: f.t2,
			Mode:       ModePartial,
			Items:      []SelectedItem{{ItemID: src.Items[0].ID, Quantity: 6}},
		})

		assert.ErrorIs(t, err, apperr.ErrValidation)
		got := f.reload(t, src.ID)
		assert.Equal(t, 5, got.Items[0].Quantity)
		assertAmount(t, 50, got.TotalAmount)
		assert.Equal(t, table.StatusAvailable, f.tableStatus(t, f.t2))
		active, _ := f.engine.GetActiveOrders(ctx)
		assert.Len(t, active, 1)
		assert.Empty(t, f.kitchen.reasons())
	})

	t.Run("Moving everything deletes the source and frees its table", func(t *testing.T) {
		f := newFixture(t, true)
		src := f.open(t, f.t1, item(f.momo, 2, 10))

		res, err := f.engine.TransferOrder(ctx, TransferInput{
			OrderID:    src.ID,
			NewTableID: f.t2,
			Mode:       ModePartial,
			Items:      []SelectedItem{{ItemID: src.Items[0].ID, Quantity: 2}},
		})

		require.NoError(t, err)
		assert.True(t, res.SourceDeleted)
		assert.True(t, res.SourceTableFreed)
		assert.Nil(t, res.SourceOrder)
		_, err = f.store.Orders().FindByID(ctx, src.ID)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
		assert.Equal(t, table.StatusAvailable, f.tableStatus(t, f.t1))
		assertAmount(t, 20, f.reload(t, res.TargetOrder.ID).TotalAmount)

		require.Len(t, f.kitchen.tickets, 2)
		assert.Equal(t, []int64{src.ID}, f.kitchen.tickets[0].VoidedOrderIDs)
	})

	t.Run("Appends to the active order on the destination", func(t *testing.T) {
		f := newFixture(t, true)
		src := f.open(t, f.t1, item(f.momo, 3, 10), item(f.tea, 2, 3))
		dst := f.open(t, f.t2, item(f.tea, 1, 3))

		res, err := f.engine.TransferOrder(ctx, TransferInput{
			OrderID:    src.ID,
			NewTableID: f.t2,
			Mode:       ModePartial,
			Items:      []SelectedItem{{ItemID: src.Items[0].ID, Quantity: 1}},
		})

		require.NoError(t, err)
		assert.False(t, res.TargetCreated)
		assert.Equal(t, dst.ID, res.TargetOrder.ID)
		gotDst := f.reload(t, dst.ID)
		assert.Len(t, gotDst.Items, 2)
		assertAmount(t, 13, gotDst.TotalAmount)
		assertAmount(t, 26, f.reload(t, src.ID).TotalAmount)
	})

	t.Run("Unknown item", func(t *testing.T) {
		f := newFixture(t, true)
		src := f.open(t, f.t1, item(f.momo, 1, 10))

		_, err := f.engine.TransferOrder(ctx, TransferInput{
			OrderID:    src.ID,
			NewTableID: f.t2,
			Mode:       ModePartial,
			Items:      []SelectedItem{{ItemID: 9999, Quantity: 1}},
		})

		assert.ErrorIs(t, err, order.ErrItemNotFound)
	})

	t.Run("Request validation", func(t *testing.T) {
		f := newFixture(t, true)
		cases := map[string]TransferInput{
			"no items":      {OrderID: 1, NewTableID: 2, Mode: ModePartial},
			"zero quantity": {OrderID: 1, NewTableID: 2, Mode: ModePartial, Items: []SelectedItem{{ItemID: 1}}},
			"duplicate":     {OrderID: 1, NewTableID: 2, Mode: ModePartial, Items: []SelectedItem{{ItemID: 1, Quantity: 1}, {ItemID: 1, Quantity: 1}}},
			"bad mode":      {OrderID: 1, NewTableID: 2, Mode: "half"},
			"no order":      {NewTableID: 2},
			"no table":      {OrderID: 1},
		}
		for name, in := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := f.engine.TransferOrder(ctx, in)
				assert.ErrorIs(t, err, apperr.ErrValidation)
			})
		}
		assert.Equal(t, uint64(len(cases)), f.metrics.Snapshot()["transfer_rejected"])
	})
}

func TestTransferOrder_Full(t *testing.T) {
	ctx := context.Background()

	t.Run("Moves the order and swaps occupancy", func(t *testing.T) {
		f := newFixture(t, true)
		src := f.open(t, f.t1, item(f.momo, 2, 10))
		note := "window seat"

		res, err := f.engine.TransferOrder(ctx, TransferInput{OrderID: src.ID, NewTableID: f.t2, Notes: &note})

		require.NoError(t, err)
		assert.Equal(t, ModeFull, res.Mode)
		assert.True(t, res.SourceTableFreed)
		assert.Equal(t, f.t2, *f.reload(t, src.ID).TableID)
		assert.Equal(t, table.StatusAvailable, f.tableStatus(t, f.t1))
		assert.Equal(t, table.StatusOccupied, f.tableStatus(t, f.t2))
		assert.Equal(t, []kitchen.Reason{kitchen.ReasonTransfer}, f.kitchen.reasons())
		assert.Equal(t, "Main Hall / T2", f.kitchen.tickets[0].ContextLabel)

		audit, _ := f.orders.ListAudit(ctx, src.ID)
		last := audit[len(audit)-1]
		assert.Equal(t, order.AuditTransferred, last.EventType)
		assert.Contains(t, last.Detail, "window seat")
	})

	t.Run("Old table stays occupied while another order uses it", func(t *testing.T) {
		f := newFixture(t, true)
		src := f.open(t, f.t1, item(f.momo, 1, 10))
		f.open(t, f.t1, item(f.tea, 1, 3))

		res, err := f.engine.TransferOrder(ctx, TransferInput{OrderID: src.ID, NewTableID: f.t2})

		require.NoError(t, err)
		assert.False(t, res.SourceTableFreed)
		assert.Equal(t, table.StatusOccupied, f.tableStatus(t, f.t1))
	})

	t.Run("Occupied destination allowed", func(t *testing.T) {
		f := newFixture(t, true)
		src := f.open(t, f.t1, item(f.momo, 1, 10))
		occupant := f.open(t, f.t2, item(f.tea, 1, 3))

		_, err := f.engine.TransferOrder(ctx, TransferInput{OrderID: src.ID, NewTableID: f.t2})

		require.NoError(t, err)
		audit, _ := f.orders.ListAudit(ctx, src.ID)
		assert.Contains(t, audit[len(audit)-1].Detail, "already had order")
		assert.Equal(t, f.t2, *f.reload(t, occupant.ID).TableID)
	})

	t.Run("Occupied destination refused by policy", func(t *testing.T) {
		f := newFixture(t, false)
		src := f.open(t, f.t1, item(f.momo, 1, 10))
		f.open(t, f.t2, item(f.tea, 1, 3))

		_, err := f.engine.TransferOrder(ctx, TransferInput{OrderID: src.ID, NewTableID: f.t2})

		assert.ErrorIs(t, err, ErrDestinationBusy)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, f.t1, *f.reload(t, src.ID).TableID)
		assert.Equal(t, table.StatusOccupied, f.tableStatus(t, f.t1))
	})

	t.Run("Same table", func(t *testing.T) {
		f := newFixture(t, true)
		src := f.open(t, f.t1, item(f.momo, 1, 10))

		_, err := f.engine.TransferOrder(ctx, TransferInput{OrderID: src.ID, NewTableID: f.t1})

		assert.ErrorIs(t, err, ErrSameTable)
	})

	t.Run("Missing destination", func(t *testing.T) {
		f := newFixture(t, true)
		src := f.open(t, f.t1, item(f.momo, 1, 10))

		_, err := f.engine.TransferOrder(ctx, TransferInput{OrderID: src.ID, NewTableID: 9999})

		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Closed order", func(t *testing.T) {
		f := newFixture(t, true)
		src := f.open(t, f.t1, item(f.momo, 1, 10))
		_, err := f.orders.Checkout(ctx, src.ID, order.CheckoutInput{})
		require.NoError(t, err)

		_, err = f.engine.TransferOrder(ctx, TransferInput{OrderID: src.ID, NewTableID: f.t2})

		assert.ErrorIs(t, err, order.ErrOrderClosed)
	})

	t.Run("Takeaway order", func(t *testing.T) {
		f := newFixture(t, true)
		tk := &takeaway.Takeaway{Number: "T001"}
		require.NoError(t, f.store.Takeaways().Insert(ctx, tk))
		o, err := f.orders.CreateOrder(ctx, order.CreateOrderInput{TakeawayID: &tk.ID, Items: []order.ItemInput{item(f.tea, 1, 3)}})
		require.NoError(t, err)

		_, err = f.engine.TransferOrder(ctx, TransferInput{OrderID: o.ID, NewTableID: f.t2})

		assert.ErrorIs(t, err, ErrNotDineIn)
	})

	t.Run("Kitchen failure does not undo the transfer", func(t *testing.T) {
		f := newFixture(t, true)
		f.kitchen.err = errors.New("printer jammed")
		src := f.open(t, f.t1, item(f.momo, 1, 10))

		_, err := f.engine.TransferOrder(ctx, TransferInput{OrderID: src.ID, NewTableID: f.t2})

		require.NoError(t, err)
		assert.Equal(t, f.t2, *f.reload(t, src.ID).TableID)
		assert.Equal(t, uint64(1), f.metrics.Snapshot()["kitchen_notify_failures"])
	})
}

func TestMergeOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("Unions lines by menu item and price", func(t *testing.T) {
		f := newFixture(t, true)
		a := f.open(t, f.t1, item(f.momo, 2, 10))
		b := f.open(t, f.t2, item(f.momo, 1, 10), item(f.tea, 1, 5))

		res, err := f.engine.MergeOrders(ctx, MergeInput{SourceOrderIDs: []int64{a.ID, b.ID}, TargetTableID: f.t3})

		require.NoError(t, err)
		merged := f.reload(t, res.Order.ID)
		require.Len(t, merged.Items, 2)
		assert.Equal(t, f.momo, merged.Items[0].MenuItemID)
		assert.Equal(t, 3, merged.Items[0].Quantity)
		assertAmount(t, 30, merged.Items[0].TotalPrice)
		assert.Equal(t, f.tea, merged.Items[1].MenuItemID)
		assert.Equal(t, 1, merged.Items[1].Quantity)
		assertAmount(t, 5, merged.Items[1].TotalPrice)
		assertAmount(t, 35, merged.TotalAmount)
		assert.Equal(t, f.t3, *merged.TableID)

		for _, id := range []int64{a.ID, b.ID} {
			_, err := f.store.Orders().FindByID(ctx, id)
			assert.ErrorIs(t, err, order.ErrOrderNotFound)
		}
		assert.Equal(t, table.StatusOccupied, f.tableStatus(t, f.t3))
		assert.Equal(t, table.StatusAvailable, f.tableStatus(t, f.t1))
		assert.Equal(t, table.StatusAvailable, f.tableStatus(t, f.t2))
		assert.ElementsMatch(t, []int64{f.t1, f.t2}, res.FreedTableIDs)

		require.Len(t, f.kitchen.tickets, 1)
		assert.Equal(t, kitchen.ReasonMerge, f.kitchen.tickets[0].Reason)
		assert.Equal(t, []int64{a.ID, b.ID}, f.kitchen.tickets[0].VoidedOrderIDs)

		audit, _ := f.orders.ListAudit(ctx, merged.ID)
		assert.Equal(t, order.AuditMerged, audit[0].EventType)
		srcAudit, _ := f.orders.ListAudit(ctx, a.ID)
		assert.Equal(t, order.AuditMergedInto, srcAudit[len(srcAudit)-1].EventType)
	})

	t.Run("Different prices stay separate lines", func(t *testing.T) {
		f := newFixture(t, true)
		a := f.open(t, f.t1, item(f.momo, 1, 10))
		b := f.open(t, f.t2, item(f.momo, 1, 12))

		res, err := f.engine.MergeOrders(ctx, MergeInput{SourceOrderIDs: []int64{a.ID, b.ID}, TargetTableID: f.t1})

		require.NoError(t, err)
		merged := f.reload(t, res.Order.ID)
		assert.Len(t, merged.Items, 2)
		assertAmount(t, 22, merged.TotalAmount)
		assert.Equal(t, table.StatusOccupied, f.tableStatus(t, f.t1))
		assert.Equal(t, []int64{f.t2}, res.FreedTableIDs)
	})

	t.Run("Closed source rolls everything back", func(t *testing.T) {
		f := newFixture(t, true)
		a := f.open(t, f.t1, item(f.momo, 1, 10))
		b := f.open(t, f.t2, item(f.tea, 1, 5))
		_, err := f.orders.UpdateStatus(ctx, b.ID, order.StatusCancelled)
		require.NoError(t, err)

		_, err = f.engine.MergeOrders(ctx, MergeInput{SourceOrderIDs: []int64{a.ID, b.ID}, TargetTableID: f.t3})

		assert.ErrorIs(t, err, order.ErrOrderClosed)
		assert.Len(t, f.reload(t, a.ID).Items, 1)
		assert.Equal(t, table.StatusAvailable, f.tableStatus(t, f.t3))
		assert.Empty(t, f.kitchen.reasons())
	})

	t.Run("Missing source", func(t *testing.T) {
		f := newFixture(t, true)
		a := f.open(t, f.t1, item(f.momo, 1, 10))

		_, err := f.engine.MergeOrders(ctx, MergeInput{SourceOrderIDs: []int64{a.ID, 9999}, TargetTableID: f.t3})

		assert.ErrorIs(t, err, order.ErrOrderNotFound)
		f.reload(t, a.ID)
	})

	t.Run("Request validation", func(t *testing.T) {
		f := newFixture(t, true)

		_, err := f.engine.MergeOrders(ctx, MergeInput{SourceOrderIDs: []int64{1}, TargetTableID: f.t3})
		assert.ErrorIs(t, err, ErrTooFewSources)

		_, err = f.engine.MergeOrders(ctx, MergeInput{SourceOrderIDs: []int64{1, 1}, TargetTableID: f.t3})
		assert.ErrorIs(t, err, ErrDuplicateSource)

		_, err = f.engine.MergeOrders(ctx, MergeInput{SourceOrderIDs: []int64{1, 2}})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestReprintTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("Formats the current order", func(t *testing.T) {
		f := newFixture(t, true)
		o := f.open(t, f.t1, item(f.momo, 2, 10))

		ticket, err := f.engine.ReprintTicket(ctx, o.ID, "")

		require.NoError(t, err)
		assert.Equal(t, kitchen.ReasonReprint, ticket.Reason)
		assert.Equal(t, "Main Hall / T1", ticket.ContextLabel)
		require.Len(t, ticket.Items, 1)
		assert.Equal(t, "Momo", ticket.Items[0].Name)
		assertAmount(t, 20, ticket.TotalAmount)
		assert.NotEmpty(t, ticket.TicketNumber)

		audit, _ := f.orders.ListAudit(ctx, o.ID)
		assert.Equal(t, order.AuditTicketReprinted, audit[len(audit)-1].EventType)
	})

	t.Run("Missing order", func(t *testing.T) {
		f := newFixture(t, true)
		_, err := f.engine.ReprintTicket(ctx, 9999, kitchen.ReasonReprint)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Sink failure is returned", func(t *testing.T) {
		f := newFixture(t, true)
		o := f.open(t, f.t1, item(f.momo, 1, 10))
		f.kitchen.err = errors.New("offline")

		_, err := f.engine.ReprintTicket(ctx, o.ID, kitchen.ReasonReprint)

		assert.Error(t, err)
	})
}

func TestOccupancyFollowsOrderLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("Checkout frees the table", func(t *testing.T) {
		f := newFixture(t, true)
		o := f.open(t, f.t1, item(f.momo, 1, 10))
		assert.Equal(t, table.StatusOccupied, f.tableStatus(t, f.t1))

		_, err := f.orders.Checkout(ctx, o.ID, order.CheckoutInput{})

		require.NoError(t, err)
		assert.Equal(t, table.StatusAvailable, f.tableStatus(t, f.t1))
	})

	t.Run("Removing the last item deletes the order", func(t *testing.T) {
		f := newFixture(t, true)
		o := f.open(t, f.t1, item(f.momo, 1, 10))

		res, err := f.orders.RemoveItem(ctx, o.ID, o.Items[0].ID)

		require.NoError(t, err)
		assert.True(t, res.OrderDeleted)
		assert.True(t, res.TableFreed)
		assert.Equal(t, table.StatusAvailable, f.tableStatus(t, f.t1))
		_, err = f.store.Orders().FindByID(ctx, o.ID)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})

	t.Run("Both contexts rejected", func(t *testing.T) {
		f := newFixture(t, true)
		tk := int64(1)
		_, err := f.orders.CreateOrder(ctx, order.CreateOrderInput{TableID: &f.t1, TakeawayID: &tk, Items: []order.ItemInput{item(f.momo, 1, 10)}})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		_, err = f.orders.CreateOrder(ctx, order.CreateOrderInput{Items: []order.ItemInput{item(f.momo, 1, 10)}})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	o := f.open(t, f.t1, item(f.momo, 1, 10), item(f.tea, 2, 3))

	active, err := f.engine.GetActiveOrders(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "T1", *active[0].TableLabel)
	assert.Equal(t, "Main Hall", *active[0].AreaName)
	assert.Equal(t, 2, active[0].ItemCount)

	byTable, err := f.engine.GetOrderByTable(ctx, f.t1)
	require.NoError(t, err)
	assert.Equal(t, o.ID, byTable.ID)
	assert.Equal(t, "Main Hall / T1", byTable.ContextLabel)

	_, err = f.engine.GetOrderByTable(ctx, f.t2)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	tables, err := f.engine.ListAvailableTables(ctx)
	require.NoError(t, err)
	var labels []string
	for _, tbl := range tables {
		labels = append(labels, tbl.Label)
	}
	assert.Equal(t, []string{"T2", "T3"}, labels)
}

func TestMergeLines(t *testing.T) {
	ten := decimal.NewFromInt(10)
	sources := []*order.Order{
		{Items: []order.OrderItem{{MenuItemID: 1, Quantity: 2, UnitPrice: ten, TotalPrice: decimal.NewFromInt(20)}}},
		{Items: []order.OrderItem{
			{MenuItemID: 2, Quantity: 1, UnitPrice: decimal.NewFromInt(5), TotalPrice: decimal.NewFromInt(5)},
			{MenuItemID: 1, Quantity: 1, UnitPrice: decimal.RequireFromString("10.00"), TotalPrice: ten},
		}},
	}

	lines := mergeLines(sources)

	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].MenuItemID)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.True(t, lines[0].TotalPrice.Equal(decimal.NewFromInt(30)))
}
