package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"deskgoo-pos/internal/kitchen"
	"deskgoo-pos/internal/memstore"
	"deskgoo-pos/internal/menu"
	"deskgoo-pos/internal/metrics"
	"deskgoo-pos/internal/order"
	"deskgoo-pos/internal/table"
	"deskgoo-pos/internal/takeaway"
	"deskgoo-pos/internal/transfer"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sink struct {
	mu      sync.Mutex
	tickets []kitchen.Ticket
}

func (s *sink) Notify(_ context.Context, t kitchen.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = append(s.tickets, t)
	return nil
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

type server struct {
	router  *gin.Engine
	kitchen *sink
	metrics *metrics.Registry

	t1, t2, t3 int64
	momo, tea  int64
	drinks     int64
	store      *memstore.Store
}

func newServer(t *testing.T) *server {
	t.Helper()

	s := memstore.New()
	hall := s.AddArea("Main Hall")
	drinks := s.AddCategory("Drinks")
	srv := &server{
		kitchen: &sink{},
		metrics: metrics.NewRegistry(),
		t1:      s.AddTable(hall, "T1", 4),
		t2:      s.AddTable(hall, "T2", 4),
		t3:      s.AddTable(hall, "T3", 2),
		momo:    s.AddMenuItem("Momo"),
		tea:     s.AddPricedItem(drinks, "Tea", decimal.NewFromInt(3)),
		drinks:  drinks,
		store:   s,
	}

	resolver := table.NewResolver(s.Tables(), s.Takeaways())
	orders := order.NewService(s.Orders(), s.TxManager(), resolver)
	h := NewHandler(Deps{
		Orders:    orders,
		Takeaways: takeaway.NewService(s.Takeaways(), s.Orders(), s.TxManager()),
		Transfers: transfer.NewService(transfer.Deps{
			Orders:        s.Orders(),
			Tables:        s.Tables(),
			Resolver:      resolver,
			Tx:            s.TxManager(),
			Kitchen:       srv.kitchen,
			Metrics:       srv.metrics,
			AllowOccupied: true,
		}),
		Menu:    menu.NewService(s.Menu()),
		Metrics: srv.metrics,
	})
	srv.router = NewRouter(h, nil)
	return srv
}

func (s *server) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func line(menuID int64, qty int, price string) map[string]any {
	total := decimal.RequireFromString(price).Mul(decimal.NewFromInt(int64(qty)))
	return map[string]any{"menu_item_id": menuID, "quantity": qty, "unit_price": price, "total_price": total.String()}
}

func (s *server) createDineIn(t *testing.T, tableID int64, items ...map[string]any) OrderView {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/orders", map[string]any{"table_id": tableID, "items": items})
	require.Equal(t, http.StatusCreated, code, env.Error)
	return decode[OrderView](t, env)
}

func TestHealth(t *testing.T) {
	srv := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestOrderEndpoints(t *testing.T) {
	t.Run("Create and fetch", func(t *testing.T) {
		srv := newServer(t)

		o := srv.createDineIn(t, srv.t1, line(srv.momo, 2, "10"), line(srv.tea, 1, "5"))
		assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(25)))
		assert.Equal(t, "dine_in", o.OrderType)

		code, env := srv.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", o.ID), nil)
		require.Equal(t, http.StatusOK, code)
		got := decode[OrderView](t, env)
		assert.Equal(t, "T1", got.ContextLabel)
		assert.Len(t, got.Items, 2)
	})

	t.Run("Missing items fails validation", func(t *testing.T) {
		srv := newServer(t)

		code, env := srv.do(t, http.MethodPost, "/orders", map[string]any{"table_id": srv.t1})

		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, env.Success)
		assert.Equal(t, "required", env.Fields["CreateOrderRequest.items"])
	})

	t.Run("Negative unit price", func(t *testing.T) {
		srv := newServer(t)

		code, env := srv.do(t, http.MethodPost, "/orders", map[string]any{
			"table_id": srv.t1,
			"items":    []any{line(srv.momo, 1, "-1")},
		})

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "gte0", env.Fields["CreateOrderRequest.items[0].unit_price"])
	})

	t.Run("Quantity defaults to one", func(t *testing.T) {
		srv := newServer(t)

		o := srv.createDineIn(t, srv.t1, map[string]any{"menu_item_id": srv.momo, "unit_price": "10", "total_price": "10"})

		require.Len(t, o.Items, 1)
		assert.Equal(t, 1, o.Items[0].Quantity)
		assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(10)))
	})

	t.Run("Missing total price", func(t *testing.T) {
		srv := newServer(t)

		code, env := srv.do(t, http.MethodPost, "/orders", map[string]any{
			"table_id": srv.t1,
			"items":    []any{map[string]any{"menu_item_id": srv.momo, "quantity": 2, "unit_price": "10"}},
		})

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "required", env.Fields["CreateOrderRequest.items[0].total_price"])
	})

	t.Run("Sub-cent price", func(t *testing.T) {
		srv := newServer(t)

		code, env := srv.do(t, http.MethodPost, "/orders", map[string]any{
			"table_id": srv.t1,
			"items":    []any{line(srv.momo, 3, "3.333")},
		})

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, env.Error, "2 decimal places")
	})

	t.Run("Both contexts", func(t *testing.T) {
		srv := newServer(t)

		code, env := srv.do(t, http.MethodPost, "/orders", map[string]any{
			"table_id":    srv.t1,
			"takeaway_id": 1,
			"items":       []any{line(srv.momo, 1, "10")},
		})

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, order.ErrContextBoth.Message, env.Error)
	})

	t.Run("Unknown order", func(t *testing.T) {
		srv := newServer(t)

		code, env := srv.do(t, http.MethodGet, "/orders/999", nil)

		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "order not found", env.Error)
	})

	t.Run("Bad path id", func(t *testing.T) {
		srv := newServer(t)

		code, env := srv.do(t, http.MethodGet, "/orders/abc", nil)

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, env.Error, "id")
	})

	t.Run("Add items and update quantity", func(t *testing.T) {
		srv := newServer(t)
		o := srv.createDineIn(t, srv.t1, line(srv.momo, 1, "10"))

		code, env := srv.do(t, http.MethodPost, fmt.Sprintf("/orders/%d/items", o.ID), map[string]any{
			"items": []any{line(srv.tea, 2, "5")},
		})
		require.Equal(t, http.StatusOK, code, env.Error)
		assert.True(t, decode[OrderView](t, env).TotalAmount.Equal(decimal.NewFromInt(20)))

		code, env = srv.do(t, http.MethodPut, fmt.Sprintf("/orders/%d/items/%d", o.ID, o.Items[0].ID), map[string]any{"quantity": 3})
		require.Equal(t, http.StatusOK, code, env.Error)
		item := decode[OrderItemView](t, env)
		assert.Equal(t, 3, item.Quantity)
		assert.True(t, item.TotalPrice.Equal(decimal.NewFromInt(30)))
	})

	t.Run("Removing the last item deletes the order", func(t *testing.T) {
		srv := newServer(t)
		o := srv.createDineIn(t, srv.t1, line(srv.momo, 1, "10"))

		code, env := srv.do(t, http.MethodDelete, fmt.Sprintf("/orders/%d/items/%d", o.ID, o.Items[0].ID), nil)

		require.Equal(t, http.StatusOK, code, env.Error)
		res := decode[RemoveItemView](t, env)
		assert.True(t, res.OrderDeleted)
		assert.True(t, res.TableFreed)

		code, _ = srv.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", o.ID), nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("Status and payment method", func(t *testing.T) {
		srv := newServer(t)
		o := srv.createDineIn(t, srv.t1, line(srv.momo, 1, "10"))

		code, env := srv.do(t, http.MethodPut, fmt.Sprintf("/orders/%d/status", o.ID), map[string]any{"status": "bogus"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "invalid order status", env.Error)

		code, env = srv.do(t, http.MethodPut, fmt.Sprintf("/orders/%d/status", o.ID), map[string]any{"status": "preparing"})
		require.Equal(t, http.StatusOK, code, env.Error)
		assert.Equal(t, "preparing", decode[OrderView](t, env).Status)

		code, env = srv.do(t, http.MethodPut, fmt.Sprintf("/orders/%d/payment-method", o.ID), map[string]any{"payment_method": "bitcoin"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "oneof", env.Fields["UpdatePaymentMethodRequest.payment_method"])

		code, env = srv.do(t, http.MethodPut, fmt.Sprintf("/orders/%d/payment-method", o.ID), map[string]any{"payment_method": "card"})
		require.Equal(t, http.StatusOK, code, env.Error)
		pm := decode[OrderView](t, env).PaymentMethod
		require.NotNil(t, pm)
		assert.Equal(t, "card", *pm)
	})

	t.Run("Checkout completes and frees the table", func(t *testing.T) {
		srv := newServer(t)
		o := srv.createDineIn(t, srv.t1, line(srv.momo, 2, "10"))

		code, env := srv.do(t, http.MethodPost, fmt.Sprintf("/orders/%d/checkout", o.ID), map[string]any{
			"payment_method": "cash",
			"cash_amount":    "20",
		})
		require.Equal(t, http.StatusOK, code, env.Error)
		assert.Equal(t, "completed", decode[OrderView](t, env).Status)

		code, env = srv.do(t, http.MethodGet, "/transfers/available-tables", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, decode[[]TableView](t, env), 3)

		code, env = srv.do(t, http.MethodGet, fmt.Sprintf("/orders/%d/audit", o.ID), nil)
		require.Equal(t, http.StatusOK, code)
		events := []string{}
		for _, e := range decode[[]AuditView](t, env) {
			events = append(events, e.EventType)
		}
		assert.Contains(t, events, string(order.AuditCheckedOut))
	})

	t.Run("List by type", func(t *testing.T) {
		srv := newServer(t)
		srv.createDineIn(t, srv.t1, line(srv.momo, 1, "10"))

		code, env := srv.do(t, http.MethodGet, "/orders?type=dine_in", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, decode[[]OrderView](t, env), 1)

		code, _ = srv.do(t, http.MethodGet, "/orders?type=delivery", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestTransferEndpoints(t *testing.T) {
	t.Run("Partial transfer", func(t *testing.T) {
		srv := newServer(t)
		o := srv.createDineIn(t, srv.t1, line(srv.momo, 5, "10"))

		code, env := srv.do(t, http.MethodPost, "/transfers/transfer", map[string]any{
			"order_id":       o.ID,
			"new_table_id":   srv.t2,
			"mode":           "partial",
			"selected_items": []any{map[string]any{"item_id": o.Items[0].ID, "quantity": 2}},
		})

		require.Equal(t, http.StatusOK, code, env.Error)
		res := decode[TransferView](t, env)
		require.NotNil(t, res.SourceOrder)
		require.NotNil(t, res.TargetOrder)
		assert.True(t, res.SourceOrder.TotalAmount.Equal(decimal.NewFromInt(30)))
		assert.True(t, res.TargetOrder.TotalAmount.Equal(decimal.NewFromInt(20)))
		assert.True(t, res.TargetCreated)
	})

	t.Run("Partial without items", func(t *testing.T) {
		srv := newServer(t)

		code, env := srv.do(t, http.MethodPost, "/transfers/transfer", map[string]any{
			"order_id":     1,
			"new_table_id": srv.t2,
			"mode":         "partial",
		})

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "required_for_partial", env.Fields["TransferRequest.selected_items"])
	})

	t.Run("Full transfer to the same table", func(t *testing.T) {
		srv := newServer(t)
		o := srv.createDineIn(t, srv.t1, line(srv.momo, 1, "10"))

		code, env := srv.do(t, http.MethodPost, "/transfers/transfer", map[string]any{
			"order_id":     o.ID,
			"new_table_id": srv.t1,
		})

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, transfer.ErrSameTable.Message, env.Error)
	})

	t.Run("Merge and look up by table", func(t *testing.T) {
		srv := newServer(t)
		a := srv.createDineIn(t, srv.t1, line(srv.momo, 2, "10"))
		b := srv.createDineIn(t, srv.t2, line(srv.momo, 1, "10"), line(srv.tea, 1, "5"))

		code, env := srv.do(t, http.MethodPost, "/transfers/merge", map[string]any{
			"source_order_ids": []int64{a.ID, b.ID},
			"target_table_id":  srv.t3,
		})
		require.Equal(t, http.StatusOK, code, env.Error)
		res := decode[MergeView](t, env)
		assert.ElementsMatch(t, []int64{a.ID, b.ID}, res.VoidedOrderIDs)
		assert.True(t, res.Order.TotalAmount.Equal(decimal.NewFromInt(35)))

		code, env = srv.do(t, http.MethodGet, fmt.Sprintf("/transfers/tables/%d/order", srv.t3), nil)
		require.Equal(t, http.StatusOK, code, env.Error)
		assert.Equal(t, res.Order.ID, decode[OrderView](t, env).ID)

		code, env = srv.do(t, http.MethodGet, "/transfers/active-orders", nil)
		require.Equal(t, http.StatusOK, code)
		active := decode[[]ActiveOrderView](t, env)
		require.Len(t, active, 1)
		assert.Equal(t, 2, active[0].ItemCount)
	})

	t.Run("Merge needs two sources", func(t *testing.T) {
		srv := newServer(t)

		code, env := srv.do(t, http.MethodPost, "/transfers/merge", map[string]any{
			"source_order_ids": []int64{1},
			"target_table_id":  srv.t3,
		})

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "min", env.Fields["MergeRequest.source_order_ids"])
	})

	t.Run("Reprint without body", func(t *testing.T) {
		srv := newServer(t)
		o := srv.createDineIn(t, srv.t1, line(srv.momo, 1, "10"))

		code, env := srv.do(t, http.MethodPost, fmt.Sprintf("/orders/%d/reprint", o.ID), nil)

		require.Equal(t, http.StatusOK, code, env.Error)
		ticket := decode[kitchen.Ticket](t, env)
		assert.Equal(t, kitchen.ReasonReprint, ticket.Reason)
		assert.Len(t, srv.kitchen.tickets, 1)

		code, env = srv.do(t, http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, uint64(1), decode[map[string]uint64](t, env)["kitchen_tickets_sent"])
	})
}

func TestTakeawayEndpoints(t *testing.T) {
	srv := newServer(t)

	code, env := srv.do(t, http.MethodPost, "/takeaways", nil)
	require.Equal(t, http.StatusCreated, code, env.Error)
	tk := decode[TakeawayView](t, env)
	assert.NotEmpty(t, tk.Number)

	code, env = srv.do(t, http.MethodPost, "/orders", map[string]any{
		"takeaway_id": tk.ID,
		"items":       []any{line(srv.tea, 2, "5")},
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	o := decode[OrderView](t, env)
	assert.Equal(t, "takeaway", o.OrderType)

	code, env = srv.do(t, http.MethodGet, "/takeaways", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[[]TakeawaySummaryView](t, env)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].ActiveOrderCount)

	code, _ = srv.do(t, http.MethodGet, "/takeaways?date=15-10-2026", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = srv.do(t, http.MethodPut, fmt.Sprintf("/takeaways/%d/complete", tk.ID), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, takeaway.ErrTakeawayHasActiveOrders.Message, env.Error)

	code, env = srv.do(t, http.MethodDelete, fmt.Sprintf("/takeaways/%d", tk.ID), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, takeaway.ErrTakeawayHasOrders.Message, env.Error)

	code, env = srv.do(t, http.MethodPost, fmt.Sprintf("/orders/%d/checkout", o.ID), map[string]any{"payment_method": "cash"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = srv.do(t, http.MethodPut, fmt.Sprintf("/takeaways/%d/complete", tk.ID), nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "completed", decode[TakeawayView](t, env).Status)

	code, env = srv.do(t, http.MethodGet, fmt.Sprintf("/takeaways/%d", tk.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[TakeawayDetailView](t, env).Orders, 1)
}

func TestMenuEndpoints(t *testing.T) {
	srv := newServer(t)
	lassi := srv.store.AddPricedItem(srv.drinks, "Lassi", decimal.NewFromInt(4))
	srv.store.SetItemAvailable(lassi, false)

	t.Run("categories with item counts", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, "/menu/categories", nil)
		require.Equal(t, http.StatusOK, code, env.Error)

		page := decode[PageView[CategoryView]](t, env)
		require.Len(t, page.Rows, 1)
		assert.Equal(t, "Drinks", page.Rows[0].Name)
		assert.Equal(t, 2, page.Rows[0].ItemCount)
		assert.Equal(t, 20, page.Limit)
		assert.Equal(t, 1, page.Page)
	})

	t.Run("items filtered by category and availability", func(t *testing.T) {
		path := fmt.Sprintf("/menu/items?category_id=%d&available=true", srv.drinks)
		code, env := srv.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, code, env.Error)

		page := decode[PageView[MenuItemView]](t, env)
		require.Len(t, page.Rows, 1)
		assert.Equal(t, srv.tea, page.Rows[0].ID)
		assert.Equal(t, "Drinks", page.Rows[0].CategoryName)
		assert.True(t, decimal.NewFromInt(3).Equal(page.Rows[0].Price))
		assert.EqualValues(t, 1, page.Total)
	})

	t.Run("search and paging", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, "/menu/items?q=A&limit=1&page=2", nil)
		require.Equal(t, http.StatusOK, code, env.Error)

		page := decode[PageView[MenuItemView]](t, env)
		assert.EqualValues(t, 2, page.Total)
		require.Len(t, page.Rows, 1)
		assert.Equal(t, "Tea", page.Rows[0].Name)
	})

	t.Run("bad category id", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, "/menu/items?category_id=0", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, env.Success)
	})

	t.Run("limit over max", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, "/menu/items?limit=500", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "max", env.Fields["MenuItemsQuery.limit"])
	})

	t.Run("get item", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, fmt.Sprintf("/menu/items/%d", srv.momo), nil)
		require.Equal(t, http.StatusOK, code, env.Error)
		item := decode[MenuItemView](t, env)
		assert.Equal(t, "Momo", item.Name)
		assert.Nil(t, item.CategoryID)
	})

	t.Run("unknown item", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, "/menu/items/9999", nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "menu item not found", env.Error)
	})
}
