package api

import (
	"net/http"
	"time"

	"deskgoo-pos/internal/kitchen"
	"deskgoo-pos/internal/menu"
	"deskgoo-pos/internal/metrics"
	"deskgoo-pos/internal/order"
	"deskgoo-pos/internal/takeaway"
	"deskgoo-pos/internal/transfer"
	"deskgoo-pos/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

type Handler struct {
	orders    order.Service
	takeaways takeaway.Service
	transfers transfer.Service
	menu      menu.Service
	metrics   *metrics.Registry
	validate  *validatorv10.Validate
}

type Deps struct {
	Orders    order.Service
	Takeaways takeaway.Service
	Transfers transfer.Service
	Menu      menu.Service
	Metrics   *metrics.Registry
}

func NewHandler(d Deps) *Handler {
	if d.Metrics == nil {
		d.Metrics = metrics.NewRegistry()
	}
	return &Handler{
		orders:    d.Orders,
		takeaways: d.Takeaways,
		transfers: d.Transfers,
		menu:      d.Menu,
		metrics:   d.Metrics,
		validate:  NewValidator(),
	}
}

// NewRouter builds the gin engine. An empty origins list allows any origin.
func NewRouter(h *Handler, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Device-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = origins
	}
	r.Use(cors.New(corsCfg))

	h.Register(r)
	return r
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.health)
	r.GET("/metrics", h.snapshot)

	orders := r.Group("/orders")
	{
		orders.POST("", h.createOrder)
		orders.GET("", h.listOrders)
		orders.GET("/:id", h.getOrder)
		orders.GET("/:id/audit", h.listAudit)
		orders.POST("/:id/items", h.addItems)
		orders.PUT("/:id/items/:itemId", h.updateItem)
		orders.DELETE("/:id/items/:itemId", h.removeItem)
		orders.PUT("/:id/status", h.updateStatus)
		orders.PUT("/:id/payment-method", h.updatePaymentMethod)
		orders.POST("/:id/checkout", h.checkout)
		orders.POST("/:id/reprint", h.reprint)
	}

	transfers := r.Group("/transfers")
	{
		transfers.GET("/active-orders", h.activeOrders)
		transfers.GET("/available-tables", h.availableTables)
		transfers.GET("/tables/:tableId/order", h.orderByTable)
		transfers.POST("/transfer", h.transferOrder)
		transfers.POST("/merge", h.mergeOrders)
	}

	takeaways := r.Group("/takeaways")
	{
		takeaways.POST("", h.createTakeaway)
		takeaways.GET("", h.listTakeaways)
		takeaways.GET("/:id", h.getTakeaway)
		takeaways.PUT("/:id/complete", h.completeTakeaway)
		takeaways.DELETE("/:id", h.deleteTakeaway)
	}

	m := r.Group("/menu")
	{
		m.GET("/categories", h.listCategories)
		m.GET("/items", h.listMenuItems)
		m.GET("/items/:id", h.getMenuItem)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) snapshot(c *gin.Context) {
	respond(c, http.StatusOK, h.metrics.Snapshot())
}

// pathID reads a positive id path parameter, writing the 400 itself.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := utils.ParseID(c.Param(name))
	if err != nil {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func toItemInputs(items []ItemRequest) []order.ItemInput {
	out := make([]order.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, order.ItemInput{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
			Notes:      it.Notes,
		})
	}
	return out
}

func (h *Handler) reprint(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ReprintRequest
	if c.Request.ContentLength != 0 {
		if !bindAndValidate(c, &req, h.validate) {
			return
		}
	}

	ticket, err := h.transfers.ReprintTicket(c.Request.Context(), id, kitchen.Reason(req.Reason))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, ticket)
}
