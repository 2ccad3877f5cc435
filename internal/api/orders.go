package api

import (
	"net/http"

	"deskgoo-pos/internal/order"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !bindAndValidate(c, &req, h.validate) {
		return
	}

	in := order.CreateOrderInput{
		TableID:    req.TableID,
		TakeawayID: req.TakeawayID,
		Items:      toItemInputs(req.Items),
		Notes:      req.Notes,
	}
	if req.Status != nil {
		st, err := order.ParseStatus(*req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		in.Status = &st
	}
	if req.VATPercentage != nil {
		in.VATPercentage = *req.VATPercentage
	}
	if req.DiscountAmount != nil {
		in.DiscountAmount = *req.DiscountAmount
	}
	if req.DiscountType != nil {
		dt := order.DiscountType(*req.DiscountType)
		in.DiscountType = &dt
	}

	o, err := h.orders.CreateOrder(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, toOrderView(o))
}

func (h *Handler) listOrders(c *gin.Context) {
	var f order.ListFilter
	if raw := c.Query("type"); raw != "" {
		t := order.OrderType(raw)
		if !t.Valid() {
			respondError(c, order.ErrInvalidOrderType)
			return
		}
		f.Type = &t
	}
	f.ActiveOnly = c.Query("active") == "true"

	list, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toOrderViews(list))
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	d, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toOrderDetailView(d))
}

func (h *Handler) listAudit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.orders.ListAudit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toAuditViews(entries))
}

func (h *Handler) addItems(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req AddItemsRequest
	if !bindAndValidate(c, &req, h.validate) {
		return
	}

	o, err := h.orders.AddItems(c.Request.Context(), id, toItemInputs(req.Items))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toOrderView(o))
}

func (h *Handler) updateItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !bindAndValidate(c, &req, h.validate) {
		return
	}

	item, err := h.orders.UpdateItem(c.Request.Context(), id, itemID, order.UpdateItemInput{
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
		TotalPrice: req.TotalPrice,
		MenuItemID: req.MenuItemID,
		Notes:      req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toItemView(*item))
}

func (h *Handler) removeItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	res, err := h.orders.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toRemoveItemView(res))
}

func (h *Handler) updateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !bindAndValidate(c, &req, h.validate) {
		return
	}
	st, err := order.ParseStatus(req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	o, err := h.orders.UpdateStatus(c.Request.Context(), id, st)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toOrderView(o))
}

func (h *Handler) updatePaymentMethod(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdatePaymentMethodRequest
	if !bindAndValidate(c, &req, h.validate) {
		return
	}

	o, err := h.orders.UpdatePaymentMethod(c.Request.Context(), id, order.PaymentMethod(req.PaymentMethod))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toOrderView(o))
}

func (h *Handler) checkout(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CheckoutRequest
	if !bindAndValidate(c, &req, h.validate) {
		return
	}

	in := order.CheckoutInput{
		DiscountAmount:   req.DiscountAmount,
		VATPercentage:    req.VATPercentage,
		CashAmount:       req.CashAmount,
		CardAmount:       req.CardAmount,
		OnlineAmount:     req.OnlineAmount,
		PaymentBreakdown: req.PaymentBreakdown,
		InvoiceData:      req.InvoiceData,
	}
	if req.PaymentMethod != nil {
		pm := order.PaymentMethod(*req.PaymentMethod)
		in.PaymentMethod = &pm
	}
	if req.DiscountType != nil {
		dt := order.DiscountType(*req.DiscountType)
		in.DiscountType = &dt
	}

	o, err := h.orders.Checkout(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toOrderView(o))
}
