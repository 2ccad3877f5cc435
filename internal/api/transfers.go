package api

import (
	"net/http"

	"deskgoo-pos/internal/transfer"

	"github.com/gin-gonic/gin"
)

func (h *Handler) activeOrders(c *gin.Context) {
	list, err := h.transfers.GetActiveOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toActiveOrderViews(list))
}

func (h *Handler) availableTables(c *gin.Context) {
	list, err := h.transfers.ListAvailableTables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toTableViews(list))
}

func (h *Handler) orderByTable(c *gin.Context) {
	tableID, ok := pathID(c, "tableId")
	if !ok {
		return
	}

	d, err := h.transfers.GetOrderByTable(c.Request.Context(), tableID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toOrderDetailView(d))
}

func (h *Handler) transferOrder(c *gin.Context) {
	var req TransferRequest
	if !bindAndValidate(c, &req, h.validate) {
		return
	}

	in := transfer.TransferInput{
		OrderID:    req.OrderID,
		NewTableID: req.NewTableID,
		Notes:      req.Notes,
		Mode:       transfer.Mode(req.Mode),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, transfer.SelectedItem{ItemID: it.ItemID, Quantity: it.Quantity})
	}

	res, err := h.transfers.TransferOrder(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toTransferView(res))
}

func (h *Handler) mergeOrders(c *gin.Context) {
	var req MergeRequest
	if !bindAndValidate(c, &req, h.validate) {
		return
	}

	res, err := h.transfers.MergeOrders(c.Request.Context(), transfer.MergeInput{
		SourceOrderIDs: req.SourceOrderIDs,
		TargetTableID:  req.TargetTableID,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toMergeView(res))
}
