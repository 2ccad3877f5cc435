package api

import (
	"net/http"

	"deskgoo-pos/internal/menu"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CategoryView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ItemCount int    `json:"item_count"`
}

type MenuItemView struct {
	ID           int64           `json:"id"`
	CategoryID   *int64          `json:"category_id"`
	CategoryName string          `json:"category_name,omitempty"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Available    bool            `json:"available"`
}

type PageView[T any] struct {
	Rows  []T   `json:"rows"`
	Total int64 `json:"total"`
	Limit int   `json:"limit"`
	Page  int   `json:"page"`
}

func toMenuItemView(it menu.Item) MenuItemView {
	return MenuItemView{
		ID:           it.ID,
		CategoryID:   it.CategoryID,
		CategoryName: it.CategoryName,
		Name:         it.Name,
		Price:        it.Price,
		Available:    it.Available,
	}
}

// bindQuery is bindAndValidate for query strings.
func (h *Handler) bindQuery(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindQuery(out); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return false
	}
	if err := h.validate.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation failed",
			"fields":  validationErrorsToMap(err),
		})
		return false
	}
	return true
}

func (h *Handler) listCategories(c *gin.Context) {
	var q MenuCategoriesQuery
	if !h.bindQuery(c, &q) {
		return
	}

	p, err := h.menu.ListCategories(c.Request.Context(), q.Search, q.Limit, q.Page)
	if err != nil {
		respondError(c, err)
		return
	}

	rows := make([]CategoryView, 0, len(p.Rows))
	for _, cat := range p.Rows {
		rows = append(rows, CategoryView{ID: cat.ID, Name: cat.Name, ItemCount: cat.ItemCount})
	}
	respond(c, http.StatusOK, PageView[CategoryView]{Rows: rows, Total: p.Total, Limit: p.Limit, Page: p.Page})
}

func (h *Handler) listMenuItems(c *gin.Context) {
	var q MenuItemsQuery
	if !h.bindQuery(c, &q) {
		return
	}

	p, err := h.menu.ListItems(c.Request.Context(), menu.ItemFilter{
		CategoryID:    q.CategoryID,
		Search:        q.Search,
		AvailableOnly: q.Available,
		Limit:         q.Limit,
		Page:          q.Page,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	rows := make([]MenuItemView, 0, len(p.Rows))
	for _, it := range p.Rows {
		rows = append(rows, toMenuItemView(it))
	}
	respond(c, http.StatusOK, PageView[MenuItemView]{Rows: rows, Total: p.Total, Limit: p.Limit, Page: p.Page})
}

func (h *Handler) getMenuItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	it, err := h.menu.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toMenuItemView(*it))
}
