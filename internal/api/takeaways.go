package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createTakeaway(c *gin.Context) {
	t, err := h.takeaways.Create(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, toTakeawayView(t))
}

func (h *Handler) listTakeaways(c *gin.Context) {
	list, err := h.takeaways.ListActive(c.Request.Context(), c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toTakeawaySummaryViews(list))
}

func (h *Handler) getTakeaway(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	d, err := h.takeaways.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toTakeawayDetailView(d))
}

func (h *Handler) completeTakeaway(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	t, err := h.takeaways.Complete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toTakeawayView(t))
}

func (h *Handler) deleteTakeaway(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.takeaways.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
