package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/application/order"
)

// OrderHandler serves the caller's order history
type OrderHandler struct {
	BaseHandler
	history *order.History
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(history *order.History, opts ...Option) *OrderHandler {
	return &OrderHandler{
		BaseHandler: newBase(opts),
		history:     history,
	}
}

// List returns the order history
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.history.List(c.Request.Context(), currentSession(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orders)
}

// Get returns one order
func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.history.Get(c.Request.Context(), currentSession(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}
