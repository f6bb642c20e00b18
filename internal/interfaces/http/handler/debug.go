package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/domain/storefront"
)

// DebugHandler exposes raw commerce backend answers. It is registered only
// when debug mode is on.
type DebugHandler struct {
	BaseHandler
	gateway storefront.DiagnosticsGateway
}

// NewDebugHandler creates a new DebugHandler
func NewDebugHandler(gateway storefront.DiagnosticsGateway) *DebugHandler {
	return &DebugHandler{
		BaseHandler: BaseHandler{debug: true},
		gateway:     gateway,
	}
}

// Cart returns the raw backend cart response
func (h *DebugHandler) Cart(c *gin.Context) {
	d, err := h.gateway.RawCart(c.Request.Context(), currentSession(c).Credential)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, d)
}

// Orders returns the raw order listing responses
func (h *DebugHandler) Orders(c *gin.Context) {
	ds, err := h.gateway.RawOrders(c.Request.Context(), currentSession(c).Credential)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ds)
}
