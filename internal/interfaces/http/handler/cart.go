package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/domain/storefront"
)

// CartHandler serves the shopper's cart
type CartHandler struct {
	BaseHandler
	carts *cart.Service
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts *cart.Service, opts ...Option) *CartHandler {
	return &CartHandler{
		BaseHandler: newBase(opts),
		carts:       carts,
	}
}

// CartData is the cart as returned to the shopper. Cart is null when the
// account has no cart.
type CartData struct {
	Cart      *storefront.CartSnapshot `json:"cart"`
	ItemCount int                      `json:"itemCount"`
}

func cartData(snap *storefront.CartSnapshot) CartData {
	return CartData{Cart: snap, ItemCount: snap.Count()}
}

// Get returns the cart
func (h *CartHandler) Get(c *gin.Context) {
	sess := currentSession(c)

	var (
		snap *storefront.CartSnapshot
		err  error
	)
	if c.Query("refresh") == "true" {
		snap, err = h.carts.Refresh(c.Request.Context(), sess)
	} else {
		snap, err = h.carts.Get(c.Request.Context(), sess)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cartData(snap))
}

// Count returns the cart item count
func (h *CartHandler) Count(c *gin.Context) {
	n, err := h.carts.Count(c.Request.Context(), currentSession(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CountData{Count: n})
}

// AddItem adds one unit of a product
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	snap, err := h.carts.AddItem(c.Request.Context(), currentSession(c), req.ProductID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cartData(snap))
}

// SetQuantity changes the quantity of a cart line
func (h *CartHandler) SetQuantity(c *gin.Context) {
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	snap, err := h.carts.SetQuantity(c.Request.Context(), currentSession(c), c.Param("productId"), *req.Count)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cartData(snap))
}

// RemoveItem removes a line from the cart
func (h *CartHandler) RemoveItem(c *gin.Context) {
	snap, err := h.carts.RemoveItem(c.Request.Context(), currentSession(c), c.Param("productId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cartData(snap))
}

// Clear empties the cart
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), currentSession(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cartData(nil))
}
