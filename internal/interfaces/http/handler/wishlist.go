package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/domain/storefront"
)

// WishlistHandler manages the caller's wishlist. The wishlist lives only
// on the commerce backend, so requests go straight to the gateway.
type WishlistHandler struct {
	BaseHandler
	gateway storefront.WishlistGateway
}

// NewWishlistHandler creates a new WishlistHandler
func NewWishlistHandler(gateway storefront.WishlistGateway, opts ...Option) *WishlistHandler {
	return &WishlistHandler{
		BaseHandler: newBase(opts),
		gateway:     gateway,
	}
}

// WishlistIDsData lists the product ids on the wishlist after a change
type WishlistIDsData struct {
	ProductIDs []string `json:"productIds"`
}

// List returns the wishlist products
func (h *WishlistHandler) List(c *gin.Context) {
	sess := currentSession(c)
	products, err := h.gateway.ListWishlist(c.Request.Context(), sess.Credential)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// Add adds a product to the wishlist
func (h *WishlistHandler) Add(c *gin.Context) {
	var req WishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	ids, err := h.gateway.AddToWishlist(c.Request.Context(), currentSession(c).Credential, req.ProductID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, WishlistIDsData{ProductIDs: nonNil(ids)})
}

// Remove removes a product from the wishlist
func (h *WishlistHandler) Remove(c *gin.Context) {
	ids, err := h.gateway.RemoveFromWishlist(c.Request.Context(), currentSession(c).Credential, c.Param("productId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, WishlistIDsData{ProductIDs: nonNil(ids)})
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
