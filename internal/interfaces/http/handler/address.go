package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/application/address"
	"github.com/storefront/backend/internal/domain/storefront"
)

// AddressHandler manages the caller's delivery addresses
type AddressHandler struct {
	BaseHandler
	book *address.Book
}

// NewAddressHandler creates a new AddressHandler
func NewAddressHandler(book *address.Book, opts ...Option) *AddressHandler {
	return &AddressHandler{
		BaseHandler: newBase(opts),
		book:        book,
	}
}

// List returns the delivery addresses
func (h *AddressHandler) List(c *gin.Context) {
	var (
		list []storefront.Address
		err  error
	)
	if c.Query("refresh") == "true" {
		list, err = h.book.Refresh(c.Request.Context(), currentSession(c))
	} else {
		list, err = h.book.List(c.Request.Context(), currentSession(c))
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// Create adds a delivery address
func (h *AddressHandler) Create(c *gin.Context) {
	var req storefront.AddressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	list, err := h.book.Add(c.Request.Context(), currentSession(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, list)
}

// Update replaces a delivery address
func (h *AddressHandler) Update(c *gin.Context) {
	var req storefront.AddressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	list, err := h.book.Update(c.Request.Context(), currentSession(c), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// Delete removes a delivery address
func (h *AddressHandler) Delete(c *gin.Context) {
	list, err := h.book.Delete(c.Request.Context(), currentSession(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// SetDefault makes an address the default
func (h *AddressHandler) SetDefault(c *gin.Context) {
	list, err := h.book.SetDefault(c.Request.Context(), currentSession(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}
