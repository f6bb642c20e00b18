package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CheckoutHandler drives the caller's checkout
type CheckoutHandler struct {
	BaseHandler
	orchestrator *checkout.Orchestrator
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(orchestrator *checkout.Orchestrator, opts ...Option) *CheckoutHandler {
	return &CheckoutHandler{
		BaseHandler:  newBase(opts),
		orchestrator: orchestrator,
	}
}

// CheckoutData is the checkout as returned to the shopper. Reason and
// Message describe the last failure while the flow is FAILED or waiting
// for an empty cart recovery.
type CheckoutData struct {
	*checkout.View
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *CheckoutHandler) data(c *gin.Context, v *checkout.View) CheckoutData {
	d := CheckoutData{View: v}
	if v.Failure != nil {
		d.Reason = v.Failure.Reason.String()
		d.Message = middleware.TranslateFailure(c, v.Failure)
	}
	return d
}

// respond sends the view, or the failure together with the view when the
// operation produced both
func (h *CheckoutHandler) respond(c *gin.Context, v *checkout.View, err error) {
	if err == nil {
		h.Success(c, h.data(c, v))
		return
	}
	if v == nil {
		h.HandleError(c, err)
		return
	}

	f := storefront.ToFailure(err)
	actions := make([]string, 0, len(v.RecoveryActions))
	for _, a := range v.RecoveryActions {
		actions = append(actions, string(a))
	}
	status, resp := dto.NewFailureResponse(f, dto.FailureOptions{
		Message:   middleware.TranslateFailure(c, f),
		RequestID: middleware.GetRequestID(c),
		Debug:     h.debug,
		Actions:   actions,
	})
	resp.Data = h.data(c, v)
	c.JSON(status, resp)
}

// Get returns the checkout view
func (h *CheckoutHandler) Get(c *gin.Context) {
	v, err := h.orchestrator.View(c.Request.Context(), currentSession(c))
	h.respond(c, v, err)
}

// Begin starts a fresh checkout
func (h *CheckoutHandler) Begin(c *gin.Context) {
	v, err := h.orchestrator.Begin(c.Request.Context(), currentSession(c))
	h.respond(c, v, err)
}

// SelectAddress chooses the delivery address
func (h *CheckoutHandler) SelectAddress(c *gin.Context) {
	var req SelectAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	v, err := h.orchestrator.SelectAddress(c.Request.Context(), currentSession(c), req.AddressID)
	h.respond(c, v, err)
}

// SelectPayment chooses the payment method
func (h *CheckoutHandler) SelectPayment(c *gin.Context) {
	var req SelectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	v, err := h.orchestrator.SelectPayment(c.Request.Context(), currentSession(c), req.Method)
	h.respond(c, v, err)
}

// Submit places the order
func (h *CheckoutHandler) Submit(c *gin.Context) {
	v, err := h.orchestrator.Submit(c.Request.Context(), currentSession(c))
	h.respond(c, v, err)
}

// Retry leaves a failed checkout
func (h *CheckoutHandler) Retry(c *gin.Context) {
	var req RetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	v, err := h.orchestrator.Retry(c.Request.Context(), currentSession(c), storefront.CheckoutState(req.To))
	h.respond(c, v, err)
}

// Recover runs an empty-cart recovery action
func (h *CheckoutHandler) Recover(c *gin.Context) {
	var req RecoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	v, err := h.orchestrator.Recover(c.Request.Context(), currentSession(c), storefront.RecoveryAction(req.Action))
	h.respond(c, v, err)
}
