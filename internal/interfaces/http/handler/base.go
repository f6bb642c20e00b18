// Package handler exposes the storefront services over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	debug bool
}

// Option configures the BaseHandler embedded in every handler
type Option func(*BaseHandler)

// WithDebug exposes raw backend text and diagnostics in error responses
func WithDebug(debug bool) Option {
	return func(h *BaseHandler) {
		h.debug = debug
	}
}

func newBase(opts []Option) BaseHandler {
	var b BaseHandler
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// currentSession returns the request's session
func currentSession(c *gin.Context) session.Session {
	return middleware.GetSession(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// ValidationError sends a 400 validation error response for a body that
// failed binding
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError renders err as a failure response. Failures the backend
// produced keep their reason; anything else is classified by
// storefront.ToFailure.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.fail(c, err, nil)
}

// HandleErrorWithActions renders err and lists the actions the shopper can
// take next
func (h *BaseHandler) HandleErrorWithActions(c *gin.Context, err error, actions []string) {
	h.fail(c, err, actions)
}

func (h *BaseHandler) fail(c *gin.Context, err error, actions []string) {
	if err == nil {
		return
	}
	f := storefront.ToFailure(err)
	status, resp := dto.NewFailureResponse(f, dto.FailureOptions{
		Message:   middleware.TranslateFailure(c, f),
		RequestID: middleware.GetRequestID(c),
		Debug:     h.debug,
		Actions:   actions,
	})

	log := logger.GetGinLogger(c)
	fields := []zap.Field{
		zap.String("reason", f.Reason.String()),
		zap.String("code", resp.Error.Code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.Warn("request failed", fields...)
	} else {
		log.Debug("request rejected", fields...)
	}

	c.JSON(status, resp)
}
