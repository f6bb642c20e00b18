package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// SessionHandler ends shopper sessions
type SessionHandler struct {
	BaseHandler
	registry *session.Registry
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(registry *session.Registry, opts ...Option) *SessionHandler {
	return &SessionHandler{
		BaseHandler: newBase(opts),
		registry:    registry,
	}
}

// Logout ends the session
func (h *SessionHandler) Logout(c *gin.Context) {
	sess := currentSession(c)
	h.registry.Drop(c.Request.Context(), sess.Key)
	logger.GetGinLogger(c).Info("session ended", zap.String("reason", "logout"))
	h.NoContent(c)
}
