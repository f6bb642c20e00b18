package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// Session context keys
const (
	// SessionKey holds the session fingerprint; the request logger reads it
	SessionKey = "session"
	// SessionValueKey holds the session.Session
	SessionValueKey = "storefront_session"
	// UserIDKey holds the user id the shopper's client supplied
	UserIDKey = "user_id"

	TokenHeader   = "token"
	AuthHeaderKey = "Authorization"
	UserIDHeader  = "X-User-ID"
	BearerPrefix  = "Bearer "
)

// Credential extracts the shopper credential from the request. The
// commerce backend's own "token" header wins over a bearer token.
func Credential(c *gin.Context) storefront.Credential {
	token := strings.TrimSpace(c.GetHeader(TokenHeader))
	if token == "" {
		authHeader := c.GetHeader(AuthHeaderKey)
		if strings.HasPrefix(authHeader, BearerPrefix) {
			token = strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		}
	}
	return storefront.Credential{
		Token:  token,
		UserID: strings.TrimSpace(c.GetHeader(UserIDHeader)),
	}
}

// Session resolves the request credential to a registered session. A
// request without a credential continues with the zero session; use
// RequireSession on routes that need one.
func Session(registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := registry.Touch(Credential(c))
		if sess.IsZero() {
			c.Next()
			return
		}

		c.Set(SessionValueKey, sess)
		c.Set(SessionKey, sess.Key)

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, log = logger.WithSession(ctx, log, sess.Key)
		if userID := sess.Credential.UserID; userID != "" {
			c.Set(UserIDKey, userID)
			ctx, log = logger.WithUserID(ctx, log, userID)
		}
		c.Set("logger", log)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireSession rejects requests that carry no credential
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSession(c).IsZero() {
			logger.GetGinLogger(c).Debug("request without credential",
				zap.String("path", c.Request.URL.Path))
			failure := storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
			status, resp := dto.NewFailureResponse(failure, dto.FailureOptions{
				Message:   Translate(c, storefront.MsgNotAuthenticated),
				RequestID: GetRequestID(c),
			})
			c.AbortWithStatusJSON(status, resp)
			return
		}
		c.Next()
	}
}

// GetSession returns the request's session, the zero session when the
// request carried no credential
func GetSession(c *gin.Context) session.Session {
	if v, ok := c.Get(SessionValueKey); ok {
		if sess, ok := v.(session.Session); ok {
			return sess
		}
	}
	return session.Session{}
}

// GetUserID returns the user id of the request's session
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
