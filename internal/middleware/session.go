package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-box-api/internal/models"
	appErrors "github.com/noah-isme/grievance-box-api/pkg/errors"
	"github.com/noah-isme/grievance-box-api/pkg/logger"
	"github.com/noah-isme/grievance-box-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the authenticated *models.Session.
const ContextSessionKey = "currentSession"

type sessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// SessionToken extracts the session token from the Authorization header, falling back to
// the session cookie.
func SessionToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// Session protects routes by requiring a live session.
func Session(auth sessionAuthenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthorized, ""))
			return
		}

		session, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			response.Abort(c, err)
			return
		}

		c.Set(ContextSessionKey, session)
		c.Set(logger.PrincipalKey, session.Principal)
		c.Next()
	}
}

// SessionFromContext returns the session stored by Session, or nil.
func SessionFromContext(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return session
}
