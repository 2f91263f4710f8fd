package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-box-api/internal/models"
	appErrors "github.com/noah-isme/grievance-box-api/pkg/errors"
	"github.com/noah-isme/grievance-box-api/pkg/response"
)

// RequireRoles admits sessions whose role is one of roles. A missing session is
// Unauthorized; any other role is Forbidden. Denials are written to the audit log.
func RequireRoles(log *zap.Logger, roles ...models.Role) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}

	return func(c *gin.Context) {
		session := SessionFromContext(c)
		if session == nil {
			log.Info("access denied",
				zap.String("reason", "no session"),
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Strings("allowed", allowed),
			)
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthorized, ""))
			return
		}

		if session.HasRole(roles...) {
			c.Next()
			return
		}

		log.Info("access denied",
			zap.String("reason", "role"),
			zap.String("role", string(session.Principal.Role)),
			zap.Int64("global_id", session.Principal.GlobalID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Strings("allowed", allowed),
		)
		response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, ""))
	}
}
