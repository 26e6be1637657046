package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// HeaderUserEmail carries the authenticated caller, set by the upstream identity proxy.
const HeaderUserEmail = "X-User-Email"

// ContextKeyActor is the gin context key holding the normalized caller email.
const ContextKeyActor = "actor"

// Identity requires a caller email and stores it in the gin and request contexts.
// Whether the caller is approved or holds a role is decided by the application layer.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserEmail)))
		if email == "" {
			AbortWithAppError(c, errors.ErrUnauthorized(HeaderUserEmail+" header is required"))
			return
		}

		c.Set(ContextKeyActor, email)
		c.Request = c.Request.WithContext(logging.ContextWithActor(c.Request.Context(), email))
		c.Next()
	}
}

// GetActorEmail returns the caller stored by Identity, or "".
func GetActorEmail(c *gin.Context) string {
	return c.GetString(ContextKeyActor)
}
