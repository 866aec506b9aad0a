// README: Auth middleware: bearer token -> user directory identity on the gin context.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridewave/internal/gateway"
	"ridewave/internal/modules/user"
	"ridewave/internal/types"
)

const (
	ctxUserID = "auth.user_id"
	ctxRole   = "auth.role"
)

// Authenticator resolves a request to a caller identity.
type Authenticator interface {
	AuthenticateRequest(r *http.Request) (gateway.Identity, error)
}

func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.AuthenticateRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication invalid"})
			return
		}
		c.Set(ctxUserID, id.UserID)
		c.Set(ctxRole, id.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not role. Must run after Auth.
func RequireRole(role user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func CallerUID(c *gin.Context) types.ID {
	v, _ := c.Get(ctxUserID)
	id, _ := v.(types.ID)
	return id
}

func CallerRole(c *gin.Context) user.Role {
	v, _ := c.Get(ctxRole)
	r, _ := v.(user.Role)
	return r
}
