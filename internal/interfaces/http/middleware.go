package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/usyd-catams/catams/internal/infrastructure/auth"
)

const (
	// RequestIDHeader is echoed back on every response
	RequestIDHeader = "X-Request-ID"

	actorIDKey   = "actor_id"
	actorRoleKey = "actor_role"
	requestIDKey = "request_id"
)

// RequestID attaches a request ID to every request, honouring one supplied by
// the caller
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// JWTAuth verifies the bearer token and stores the authenticated actor on the
// request context. All identity resolution happens here; handlers only ever
// read the actor ID.
func JWTAuth(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "authorization header must be a bearer token",
			})
			return
		}

		claims, err := tokens.ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid or expired token",
			})
			return
		}

		c.Set(actorIDKey, claims.UserID)
		c.Set(actorRoleKey, claims.Role)
		c.Next()
	}
}

// actorID returns the authenticated user ID set by JWTAuth
func actorID(c *gin.Context) int64 {
	return c.GetInt64(actorIDKey)
}
