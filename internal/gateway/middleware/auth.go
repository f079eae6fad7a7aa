package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"barbershop-system/internal/session"
)

const SessionKey = "session"

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (session.Session, error)
}

// JWTAuth resolves the bearer token into a session and stores it on the
// request. Event streams may pass the token as access_token since browsers
// cannot set headers on EventSource.
func JWTAuth(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authorization header is required",
			})
			return
		}

		sess, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			msg := "Invalid or expired token"
			code := http.StatusUnauthorized
			switch {
			case errors.Is(err, session.ErrRevoked):
				msg = "Session has been logged out"
			case !errors.Is(err, session.ErrUnauthenticated):
				msg = "Unable to verify session"
				code = http.StatusServiceUnavailable
			}
			c.AbortWithStatusJSON(code, gin.H{"success": false, "message": msg})
			return
		}

		c.Set(SessionKey, sess)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func CurrentSession(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := v.(session.Session)
	return sess, ok
}

// RequireRole rejects sessions without one of the given roles.
func RequireRole(roles ...session.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
			return
		}
		for _, r := range roles {
			if sess.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Insufficient permissions"})
	}
}
