package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/moodmap-backend-go/pkg/response"
)

// Context keys for claims extracted from the token.
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// RoleAdmin is the role claim value that unlocks the maintenance endpoints.
const RoleAdmin = "admin"

// Auth validates the Bearer token and stores the subject claim as the
// authenticated user ID. Tokens are HS256 signed with the configured secret.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			response.Unauthorized(c, "token has no subject")
			c.Abort()
			return
		}

		c.Set(UserIDKey, subject)
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if role, ok := claims["role"].(string); ok {
				c.Set(RoleKey, role)
			}
		}
		c.Next()
	}
}

// RequireAdmin restricts a route to tokens carrying the admin role claim.
// Must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleKey) != RoleAdmin {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user ID from the context
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
