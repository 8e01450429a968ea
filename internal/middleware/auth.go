package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/escrowd/internal/auth"
)

const (
	AccountIDKey = "account_id"
	adminKey     = "admin"
)

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Auth requires an "Authorization: Bearer <jwt>" header and stores the
// authenticated account id under AccountIDKey.
func Auth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			AbortWithError(c, http.StatusUnauthorized, "missing authorization header", nil)
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			AbortWithError(c, http.StatusUnauthorized, "invalid authorization header format", nil)
			return
		}

		claims, err := v.Validate(strings.TrimSpace(token))
		if err != nil {
			_ = c.Error(err)
			AbortWithError(c, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set(adminKey, claims.Admin)
		c.Next()
	}
}

// RequireAdmin rejects requests whose token lacks the admin claim. Mount after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(adminKey) {
			AbortWithError(c, http.StatusForbidden, "admin token required", errors.New("token lacks admin claim"))
			return
		}
		c.Next()
	}
}

// AccountID returns the authenticated account id, or "" outside Auth.
func AccountID(c *gin.Context) string {
	return c.GetString(AccountIDKey)
}
