package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"fellowship/internal/apperr"
)

const claimsKey = "claims"

// Authenticate requires a valid bearer token and stores its claims on the
// request context.
func Authenticate(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "missing bearer token")
			return
		}
		claims, err := issuer.Parse(strings.TrimSpace(authz[len("bearer "):]))
		if err != nil {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole allows only callers whose token carries one of roles. It must
// run after Authenticate.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "missing bearer token")
			return
		}
		if !slices.Contains(roles, claims.Role) {
			abort(c, http.StatusForbidden, apperr.CodeForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by Authenticate.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

func abort(c *gin.Context, status int, code apperr.Code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": msg})
}
