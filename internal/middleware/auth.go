package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// Context keys set by the auth middlewares.
const (
	UserIDKey = "user_id"
	ClaimsKey = "claims"
)

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

// AuthMiddleware rejects requests without a valid token.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}

		token, ok := parseAuthHeader(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), token)
		switch {
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenRevoked):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		case err != nil:
			// The denylist could not be consulted. The cause goes to the
			// request log, not to the client.
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication is temporarily unavailable"})
			return
		}

		setRequester(c, claims)
		c.Next()
	}
}

// OptionalAuth identifies the requester when a valid token is sent and lets
// everyone else through as anonymous.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := parseAuthHeader(c.GetHeader("Authorization")); ok {
			claims, err := validator.ValidateToken(c.Request.Context(), token)
			switch {
			case err == nil:
				setRequester(c, claims)
			case !errors.Is(err, service.ErrInvalidToken) && !errors.Is(err, service.ErrTokenRevoked):
				_ = c.Error(err)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated requester, or 0 for anonymous requests.
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// Claims returns the validated token claims, if any.
func Claims(c *gin.Context) (*types.TokenClaims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*types.TokenClaims)
	return claims, ok
}

// parseAuthHeader accepts both "Bearer <jwt>" and "Token <jwt>".
func parseAuthHeader(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	switch parts[0] {
	case "Bearer", "Token":
		return parts[1], true
	}
	return "", false
}

func setRequester(c *gin.Context, claims *types.TokenClaims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set("username", claims.Username)
	c.Set(ClaimsKey, claims)
}
