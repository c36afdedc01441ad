package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyUsername is the key for username in gin context
	ContextKeyUsername = "username"
	// ContextKeySystemRole is the key for system role in gin context
	ContextKeySystemRole = "system_role"
)

// authenticate parses the Authorization header. It returns ok=false with no
// message when the header is absent.
func authenticate(c *gin.Context) (claims *Claims, message string, ok bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "", false
	}

	// Expect "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, "Invalid authorization header format", false
	}

	claims, err := ValidateToken(parts[1])
	if err != nil {
		if err == ErrExpiredToken {
			return nil, "Token has expired", false
		}
		return nil, "Invalid token", false
	}
	return claims, "", true
}

func setClaims(c *gin.Context, claims *Claims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyUsername, claims.Username)
	c.Set(ContextKeySystemRole, claims.SystemRole)
}

// AuthMiddleware validates JWT tokens and sets user info in context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, message, ok := authenticate(c)
		if !ok {
			if message == "" {
				message = "Authorization header required"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": message})
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth sets user info when a valid token is supplied and lets
// anonymous requests through. A malformed or expired token is still rejected.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, message, ok := authenticate(c)
		if !ok && message != "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": message})
			c.Abort()
			return
		}
		if ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

func requireRole(allowed func(models.SystemRole) bool, denied string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := GetSystemRole(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		if !allowed(models.SystemRole(role)) {
			c.JSON(http.StatusForbidden, gin.H{"error": denied})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireModerator middleware checks the user may review reports
func RequireModerator() gin.HandlerFunc {
	return requireRole(models.SystemRole.CanModerate, "Moderator access required")
}

// RequireAdmin middleware checks if the user has admin system role
func RequireAdmin() gin.HandlerFunc {
	return requireRole(func(r models.SystemRole) bool { return r == models.SystemRoleAdmin }, "Admin access required")
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetUsername returns the username from the gin context
func GetUsername(c *gin.Context) (string, bool) {
	username, exists := c.Get(ContextKeyUsername)
	if !exists {
		return "", false
	}
	return username.(string), true
}

// GetSystemRole returns the system role from the gin context
func GetSystemRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(ContextKeySystemRole)
	if !exists {
		return "", false
	}
	return role.(string), true
}

// IsModerator reports whether the authenticated caller can moderate
func IsModerator(c *gin.Context) bool {
	role, _ := GetSystemRole(c)
	return models.SystemRole(role).CanModerate()
}
