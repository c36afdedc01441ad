package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const devSecret = "reelshelf-dev-secret-change-in-production"

var (
	settingsMu    sync.RWMutex
	jwtSecret     = []byte(devSecret)
	tokenDuration = 24 * time.Hour
)

// Claims represents the JWT claims
type Claims struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	SystemRole string `json:"system_role"`
	jwt.RegisteredClaims
}

// Configure sets the signing secret and token lifetime.
// An empty secret keeps the development default.
func Configure(secret string, ttl time.Duration) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	if secret != "" {
		jwtSecret = []byte(secret)
	}
	if ttl > 0 {
		tokenDuration = ttl
	}
}

// UsingDevSecret reports whether tokens are signed with the built-in secret
func UsingDevSecret() bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return string(jwtSecret) == devSecret
}

func getJWTSecret() []byte {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return jwtSecret
}

func getTokenDuration() time.Duration {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return tokenDuration
}

// GenerateToken creates a new JWT token for a user
func GenerateToken(userID uint, username string, systemRole string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:     userID,
		Username:   username,
		SystemRole: systemRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(getTokenDuration())),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "reelshelf",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getJWTSecret())
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return getJWTSecret(), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
