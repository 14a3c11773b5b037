package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string `json:"sub"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var (
	mu       sync.RWMutex
	secret   []byte
	tokenTTL = time.Hour
)

// Init configures the signing secret and access token lifetime.
func Init(jwtSecret string, ttl time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	secret = []byte(jwtSecret)
	if ttl > 0 {
		tokenTTL = ttl
	}
}

func TokenTTL() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return tokenTTL
}

// GenerateToken issues an HS256 access token with sub, role and exp.
func GenerateToken(userID, role string) (string, error) {
	mu.RLock()
	key, ttl := secret, tokenTTL
	mu.RUnlock()

	if len(key) == 0 {
		return "", errors.New("jwt secret is not configured")
	}

	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ParseToken validates signature, algorithm and expiry.
func ParseToken(tokenString string) (*Claims, error) {
	mu.RLock()
	key := secret
	mu.RUnlock()

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
