package services

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/escomrepo/users-service/app/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// jwtSecret is loaded lazily so we can validate it and avoid an empty secret.
var (
	jwtSecret     []byte
	secretLoadErr error
	secretOnce    sync.Once
)

func getJWTSecret() ([]byte, error) {
	secretOnce.Do(func() {
		val := os.Getenv("JWT_SECRET")
		if val == "" {
			secretLoadErr = fmt.Errorf("JWT_SECRET is not set")
			return
		}
		jwtSecret = []byte(val)
	})
	if secretLoadErr != nil {
		return nil, secretLoadErr
	}
	return jwtSecret, nil
}

// SessionClaims are the claims carried by a session token issued after code
// verification.
type SessionClaims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"nombre"`
	Boleta string `json:"boleta,omitempty"`
	Role   string `json:"rol"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a short-lived HS256 JWT for a verified user.
func GenerateSessionToken(user *models.User, expiresAt time.Time) (string, error) {
	secret, err := getJWTSecret()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Boleta: user.Boleta,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseSessionToken validates a session token and returns its claims.
func ParseSessionToken(tokenString string) (*SessionClaims, error) {
	secret, err := getJWTSecret()
	if err != nil {
		return nil, err
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
