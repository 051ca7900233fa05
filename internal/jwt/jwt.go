package security

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
)

// NewToken issues a signed JWT for the user with the given lifetime.
// The admin flag travels in the token so admin routes need no extra lookup.
func NewToken(ctx context.Context, user *models.User, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", user.ID),
		"email": user.Email,
		"admin": user.IsAdmin,
		"exp":   time.Now().Add(ttl).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	secretStr := os.Getenv("JWT_SECRET")
	if secretStr == "" {
		return "", errors.New("JWT_SECRET environment variable is not set")
	}
	secret := []byte(secretStr)
	return token.SignedString(secret)
}
