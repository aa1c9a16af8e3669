package jwt

import (
	"errors"
	"fmt"
	"time"

	"portfolio/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// NewToken signs an HS256 access token for user and returns it together with
// its expiry.
func NewToken(user models.User, secret string, duration time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(duration)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":      user.ID.String(),
		"username": user.Username,
		"admin":    user.IsAdmin,
		"exp":      expiresAt.Unix(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

func ParseToken(tokenString, secret string) (models.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return models.TokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.TokenClaims{}, ErrInvalidToken
	}

	uid, _ := claims["uid"].(string)
	username, _ := claims["username"].(string)
	admin, _ := claims["admin"].(bool)

	if uid == "" {
		return models.TokenClaims{}, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}

	return models.TokenClaims{
		UserID:   uid,
		Username: username,
		IsAdmin:  admin,
	}, nil
}
