package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User types carried in the token. Admin tokens authorize the management
// API; external tokens only authorize the chat WebSocket.
const (
	UserTypeAdmin    = "admin"
	UserTypeExternal = "external_admin"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, expiration time.Duration, userID uint, username string) (string, error) {
	return generate(secret, expiration, userID, username, UserTypeAdmin)
}

// GenerateExternalToken mints a long-lived token an admin embeds in the chat
// widget. The subject stays the admin's id; UserType distinguishes it from a
// management token.
func GenerateExternalToken(secret string, expiration time.Duration, adminID uint, adminName string) (string, error) {
	return generate(secret, expiration, adminID, adminName, UserTypeExternal)
}

func generate(secret string, expiration time.Duration, userID uint, username, userType string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserType == "" {
		claims.UserType = UserTypeAdmin
	}
	return claims, nil
}
