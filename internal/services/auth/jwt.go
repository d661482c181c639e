// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Stage marks how far through authentication a token's holder is.
type Stage string

const (
	// StagePending2FA tokens may only be used to complete the second factor.
	StagePending2FA Stage = "pending_2fa"
	// StageFull tokens grant access to the admin API.
	StageFull Stage = "full"
)

// ErrInvalidToken is returned for malformed, forged or expired bearer tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the JWT claims carried by admin bearer tokens.
type Claims struct {
	AdminID int64  `json:"admin_id"`
	Email   string `json:"email"`
	Stage   Stage  `json:"stage"`
	jwt.RegisteredClaims
}

// TokenSigner signs and validates admin bearer tokens.
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner creates a TokenSigner with the given HMAC secret.
func NewTokenSigner(secret []byte) *TokenSigner {
	return &TokenSigner{secret: secret}
}

// Sign issues a token for the admin with the given stage and lifetime.
func (t *TokenSigner) Sign(adminID int64, email string, stage Stage, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		AdminID: adminID,
		Email:   email,
		Stage:   stage,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its claims.
func (t *TokenSigner) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
