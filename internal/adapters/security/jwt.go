// Package security verifies gateway-issued bearer tokens. Signing lives in
// the identity service; this adapter only validates and extracts claims.
package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/venturelink/deal-service/internal/domain"
	"github.com/venturelink/deal-service/internal/ports"
)

type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

type dealJWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (ports.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &dealJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return ports.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*dealJWTClaims)
	if !ok || !parsed.Valid {
		return ports.TokenClaims{}, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return ports.TokenClaims{}, fmt.Errorf("%w: token missing subject", domain.ErrUnauthorized)
	}
	role := claims.Role
	if role == "" {
		role = "member"
	}
	return ports.TokenClaims{SubjectID: claims.Subject, Role: role}, nil
}
