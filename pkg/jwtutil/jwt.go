// Package jwtutil is the token codec: it mints and verifies the access and
// refresh tokens carried by every authenticated request. Access and refresh
// tokens are signed with separate secrets and separate expiries; the role is
// a claim on the access token and is authorized downstream by whoever
// consumes it.
package jwtutil

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	xerrors "jobnest-auth/pkg/xerrors"
)

// AccessClaims is the claim set of a short-lived bearer token.
type AccessClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set of a refresh token. The signed string is
// also persisted verbatim on the principal record; see usecase.Refresh.
type RefreshClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (c *Codec) IssueAccess(id, email, role string) (string, error) {
	claims := AccessClaims{
		ID:    id,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
}

// IssueRefresh mints a refresh token. Each token carries a unique jti:
// rotation compares the stored token string against the presented one, and
// two tokens minted within the same second would otherwise be identical.
func (c *Codec) IssueRefresh(id, email string) (string, error) {
	claims := RefreshClaims{
		ID:    id,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.refreshTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
}

// ParseAccess verifies the signature and expiry of an access token. Expired
// tokens return ErrExpiredToken so the caller can tell the client that a
// refresh, not a re-login, is the remedy.
func (c *Codec) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := new(AccessClaims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, xerrors.ErrInvalidToken
		}
		return c.accessSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, xerrors.ErrExpiredToken
		}
		return nil, xerrors.ErrInvalidToken
	}
	if !token.Valid {
		return nil, xerrors.ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh verifies a refresh token's signature and that its claims
// match the expected identity. A mismatch means the token was minted for a
// different account and is rejected even if the signature is good.
func (c *Codec) VerifyRefresh(tokenStr, wantID, wantEmail string) (*RefreshClaims, error) {
	claims := new(RefreshClaims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, xerrors.ErrInvalidToken
		}
		return c.refreshSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, xerrors.ErrInvalidToken
	}
	if claims.ID != wantID || claims.Email != wantEmail {
		return nil, xerrors.ErrInvalidToken
	}
	return claims, nil
}
