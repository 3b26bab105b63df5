// Package middleware holds the HTTP guards shared by every protected route:
// bearer-token authentication with per-role scoping, plan-quota gating and
// redis-backed rate limiting.
package middleware

import (
	"context"
	"net/http"

	"jobnest-auth/internal/domain"
)

type contextKey string

const (
	ContextPrincipal contextKey = "principal"
	ContextToken     contextKey = "token"
)

// GetPrincipal returns the authenticated principal attached by Require.
func GetPrincipal(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(ContextPrincipal).(*domain.Principal)
	return p, ok
}

func GetToken(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextToken).(string)
	return val, ok
}

func setContextValues(r *http.Request, p *domain.Principal, token string) *http.Request {
	ctx := context.WithValue(r.Context(), ContextPrincipal, p)
	ctx = context.WithValue(ctx, ContextToken, token)
	return r.WithContext(ctx)
}
