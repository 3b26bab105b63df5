package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"jobnest-auth/internal/domain"
	"jobnest-auth/pkg/jwtutil"
	"jobnest-auth/pkg/response"
	xerrors "jobnest-auth/pkg/xerrors"
)

// PrincipalSource loads the live record for an authenticated id. Backed by
// the role's auth usecase; the middleware never trusts claims alone because
// blocks and deletions must take effect mid-token-lifetime.
type PrincipalSource interface {
	GetPrincipal(ctx context.Context, id string) (*domain.Principal, error)
}

type AuthMiddleware struct {
	codec   *jwtutil.Codec
	sources map[domain.Role]PrincipalSource
}

func NewAuthMiddleware(codec *jwtutil.Codec, sources map[domain.Role]PrincipalSource) *AuthMiddleware {
	return &AuthMiddleware{codec: codec, sources: sources}
}

// Require authenticates the bearer token and pins it to one role. A valid
// token of the wrong role is a 403, a bad or expired token a 401. Expired
// tokens get a distinct message so clients know to refresh rather than
// re-login.
func (am *AuthMiddleware) Require(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearer(r)
			if !ok {
				response.Error(w, http.StatusUnauthorized, "missing or malformed Authorization header")
				return
			}

			claims, err := am.codec.ParseAccess(token)
			if err != nil {
				if errors.Is(err, xerrors.ErrExpiredToken) {
					response.Error(w, http.StatusUnauthorized, "access token expired")
					return
				}
				response.Error(w, http.StatusUnauthorized, "invalid access token")
				return
			}

			if claims.Role != string(role) {
				response.Error(w, http.StatusForbidden, "token not valid for this resource")
				return
			}

			source, ok := am.sources[role]
			if !ok {
				response.Error(w, http.StatusForbidden, "unknown role")
				return
			}

			p, err := source.GetPrincipal(r.Context(), claims.ID)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "account no longer exists")
				return
			}
			if p.IsBlocked {
				response.Error(w, http.StatusForbidden, "account is blocked")
				return
			}
			if !p.IsVerified {
				response.Error(w, http.StatusForbidden, "account is not verified")
				return
			}

			next.ServeHTTP(w, setContextValues(r, p, token))
		})
	}
}

func extractBearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
