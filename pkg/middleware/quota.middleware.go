package middleware

import (
	"net/http"

	"jobnest-auth/pkg/response"
)

// RequireQuota rejects the request up front when the authenticated
// principal's counter is exhausted. The check is advisory; the repository
// transaction re-checks atomically, so a concurrent spend between this guard
// and the insert still cannot push the counter below zero. Principals
// without a counter (admins) pass through.
func RequireQuota(message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				response.Error(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if p.Quota != nil && !p.Quota.Unlimited && p.Quota.Remaining <= 0 {
				response.Error(w, http.StatusForbidden, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
