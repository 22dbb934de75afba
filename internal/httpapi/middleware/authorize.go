package middleware

import (
	"net/http"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/authz"
)

// Authorize checks rule for the subject RequireAuth placed in the context.
// A nil rule is denied.
func Authorize(az authz.Authorizer, rule *authz.Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, _ := authn.SubjectFromContext(r.Context())
			if d := authz.Check(az, sub, rule); !d.Allowed {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
