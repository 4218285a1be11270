package middleware

import (
	"log/slog"
	"net/http"

	"github.com/luchovc/agency-portal/internal/auth"
)

// RequirePermission gates a route behind one or more capability tags. The
// actor needs any of them; super_admin passes every gate.
func RequirePermission(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := auth.ActorFromContext(r.Context())
			if !ok || actor == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !actor.HasAnyPermission(permissions) {
				slog.Warn("access denied: actor lacks required permissions",
					"actor_id", actor.ID,
					"role", actor.Role,
					"required_permissions", permissions)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
