package middleware

import (
	"net/http"
	"parkade/pkg/auth"
	apperrors "parkade/pkg/errors"
	"parkade/pkg/logger"
)

const (
	HeaderPrincipalID   = "X-Principal-Id"
	HeaderPrincipalRole = "X-Principal-Role"
)

// PrincipalAuth extracts the caller identity set by the upstream identity
// provider. The gateway has already verified the credential; this core only
// requires that a principal with a known role is present.
func PrincipalAuth(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderPrincipalID)
			role := auth.Role(r.Header.Get(HeaderPrincipalRole))

			if id == "" || !auth.ValidRole(role) {
				log.Warn("Rejected request without valid principal",
					"method", r.Method,
					"path", r.URL.Path,
					"role", string(role),
				)
				_ = apperrors.WriteError(w, apperrors.Unauthorized("Missing or invalid principal"))
				return
			}

			ctx := auth.WithPrincipal(r.Context(), auth.Principal{ID: id, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
