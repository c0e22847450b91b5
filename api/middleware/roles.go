package middleware

import (
	"net/http"
	"slices"

	"github.com/storetrail/storetrail-backend/api/responses"
	"github.com/storetrail/storetrail-backend/pkg/enums"
	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
	"github.com/storetrail/storetrail-backend/pkg/logger"
)

// RequireRole must run after Auth. Anyone outside roles gets 403.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			switch {
			case role == "":
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			case !slices.Contains(roles, enums.UserRole(role)):
				responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s not permitted", role))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
