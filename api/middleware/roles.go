package middleware

import (
	"net/http"

	"github.com/forecourtlabs/forecourt-backend/api/responses"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

// RequireRole rejects requests whose token role is not in the allow list.
// Finer-grained checks run in the services through the permission gate; this
// keeps management surfaces off attendant terminals entirely.
func RequireRole(logg *logger.Logger, roles ...enums.StaffRole) func(http.Handler) http.Handler {
	allowed := make(map[enums.StaffRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if !allowed[role] {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.NewPermissionDenied("role:"+string(role)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
