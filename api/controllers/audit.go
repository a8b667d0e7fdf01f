package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/forecourtlabs/forecourt-backend/api/middleware"
	"github.com/forecourtlabs/forecourt-backend/api/responses"
	"github.com/forecourtlabs/forecourt-backend/api/validators"
	"github.com/forecourtlabs/forecourt-backend/internal/audit"
	"github.com/forecourtlabs/forecourt-backend/internal/permissions"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

// AuditVerify walks the station's hash chain and reports the first break.
func AuditVerify(svc audit.Service, gate permissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := middleware.ActorIDFromContext(r.Context())
		if err := gate.Require(r.Context(), actorID, enums.CapViewAudit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Verify(r.Context(), middleware.StationIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuditList pages through the chain from a sequence number onward.
func AuditList(svc audit.Service, gate permissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := middleware.ActorIDFromContext(r.Context())
		if err := gate.Require(r.Context(), actorID, enums.CapViewAudit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fromSeq := int64(0)
		if raw := strings.TrimSpace(r.URL.Query().Get("from_seq")); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 0 {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "from_seq must be a non-negative integer"))
				return
			}
			fromSeq = parsed
		}
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.List(r.Context(), middleware.StationIDFromContext(r.Context()), fromSeq, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
