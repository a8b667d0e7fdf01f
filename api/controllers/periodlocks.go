package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/forecourtlabs/forecourt-backend/api/middleware"
	"github.com/forecourtlabs/forecourt-backend/api/responses"
	"github.com/forecourtlabs/forecourt-backend/api/validators"
	"github.com/forecourtlabs/forecourt-backend/internal/audit"
	"github.com/forecourtlabs/forecourt-backend/internal/periodlock"
	"github.com/forecourtlabs/forecourt-backend/internal/permissions"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

type setPeriodLockRequest struct {
	LockedBefore string `json:"locked_before" validate:"required"`
}

// PeriodLockGet returns the station's current lock boundary.
func PeriodLockGet(svc periodlock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lock, err := svc.Get(r.Context(), middleware.StationIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lock)
	}
}

// PeriodLockSet advances the lock boundary. The move is capability-gated and
// lands in the audit chain.
func PeriodLockSet(svc periodlock.Service, gate permissions.Service, auditor audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := middleware.ActorIDFromContext(r.Context())
		if err := gate.Require(r.Context(), actorID, enums.CapSetPeriodLock); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setPeriodLockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		boundary, err := time.Parse(time.RFC3339, strings.TrimSpace(req.LockedBefore))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "locked_before must be RFC3339"))
			return
		}

		stationID := middleware.StationIDFromContext(r.Context())
		lock, err := svc.SetLock(r.Context(), periodlock.SetLockInput{
			StationID:    stationID,
			LockedBefore: boundary.UTC(),
			SetBy:        actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := auditor.Record(r.Context(), audit.Input{
			StationID: stationID,
			ActorID:   actorID,
			Action:    enums.AuditPeriodLockSet,
			RecordRef: "period_lock:" + stationID.String(),
			Payload:   map[string]any{"locked_before": lock.LockedBefore},
		}); err != nil {
			logg.Error(r.Context(), "period lock audit write failed", err)
		}
		responses.WriteSuccess(w, lock)
	}
}
