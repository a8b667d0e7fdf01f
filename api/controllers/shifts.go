package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forecourtlabs/forecourt-backend/api/middleware"
	"github.com/forecourtlabs/forecourt-backend/api/responses"
	"github.com/forecourtlabs/forecourt-backend/api/validators"
	"github.com/forecourtlabs/forecourt-backend/internal/shifts"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

type shiftDeviceAssignment struct {
	DeviceID string  `json:"device_id" validate:"required,uuid"`
	StaffID  *string `json:"staff_id,omitempty" validate:"omitempty,uuid"`
}

type openShiftRequest struct {
	Name     string                  `json:"name" validate:"max=120"`
	StaffIDs []string                `json:"staff_ids" validate:"required,min=1,dive,uuid"`
	Devices  []shiftDeviceAssignment `json:"devices" validate:"dive"`
}

type closeShiftRequest struct {
	DeclaredCash  *string `json:"declared_cash,omitempty"`
	Force         bool    `json:"force"`
	SupervisorPIN string  `json:"supervisor_pin" validate:"max=12"`
}

// ShiftOpen starts a shift for the station on the token.
func ShiftOpen(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openShiftRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		staffIDs := make([]uuid.UUID, 0, len(req.StaffIDs))
		for _, raw := range req.StaffIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "staff_ids must be uuids"))
				return
			}
			staffIDs = append(staffIDs, id)
		}

		devices := make([]shifts.DeviceAssignment, 0, len(req.Devices))
		for _, d := range req.Devices {
			deviceID, err := uuid.Parse(d.DeviceID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "device_id must be a uuid"))
				return
			}
			assignment := shifts.DeviceAssignment{DeviceID: deviceID}
			if d.StaffID != nil {
				staffID, err := uuid.Parse(*d.StaffID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w,
						pkgerrors.New(pkgerrors.CodeValidation, "staff_id must be a uuid"))
					return
				}
				assignment.StaffID = &staffID
			}
			devices = append(devices, assignment)
		}

		shift, err := svc.Open(r.Context(), shifts.OpenInput{
			StationID: middleware.StationIDFromContext(r.Context()),
			Name:      strings.TrimSpace(req.Name),
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			StaffIDs:  staffIDs,
			Devices:   devices,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shift)
	}
}

// ShiftClose ends a shift, reconciling meters and cash first.
func ShiftClose(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID, err := validators.ParsePathUUID(chi.URLParam(r, "shiftId"), "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req closeShiftRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		declared, err := parseOptionalDecimal(req.DeclaredCash, "declared_cash")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Close(r.Context(), shifts.CloseInput{
			ShiftID:       shiftID,
			ActorID:       middleware.ActorIDFromContext(r.Context()),
			DeclaredCash:  declared,
			Force:         req.Force,
			SupervisorPIN: req.SupervisorPIN,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ShiftReconciliationPreview reports variances without closing anything.
func ShiftReconciliationPreview(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID, err := validators.ParsePathUUID(chi.URLParam(r, "shiftId"), "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var declared *decimal.Decimal
		if raw := strings.TrimSpace(r.URL.Query().Get("declared_cash")); raw != "" {
			declared, err = parseOptionalDecimal(&raw, "declared_cash")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		report, err := svc.Preview(r.Context(), shiftID, declared)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// ShiftActive returns the station's open shift.
func ShiftActive(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shift, err := svc.GetActive(r.Context(), middleware.StationIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shift)
	}
}

// ShiftDetail returns one shift by id.
func ShiftDetail(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID, err := validators.ParsePathUUID(chi.URLParam(r, "shiftId"), "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shift, err := svc.Get(r.Context(), shiftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shift)
	}
}

// ShiftList returns the station's recent shifts.
func ShiftList(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 30, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListRecent(r.Context(), middleware.StationIDFromContext(r.Context()), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func parseOptionalDecimal(raw *string, field string) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string").
			WithDetails(map[string]any{"field": field})
	}
	return &value, nil
}
