package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forecourtlabs/forecourt-backend/api/middleware"
	"github.com/forecourtlabs/forecourt-backend/api/responses"
	"github.com/forecourtlabs/forecourt-backend/api/validators"
	"github.com/forecourtlabs/forecourt-backend/internal/meters"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

type createDeviceRequest struct {
	PumpLabel      string `json:"pump_label" validate:"required,max=60"`
	ProductID      string `json:"product_id" validate:"required,uuid"`
	InitialReading string `json:"initial_reading" validate:"required"`
}

type assignDeviceRequest struct {
	ShiftID string  `json:"shift_id" validate:"required,uuid"`
	StaffID *string `json:"staff_id,omitempty" validate:"omitempty,uuid"`
}

type editReadingRequest struct {
	Value string `json:"value" validate:"required"`
}

// DeviceCreate registers a pump meter for the station on the token.
func DeviceCreate(svc meters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDeviceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "product_id must be a uuid"))
			return
		}
		reading, err := decimal.NewFromString(strings.TrimSpace(req.InitialReading))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "initial_reading must be a decimal string"))
			return
		}

		device, err := svc.Create(r.Context(), meters.CreateInput{
			StationID:      middleware.StationIDFromContext(r.Context()),
			PumpLabel:      strings.TrimSpace(req.PumpLabel),
			ProductID:      productID,
			InitialReading: reading,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, device)
	}
}

// DeviceList returns every meter registered at the station.
func DeviceList(svc meters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListByStation(r.Context(), middleware.StationIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// DeviceDetail returns one meter by id.
func DeviceDetail(svc meters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, err := validators.ParsePathUUID(chi.URLParam(r, "deviceId"), "deviceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		device, err := svc.Get(r.Context(), deviceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, device)
	}
}

// DeviceAssign binds a meter to a shift, optionally naming the attendant.
func DeviceAssign(svc meters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, err := validators.ParsePathUUID(chi.URLParam(r, "deviceId"), "deviceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignDeviceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shiftID, err := uuid.Parse(req.ShiftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "shift_id must be a uuid"))
			return
		}

		input := meters.AssignInput{
			DeviceID: deviceID,
			ShiftID:  shiftID,
			ActorID:  middleware.ActorIDFromContext(r.Context()),
		}
		if req.StaffID != nil {
			staffID, err := uuid.Parse(*req.StaffID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "staff_id must be a uuid"))
				return
			}
			input.StaffID = &staffID
		}

		device, err := svc.Assign(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, device)
	}
}

// DeviceSetOpeningReading corrects the opening reading under supervision.
func DeviceSetOpeningReading(svc meters.Service, logg *logger.Logger) http.HandlerFunc {
	return editReadingHandler(func(ctx context.Context, input meters.EditInput) (*models.MeteringDevice, error) {
		return svc.SetOpeningReading(ctx, input)
	}, logg)
}

// DeviceSetClosingReading corrects the closing reading under supervision.
func DeviceSetClosingReading(svc meters.Service, logg *logger.Logger) http.HandlerFunc {
	return editReadingHandler(func(ctx context.Context, input meters.EditInput) (*models.MeteringDevice, error) {
		return svc.SetClosingReading(ctx, input)
	}, logg)
}

func editReadingHandler(edit func(ctx context.Context, input meters.EditInput) (*models.MeteringDevice, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, err := validators.ParsePathUUID(chi.URLParam(r, "deviceId"), "deviceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req editReadingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		value, err := decimal.NewFromString(strings.TrimSpace(req.Value))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "value must be a decimal string"))
			return
		}

		device, err := edit(r.Context(), meters.EditInput{
			DeviceID: deviceID,
			ActorID:  middleware.ActorIDFromContext(r.Context()),
			Value:    value,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, device)
	}
}
