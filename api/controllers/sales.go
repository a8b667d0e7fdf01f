package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forecourtlabs/forecourt-backend/api/middleware"
	"github.com/forecourtlabs/forecourt-backend/api/responses"
	"github.com/forecourtlabs/forecourt-backend/api/validators"
	"github.com/forecourtlabs/forecourt-backend/internal/sales"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

type recordSaleRequest struct {
	DeviceID      string  `json:"device_id" validate:"required,uuid"`
	Quantity      string  `json:"quantity" validate:"required"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	CustomerID    *string `json:"customer_id,omitempty" validate:"omitempty,uuid"`
	SaleDate      *string `json:"sale_date,omitempty"`
}

// SaleRecord books one dispense atomically across stock, meter, ledger and
// shift totals.
func SaleRecord(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordSaleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deviceID, err := uuid.Parse(req.DeviceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "device_id must be a uuid"))
			return
		}

		quantity, err := decimal.NewFromString(strings.TrimSpace(req.Quantity))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a decimal string"))
			return
		}

		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		input := sales.RecordSaleInput{
			StationID:     middleware.StationIDFromContext(r.Context()),
			ActorID:       middleware.ActorIDFromContext(r.Context()),
			DeviceID:      deviceID,
			Quantity:      quantity,
			PaymentMethod: method,
		}

		if req.CustomerID != nil {
			customerID, err := uuid.Parse(*req.CustomerID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "customer_id must be a uuid"))
				return
			}
			input.CustomerID = &customerID
		}

		if req.SaleDate != nil {
			saleDate, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.SaleDate))
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "sale_date must be RFC3339"))
				return
			}
			input.SaleDate = saleDate.UTC()
		}

		sale, err := svc.RecordSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

// SaleDetail returns one sale by id.
func SaleDetail(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := validators.ParsePathUUID(chi.URLParam(r, "saleId"), "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sale, err := svc.Get(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

// SalesByShift lists the sales booked on a shift.
func SalesByShift(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID, err := validators.ParsePathUUID(chi.URLParam(r, "shiftId"), "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByShift(r.Context(), shiftID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
