package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/api/middleware"
	"github.com/forecourtlabs/forecourt-backend/api/responses"
	"github.com/forecourtlabs/forecourt-backend/api/validators"
	"github.com/forecourtlabs/forecourt-backend/internal/customers"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
	"github.com/forecourtlabs/forecourt-backend/pkg/outbox"
)

type createCustomerRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	CreditLimit *string `json:"credit_limit,omitempty"`
}

type recordPaymentRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type mutationEnqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, m outbox.Mutation) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CustomerCreate registers a credit customer at the station.
func CustomerCreate(svc customers.Service, ob mutationEnqueuer, db txRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCustomerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := parseOptionalDecimal(req.CreditLimit, "credit_limit")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.Create(r.Context(), customers.CreateInput{
			StationID:   middleware.StationIDFromContext(r.Context()),
			Name:        strings.TrimSpace(req.Name),
			Phone:       req.Phone,
			CreditLimit: limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := db.WithTx(r.Context(), func(tx *gorm.DB) error {
			return ob.Enqueue(r.Context(), tx, customerMutation(customer, enums.SyncOpCreate))
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

// CustomerList returns the station's credit customers.
func CustomerList(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), middleware.StationIDFromContext(r.Context()), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CustomerDetail returns one customer by id.
func CustomerDetail(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParsePathUUID(chi.URLParam(r, "customerId"), "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Get(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// CustomerRecordPayment reduces a customer's dues by a repayment. The dues
// change and its sync operation commit together.
func CustomerRecordPayment(svc customers.Service, ob mutationEnqueuer, db txRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParsePathUUID(chi.URLParam(r, "customerId"), "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := parseOptionalDecimal(&req.Amount, "amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if amount == nil || !amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive"))
			return
		}

		var customer *models.Customer
		err = db.WithTx(r.Context(), func(tx *gorm.DB) error {
			updated, err := svc.RecordPaymentTx(r.Context(), tx, customerID, *amount)
			if err != nil {
				return err
			}
			customer = updated
			return ob.Enqueue(r.Context(), tx, customerMutation(customer, enums.SyncOpUpdate))
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

func customerMutation(customer *models.Customer, op enums.SyncOperationType) outbox.Mutation {
	return outbox.Mutation{
		StationID:  customer.StationID,
		OpType:     op,
		Collection: enums.CollectionCustomers,
		DocumentID: customer.ID,
		Data:       customer,
		Priority:   outbox.PriorityInventory,
	}
}
