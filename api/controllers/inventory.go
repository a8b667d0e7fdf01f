package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/api/middleware"
	"github.com/forecourtlabs/forecourt-backend/api/responses"
	"github.com/forecourtlabs/forecourt-backend/api/validators"
	"github.com/forecourtlabs/forecourt-backend/internal/inventory"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
	"github.com/forecourtlabs/forecourt-backend/pkg/outbox"
)

type stockReceiveRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  string `json:"quantity" validate:"required"`
	Reason    string `json:"reason,omitempty"`
}

// StockReceive books a delivery or adjustment. The level change and its sync
// operation commit together.
func StockReceive(svc inventory.Service, ob mutationEnqueuer, db txRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stockReceiveRequest
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
		quantity, err := parseOptionalDecimal(&req.Quantity, "quantity")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if quantity == nil || !quantity.IsPositive() {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive"))
			return
		}

		reason := enums.StockMovementDelivery
		if raw := strings.TrimSpace(req.Reason); raw != "" {
			parsed, err := enums.ParseStockMovementReason(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement reason"))
				return
			}
			reason = parsed
		}

		stationID := middleware.StationIDFromContext(r.Context())
		var level *models.StockLevel
		err = db.WithTx(r.Context(), func(tx *gorm.DB) error {
			updated, err := svc.ReceiveTx(r.Context(), tx, inventory.MovementInput{
				StationID: stationID,
				ProductID: productID,
				Quantity:  *quantity,
				Reason:    reason,
			})
			if err != nil {
				return err
			}
			level = updated
			return ob.Enqueue(r.Context(), tx, outbox.Mutation{
				StationID:  stationID,
				OpType:     enums.SyncOpUpdate,
				Collection: enums.CollectionStock,
				DocumentID: level.ProductID,
				Data:       level,
				Priority:   outbox.PriorityInventory,
			})
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, level)
	}
}

// StockLevel returns the current level for a product.
func StockLevel(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		level, err := svc.GetLevel(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if level == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "no stock level for product"))
			return
		}
		responses.WriteSuccess(w, level)
	}
}

// StockMovements lists the movement trail for a product, newest first.
func StockMovements(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		moves, err := svc.Movements(r.Context(), productID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, moves)
	}
}
