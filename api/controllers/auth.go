package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/api/responses"
	"github.com/forecourtlabs/forecourt-backend/api/validators"
	"github.com/forecourtlabs/forecourt-backend/internal/auth"
	"github.com/forecourtlabs/forecourt-backend/pkg/config"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

type loginRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	PIN    string `json:"pin" validate:"required,min=4,max=12"`
}

// AuthLogin exchanges a staff id plus PIN for an access token.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "user_id must be a uuid"))
			return
		}

		result, err := svc.Login(r.Context(), auth.LoginInput{UserID: userID, PIN: req.PIN})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuthRoster lists the station's staff for the login screen.
func AuthRoster(svc auth.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stationID, err := uuid.Parse(cfg.App.StationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeInternal, err, "station id misconfigured"))
			return
		}
		entries, err := svc.Roster(r.Context(), stationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
