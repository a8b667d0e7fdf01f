package controllers

import (
	"context"
	"net/http"

	"github.com/forecourtlabs/forecourt-backend/api/responses"
	"github.com/forecourtlabs/forecourt-backend/pkg/config"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

// Pinger is the readiness view of the database client.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status":  "live",
			"station": cfg.App.StationID,
		})
	}
}

// HealthReady checks the local store. A terminal with a broken database must
// not accept sales.
func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{
			"status":  "ready",
			"station": cfg.App.StationID,
		})
	}
}
