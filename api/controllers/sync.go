package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/api/middleware"
	"github.com/forecourtlabs/forecourt-backend/api/responses"
	"github.com/forecourtlabs/forecourt-backend/api/validators"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

type syncCounter interface {
	CountByStatus(stationID uuid.UUID) (map[enums.SyncStatus]int64, error)
}

type deadLetterLister interface {
	List(stationID uuid.UUID, limit int) ([]models.SyncDeadLetter, error)
}

type syncStatusResponse struct {
	Pending    int64 `json:"pending"`
	InFlight   int64 `json:"in_flight"`
	Synced     int64 `json:"synced"`
	Failed     int64 `json:"failed"`
	DeadLetter int64 `json:"dead_letter"`
}

// SyncStatus reports the outbox depth per status for the station.
func SyncStatus(repo syncCounter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := repo.CountByStatus(middleware.StationIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, syncStatusResponse{
			Pending:    counts[enums.SyncStatusPending],
			InFlight:   counts[enums.SyncStatusInFlight],
			Synced:     counts[enums.SyncStatusSynced],
			Failed:     counts[enums.SyncStatusFailed],
			DeadLetter: counts[enums.SyncStatusDeadLettered],
		})
	}
}

// SyncDeadLetters lists operations the publisher gave up on, newest first.
func SyncDeadLetters(dlq deadLetterLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := dlq.List(middleware.StationIDFromContext(r.Context()), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
