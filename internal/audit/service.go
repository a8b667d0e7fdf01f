package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	pkgerrors "github.com/forecourtlabs/forecourt-backend/pkg/errors"
)

// Input describes one event to append to the chain.
type Input struct {
	StationID uuid.UUID
	ActorID   uuid.UUID
	Action    enums.AuditAction
	RecordRef string
	// Payload is marshaled to JSON and covered by the entry hash.
	Payload any
}

// VerifyResult reports a full chain walk.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	Checked  int64  `json:"checked"`
	BadSeq   *int64 `json:"bad_seq,omitempty"`
	Reason   string `json:"reason,omitempty"`
	LastHash string `json:"last_hash,omitempty"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service appends to and verifies the tamper-evident audit chain.
type Service interface {
	// Record links and persists one entry. Sequencing happens inside a
	// transaction so concurrent appends cannot share a link.
	Record(ctx context.Context, input Input) (*models.AuditLogEntry, error)
	// RecordTx appends within the caller's transaction.
	RecordTx(ctx context.Context, tx *gorm.DB, input Input) (*models.AuditLogEntry, error)
	// Verify recomputes every hash for the station and reports the first
	// divergence, if any.
	Verify(ctx context.Context, stationID uuid.UUID) (*VerifyResult, error)
	List(ctx context.Context, stationID uuid.UUID, fromSeq int64, limit int) ([]models.AuditLogEntry, error)
}

type service struct {
	repo Repository
	db   txRunner
}

// NewService wires the audit service with the provided repository and
// transaction runner.
func NewService(repo Repository, db txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if db == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, db: db}, nil
}

func (s *service) Record(ctx context.Context, input Input) (*models.AuditLogEntry, error) {
	var entry *models.AuditLogEntry
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = s.RecordTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) RecordTx(ctx context.Context, tx *gorm.DB, input Input) (*models.AuditLogEntry, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.StationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, fmt.Errorf("actor id is required")
	}
	if !input.Action.IsValid() {
		return nil, fmt.Errorf("invalid audit action %q", input.Action)
	}
	if input.RecordRef == "" {
		return nil, fmt.Errorf("record ref is required")
	}

	payload, err := json.Marshal(input.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}

	repo := s.repo.WithTx(tx)
	last, err := repo.Last(ctx, input.StationID)
	if err != nil {
		return nil, err
	}

	seq := int64(1)
	prevHash := GenesisHash(input.StationID)
	if last != nil {
		seq = last.Seq + 1
		prevHash = last.CurrHash
	}

	entry := &models.AuditLogEntry{
		ID:        uuid.Must(uuid.NewV7()),
		StationID: input.StationID,
		Seq:       seq,
		ActorID:   input.ActorID,
		Action:    input.Action,
		RecordRef: input.RecordRef,
		Payload:   payload,
		PrevHash:  prevHash,
		CreatedAt: time.Now().UTC(),
	}
	entry.CurrHash = ComputeHash(prevHash, *entry)

	if err := repo.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

const verifyPageSize = 500

func (s *service) Verify(ctx context.Context, stationID uuid.UUID) (*VerifyResult, error) {
	if stationID == uuid.Nil {
		return nil, fmt.Errorf("station id is required")
	}

	result := &VerifyResult{Valid: true}
	expectedPrev := GenesisHash(stationID)
	nextSeq := int64(1)

	for {
		entries, err := s.repo.ListFrom(ctx, stationID, nextSeq, verifyPageSize)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			break
		}
		for i := range entries {
			e := entries[i]
			if e.Seq != nextSeq {
				return brokenAt(result, nextSeq, fmt.Sprintf("sequence gap: expected %d, found %d", nextSeq, e.Seq)), nil
			}
			if e.PrevHash != expectedPrev {
				return brokenAt(result, e.Seq, "previous-hash link mismatch"), nil
			}
			if ComputeHash(e.PrevHash, e) != e.CurrHash {
				return brokenAt(result, e.Seq, "entry hash mismatch"), nil
			}
			result.Checked++
			result.LastHash = e.CurrHash
			expectedPrev = e.CurrHash
			nextSeq = e.Seq + 1
		}
		if len(entries) < verifyPageSize {
			break
		}
	}

	return result, nil
}

func (s *service) List(ctx context.Context, stationID uuid.UUID, fromSeq int64, limit int) ([]models.AuditLogEntry, error) {
	if stationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "station id is required")
	}
	if fromSeq < 1 {
		fromSeq = 1
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.repo.ListFrom(ctx, stationID, fromSeq, limit)
}

func brokenAt(result *VerifyResult, seq int64, reason string) *VerifyResult {
	result.Valid = false
	bad := seq
	result.BadSeq = &bad
	result.Reason = reason
	return result
}
