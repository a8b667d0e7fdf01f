package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/forecourtlabs/forecourt-backend/pkg/db"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

// Mutation describes one aggregate change the remote store must learn about.
type Mutation struct {
	StationID  uuid.UUID
	OpType     enums.SyncOperationType
	Collection enums.SyncCollection
	DocumentID uuid.UUID
	Data       any
	Priority   int
}

// Outcome reports one delivery attempt back to the outbox.
type Outcome struct {
	Success bool
	Err     error
	// Permanent marks a failure that must not be retried (e.g. the remote
	// rejected the payload as malformed).
	Permanent bool
}

type enqueueRepository interface {
	InsertTx(tx *gorm.DB, op models.SyncOperation) error
	ExistsTx(tx *gorm.DB, id uuid.UUID) (bool, error)
	MarkSynced(id uuid.UUID, at time.Time) (int64, error)
	MarkFailed(id uuid.UUID, deliveryErr error, nextAttempt time.Time) error
	MarkDeadLetteredTx(tx *gorm.DB, id uuid.UUID, deliveryErr error) error
	Get(id uuid.UUID) (*models.SyncOperation, error)
}

type dlqInserter interface {
	InsertTx(tx *gorm.DB, entry models.SyncDeadLetter) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Options tunes retry bookkeeping.
type Options struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

type Service struct {
	repo enqueueRepository
	dlq  dlqInserter
	db   txRunner
	logg *logger.Logger
	opts Options
}

func NewService(repo enqueueRepository, dlq dlqInserter, db txRunner, logg *logger.Logger, opts Options) (*Service, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	if dlq == nil {
		return nil, errors.New("dlq repository required")
	}
	if db == nil {
		return nil, errors.New("transaction runner required")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 2 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Minute
	}
	return &Service{repo: repo, dlq: dlq, db: db, logg: logg, opts: opts}, nil
}

// Enqueue records a mutation inside the caller's transaction. Calling it
// twice for the same logical mutation leaves at most one pending operation:
// the id is deterministic and both an existence probe and the primary-key
// constraint guard the insert.
func (s *Service) Enqueue(ctx context.Context, tx *gorm.DB, m Mutation) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if m.StationID == uuid.Nil {
		return errors.New("station id required")
	}
	if !m.OpType.IsValid() {
		return errors.New("invalid sync operation type")
	}
	if !m.Collection.IsValid() {
		return errors.New("invalid sync collection")
	}
	if m.DocumentID == uuid.Nil {
		return errors.New("document id required")
	}

	payload, err := json.Marshal(m.Data)
	if err != nil {
		return err
	}

	id := OperationID(m.Collection, m.DocumentID, m.OpType)
	exists, err := s.repo.ExistsTx(tx, id)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	op := models.SyncOperation{
		ID:         id,
		StationID:  m.StationID,
		OpType:     m.OpType,
		Collection: m.Collection,
		DocumentID: m.DocumentID,
		Payload:    payload,
		Status:     enums.SyncStatusPending,
		Priority:   m.Priority,
	}
	if err := s.repo.InsertTx(tx, op); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil
		}
		return err
	}

	if s.logg != nil {
		fields := map[string]any{
			"operation_id": id.String(),
			"collection":   m.Collection,
			"op_type":      m.OpType,
			"document_id":  m.DocumentID.String(),
		}
		s.logg.Debug(s.logg.WithFields(ctx, fields), "sync operation queued")
	}
	return nil
}

// MarkResult applies the outcome of exactly one delivery attempt. A success
// for an already-synced operation is a no-op; failures accumulate retry
// bookkeeping until the ceiling dead-letters the operation.
func (s *Service) MarkResult(ctx context.Context, opID uuid.UUID, outcome Outcome) error {
	if outcome.Success {
		affected, err := s.repo.MarkSynced(opID, time.Now().UTC())
		if err != nil {
			return err
		}
		if affected == 0 && s.logg != nil {
			s.logg.Debug(s.logg.WithField(ctx, "operation_id", opID.String()),
				"duplicate sync acknowledgement ignored")
		}
		return nil
	}

	deliveryErr := outcome.Err
	if deliveryErr == nil {
		deliveryErr = errors.New("delivery failed")
	}

	op, err := s.repo.Get(opID)
	if err != nil {
		return err
	}
	if op.Status.IsTerminal() {
		return nil
	}

	attempts := op.RetryCount + 1
	if outcome.Permanent || attempts >= s.opts.MaxAttempts {
		return s.deadLetter(ctx, op, deliveryErr, outcome.Permanent)
	}

	next := time.Now().UTC().Add(s.backoffFor(attempts))
	return s.repo.MarkFailed(opID, deliveryErr, next)
}

func (s *Service) deadLetter(ctx context.Context, op *models.SyncOperation, deliveryErr error, permanent bool) error {
	reason := enums.SyncDLQReasonMaxAttempts
	if permanent {
		reason = enums.SyncDLQReasonNonRetryable
	}
	msg := deliveryErr.Error()
	entry := models.SyncDeadLetter{
		ID:          uuid.Must(uuid.NewV7()),
		OperationID: op.ID,
		StationID:   op.StationID,
		OpType:      op.OpType,
		Collection:  op.Collection,
		DocumentID:  op.DocumentID,
		Payload:     op.Payload,
		Reason:      reason,
		LastError:   &msg,
		RetryCount:  op.RetryCount,
		FailedAt:    time.Now().UTC(),
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return err
		}
		return s.repo.MarkDeadLetteredTx(tx, op.ID, deliveryErr)
	})
	if err != nil {
		return err
	}
	if s.logg != nil {
		fields := map[string]any{
			"operation_id": op.ID.String(),
			"collection":   op.Collection,
			"reason":       reason,
			"retry_count":  op.RetryCount,
		}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "sync operation dead-lettered")
	}
	return nil
}

// backoffFor doubles the base per attempt, capped at MaxBackoff.
func (s *Service) backoffFor(attempts int) time.Duration {
	backoff := s.opts.BaseBackoff
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if backoff >= s.opts.MaxBackoff {
			return s.opts.MaxBackoff
		}
	}
	if backoff > s.opts.MaxBackoff {
		return s.opts.MaxBackoff
	}
	return backoff
}
