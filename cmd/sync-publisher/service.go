package main

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/config"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
	"github.com/forecourtlabs/forecourt-backend/pkg/metrics"
	"github.com/forecourtlabs/forecourt-backend/pkg/outbox"
	"github.com/forecourtlabs/forecourt-backend/pkg/synctransport"
)

const (
	defaultBatchSize = 50
	defaultPollMs    = 500
	maxIdleBackoff   = 10 * time.Second
	jitterWindow     = 250 * time.Millisecond
	// reclaimGrace pads the in-flight reclaim window past the push timeout so
	// an operation is only re-fetched after its delivery truly went dark.
	reclaimGrace = time.Minute
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchDue(tx *gorm.DB, limit int, now time.Time) ([]models.SyncOperation, error)
	MarkInFlightTx(tx *gorm.DB, ids []uuid.UUID, reclaimAt time.Time) error
	CountByStatus(stationID uuid.UUID) (map[enums.SyncStatus]int64, error)
}

type resultSink interface {
	MarkResult(ctx context.Context, opID uuid.UUID, outcome outbox.Outcome) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository outboxRepository
	Outbox     resultSink
	Pusher     synctransport.Pusher
	Metrics    *metrics.SyncPublisherMetrics
}

// Service drains the sync outbox: fetch a due batch in priority order, push
// it to the remote store, and report each verdict back so retry bookkeeping
// and dead-lettering stay in one place.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	outbox       resultSink
	pusher       synctransport.Pusher
	metrics      *metrics.SyncPublisherMetrics
	stationID    uuid.UUID
	batchSize    int
	pollInterval time.Duration
	pushTimeout  time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service is required")
	}
	if params.Pusher == nil {
		return nil, errors.New("sync pusher is required")
	}

	stationID, err := uuid.Parse(params.Config.App.StationID)
	if err != nil {
		return nil, errors.New("station id must be a valid uuid")
	}

	batch := params.Config.Sync.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Sync.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		outbox:       params.Outbox,
		pusher:       params.Pusher,
		metrics:      params.Metrics,
		stationID:    stationID,
		batchSize:    batch,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
		pushTimeout:  params.Config.Sync.PushTimeout,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return err
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "sync publisher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "sync publisher batch error", err)
			backoff = nextBackoff(backoff, interval, maxIdleBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval
		s.publishPendingGauge(ctx)

		if processed {
			continue
		}
		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// processBatch claims one batch and delivers it. The claim runs in its own
// transaction so a crash mid-push leaves the rows in flight until the
// reclaim window reopens them.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var batch []models.SyncOperation
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		ops, err := s.repo.FetchDue(tx, s.batchSize, now)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(ops))
		for _, op := range ops {
			ids = append(ids, op.ID)
		}
		if err := s.repo.MarkInFlightTx(tx, ids, now.Add(s.pushTimeout+reclaimGrace)); err != nil {
			return err
		}
		batch = ops
		return nil
	})
	if err != nil {
		return false, err
	}
	if len(batch) == 0 {
		return false, nil
	}

	s.metrics.ObserveBatchSize(len(batch))

	pushCtx := ctx
	if s.pushTimeout > 0 {
		var cancel context.CancelFunc
		pushCtx, cancel = context.WithTimeout(ctx, s.pushTimeout)
		defer cancel()
	}

	start := time.Now()
	results, pushErr := s.pusher.Push(pushCtx, s.stationID, batch)
	s.metrics.ObservePushDuration(time.Since(start))

	if pushErr != nil {
		// Whole-batch transport failure: every operation burns one retryable
		// attempt and waits out its backoff. Bookkeeping failures are
		// collected rather than aborting the loop, so the remaining rows
		// still get their attempt recorded.
		var markErr error
		for _, op := range batch {
			if err := s.outbox.MarkResult(ctx, op.ID, outbox.Outcome{Err: pushErr}); err != nil {
				markErr = multierr.Append(markErr, err)
				continue
			}
			s.metrics.IncFailed(string(op.Collection))
		}
		return true, multierr.Append(pushErr, markErr)
	}

	verdicts := make(map[uuid.UUID]synctransport.PushResult, len(results))
	for _, r := range results {
		verdicts[r.OperationID] = r
	}

	var markErr error
	for _, op := range batch {
		verdict, ok := verdicts[op.ID]
		if !ok {
			if err := s.outbox.MarkResult(ctx, op.ID, outbox.Outcome{Err: errors.New("no verdict in push response")}); err != nil {
				markErr = multierr.Append(markErr, err)
				continue
			}
			s.metrics.IncFailed(string(op.Collection))
			continue
		}

		outcome := outbox.Outcome{Success: verdict.Applied, Permanent: verdict.Permanent}
		if !verdict.Applied {
			msg := verdict.Error
			if msg == "" {
				msg = "remote rejected operation"
			}
			outcome.Err = errors.New(msg)
		}
		if err := s.outbox.MarkResult(ctx, op.ID, outcome); err != nil {
			markErr = multierr.Append(markErr, err)
			continue
		}

		switch {
		case verdict.Applied:
			s.metrics.IncPublished(string(op.Collection))
		case verdict.Permanent:
			s.metrics.IncDeadLettered(string(op.Collection))
		default:
			s.metrics.IncFailed(string(op.Collection))
		}
	}
	return true, markErr
}

func (s *Service) publishPendingGauge(ctx context.Context) {
	counts, err := s.repo.CountByStatus(s.stationID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "could not read outbox depth")
		return
	}
	pending := counts[enums.SyncStatusPending] +
		counts[enums.SyncStatusFailed] +
		counts[enums.SyncStatusInFlight]
	s.metrics.SetPending(pending)
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
