package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/config"
	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
	"github.com/forecourtlabs/forecourt-backend/pkg/metrics"
	"github.com/forecourtlabs/forecourt-backend/pkg/outbox"
	"github.com/forecourtlabs/forecourt-backend/pkg/synctransport"
)

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeRepo struct {
	due        []models.SyncOperation
	inFlight   []uuid.UUID
	reclaimAt  time.Time
	countCalls int
}

func (f *fakeRepo) FetchDue(tx *gorm.DB, limit int, now time.Time) ([]models.SyncOperation, error) {
	if limit < len(f.due) {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeRepo) MarkInFlightTx(tx *gorm.DB, ids []uuid.UUID, reclaimAt time.Time) error {
	f.inFlight = append(f.inFlight, ids...)
	f.reclaimAt = reclaimAt
	return nil
}

func (f *fakeRepo) CountByStatus(stationID uuid.UUID) (map[enums.SyncStatus]int64, error) {
	f.countCalls++
	return map[enums.SyncStatus]int64{enums.SyncStatusPending: int64(len(f.due))}, nil
}

type fakeSink struct {
	outcomes map[uuid.UUID]outbox.Outcome
}

func newFakeSink() *fakeSink {
	return &fakeSink{outcomes: map[uuid.UUID]outbox.Outcome{}}
}

func (f *fakeSink) MarkResult(ctx context.Context, opID uuid.UUID, outcome outbox.Outcome) error {
	f.outcomes[opID] = outcome
	return nil
}

type fakePusher struct {
	results []synctransport.PushResult
	err     error

	gotStation uuid.UUID
	gotOps     []models.SyncOperation
}

func (f *fakePusher) Push(ctx context.Context, stationID uuid.UUID, ops []models.SyncOperation) ([]synctransport.PushResult, error) {
	f.gotStation = stationID
	f.gotOps = ops
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func operation(collection enums.SyncCollection) models.SyncOperation {
	return models.SyncOperation{
		ID:         uuid.Must(uuid.NewV7()),
		StationID:  uuid.New(),
		OpType:     enums.SyncOpCreate,
		Collection: collection,
		DocumentID: uuid.New(),
		Payload:    []byte(`{}`),
		Status:     enums.SyncStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

func newTestService(t *testing.T, repo *fakeRepo, sink *fakeSink, pusher *fakePusher) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.StationID = uuid.NewString()
	cfg.Sync.BatchSize = 10
	cfg.Sync.PollIntervalMS = 10
	cfg.Sync.PushTimeout = time.Second

	svc, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "sync-publisher-test"}),
		DB:         fakeDB{},
		Repository: repo,
		Outbox:     sink,
		Pusher:     pusher,
		Metrics:    metrics.NewSyncPublisherMetrics(nil),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestProcessBatch_Empty(t *testing.T) {
	repo := &fakeRepo{}
	sink := newFakeSink()
	pusher := &fakePusher{}
	svc := newTestService(t, repo, sink, pusher)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch error: %v", err)
	}
	if processed {
		t.Fatal("empty outbox should not count as processed")
	}
	if pusher.gotOps != nil {
		t.Fatal("nothing should be pushed for an empty batch")
	}
}

func TestProcessBatch_AppliedAndRejected(t *testing.T) {
	applied := operation(enums.CollectionSales)
	rejected := operation(enums.CollectionStock)
	repo := &fakeRepo{due: []models.SyncOperation{applied, rejected}}
	sink := newFakeSink()
	pusher := &fakePusher{results: []synctransport.PushResult{
		{OperationID: applied.ID, Applied: true},
		{OperationID: rejected.ID, Permanent: true, Error: "schema mismatch"},
	}}
	svc := newTestService(t, repo, sink, pusher)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch error: %v", err)
	}
	if !processed {
		t.Fatal("batch should count as processed")
	}

	if len(repo.inFlight) != 2 {
		t.Fatalf("both operations should be claimed, got %d", len(repo.inFlight))
	}
	if !repo.reclaimAt.After(time.Now()) {
		t.Fatal("reclaim time must be in the future")
	}

	if outcome := sink.outcomes[applied.ID]; !outcome.Success {
		t.Fatalf("applied operation should succeed: %+v", outcome)
	}
	outcome := sink.outcomes[rejected.ID]
	if outcome.Success || !outcome.Permanent {
		t.Fatalf("rejected operation should be permanent: %+v", outcome)
	}
	if outcome.Err == nil || outcome.Err.Error() != "schema mismatch" {
		t.Fatalf("rejection reason should carry through: %v", outcome.Err)
	}
}

func TestProcessBatch_TransportFailure(t *testing.T) {
	first := operation(enums.CollectionSales)
	second := operation(enums.CollectionShifts)
	repo := &fakeRepo{due: []models.SyncOperation{first, second}}
	sink := newFakeSink()
	pushErr := errors.New("connection refused")
	pusher := &fakePusher{err: pushErr}
	svc := newTestService(t, repo, sink, pusher)

	processed, err := svc.processBatch(context.Background())
	if !errors.Is(err, pushErr) {
		t.Fatalf("transport error should surface, got %v", err)
	}
	if !processed {
		t.Fatal("a failed push still consumed the batch")
	}

	for _, op := range []models.SyncOperation{first, second} {
		outcome, ok := sink.outcomes[op.ID]
		if !ok {
			t.Fatalf("operation %s should have an outcome", op.ID)
		}
		if outcome.Success || outcome.Permanent {
			t.Fatalf("transport failure must be retryable: %+v", outcome)
		}
	}
}

func TestProcessBatch_MissingVerdictRetries(t *testing.T) {
	answered := operation(enums.CollectionSales)
	dropped := operation(enums.CollectionCustomers)
	repo := &fakeRepo{due: []models.SyncOperation{answered, dropped}}
	sink := newFakeSink()
	pusher := &fakePusher{results: []synctransport.PushResult{
		{OperationID: answered.ID, Applied: true},
	}}
	svc := newTestService(t, repo, sink, pusher)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch error: %v", err)
	}

	outcome := sink.outcomes[dropped.ID]
	if outcome.Success || outcome.Permanent {
		t.Fatalf("silent operation must retry: %+v", outcome)
	}
}

func TestProcessBatch_PushesStationBatch(t *testing.T) {
	op := operation(enums.CollectionJournals)
	repo := &fakeRepo{due: []models.SyncOperation{op}}
	sink := newFakeSink()
	pusher := &fakePusher{results: []synctransport.PushResult{{OperationID: op.ID, Applied: true}}}
	svc := newTestService(t, repo, sink, pusher)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch error: %v", err)
	}
	if pusher.gotStation != svc.stationID {
		t.Fatal("push must carry the configured station id")
	}
	if len(pusher.gotOps) != 1 || pusher.gotOps[0].ID != op.ID {
		t.Fatalf("unexpected pushed batch: %+v", pusher.gotOps)
	}
}

func TestNewService_RejectsBadStationID(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.StationID = "not-a-uuid"

	_, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "sync-publisher-test"}),
		DB:         fakeDB{},
		Repository: &fakeRepo{},
		Outbox:     newFakeSink(),
		Pusher:     &fakePusher{},
	})
	if err == nil {
		t.Fatal("expected an error for a malformed station id")
	}
}
