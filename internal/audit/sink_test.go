package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forecourtlabs/forecourt-backend/pkg/db/models"
	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
)

type countingService struct {
	mu      sync.Mutex
	inputs  []Input
	blocked chan struct{}
}

func (c *countingService) Record(ctx context.Context, input Input) (*models.AuditLogEntry, error) {
	if c.blocked != nil {
		<-c.blocked
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = append(c.inputs, input)
	return &models.AuditLogEntry{}, nil
}

func (c *countingService) RecordTx(ctx context.Context, tx *gorm.DB, input Input) (*models.AuditLogEntry, error) {
	return c.Record(ctx, input)
}

func (c *countingService) Verify(ctx context.Context, stationID uuid.UUID) (*VerifyResult, error) {
	return &VerifyResult{Valid: true}, nil
}

func (c *countingService) List(ctx context.Context, stationID uuid.UUID, fromSeq int64, limit int) ([]models.AuditLogEntry, error) {
	return nil, nil
}

func (c *countingService) recorded() []Input {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Input, len(c.inputs))
	copy(out, c.inputs)
	return out
}

func TestSink_DrainsQueuedEvents(t *testing.T) {
	svc := &countingService{}
	stationID := uuid.New()
	sink, err := NewSink(svc, stationID, 8, nil, nil)
	if err != nil {
		t.Fatalf("unexpected sink error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go sink.Run(ctx)

	for i := 0; i < 3; i++ {
		sink.Record(context.Background(), Input{
			ActorID:   uuid.New(),
			Action:    enums.AuditSaleCreated,
			RecordRef: "sale:n",
		})
	}

	deadline := time.After(2 * time.Second)
	for len(svc.recorded()) < 3 {
		select {
		case <-deadline:
			t.Fatalf("sink drained %d of 3 events", len(svc.recorded()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	sink.Wait()

	for _, input := range svc.recorded() {
		if input.StationID != stationID {
			t.Fatalf("sink should stamp its station id, got %s", input.StationID)
		}
	}
}

func TestSink_FlushesOnShutdown(t *testing.T) {
	svc := &countingService{}
	sink, err := NewSink(svc, uuid.New(), 8, nil, nil)
	if err != nil {
		t.Fatalf("unexpected sink error: %v", err)
	}

	// Queue before the drain loop starts, then cancel immediately: Run must
	// still flush what is already queued.
	for i := 0; i < 5; i++ {
		sink.Record(context.Background(), Input{
			ActorID:   uuid.New(),
			Action:    enums.AuditSaleCreated,
			RecordRef: "sale:n",
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go sink.Run(ctx)
	sink.Wait()

	if got := len(svc.recorded()); got != 5 {
		t.Fatalf("expected 5 flushed events, got %d", got)
	}
}

func TestSink_DropsWhenQueueFull(t *testing.T) {
	svc := &countingService{}
	sink, err := NewSink(svc, uuid.New(), 2, nil, nil)
	if err != nil {
		t.Fatalf("unexpected sink error: %v", err)
	}

	// No drain loop running: the third event has nowhere to go.
	for i := 0; i < 3; i++ {
		sink.Record(context.Background(), Input{
			ActorID:   uuid.New(),
			Action:    enums.AuditSaleCreated,
			RecordRef: "sale:n",
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go sink.Run(ctx)
	sink.Wait()

	if got := len(svc.recorded()); got != 2 {
		t.Fatalf("expected 2 events after overflow, got %d", got)
	}
}

type failingService struct {
	countingService
}

func (f *failingService) Record(ctx context.Context, input Input) (*models.AuditLogEntry, error) {
	return nil, errors.New("chain head unavailable")
}

func TestSink_SurvivesAppendFailure(t *testing.T) {
	svc := &failingService{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
	sink, err := NewSink(svc, uuid.New(), 4, logg, nil)
	if err != nil {
		t.Fatalf("unexpected sink error: %v", err)
	}

	sink.Record(context.Background(), Input{
		ActorID:   uuid.New(),
		Action:    enums.AuditSaleCreated,
		RecordRef: "sale:n",
	})

	// The drain loop logs the failure and keeps going rather than crashing.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go sink.Run(ctx)
	sink.Wait()

	if got := len(svc.recorded()); got != 0 {
		t.Fatalf("failed appends must not be recorded, got %d", got)
	}
}

func TestSink_PermissionDeniedAdapter(t *testing.T) {
	svc := &countingService{}
	stationID := uuid.New()
	sink, err := NewSink(svc, stationID, 4, nil, nil)
	if err != nil {
		t.Fatalf("unexpected sink error: %v", err)
	}

	actor := uuid.New()
	sink.PermissionDenied(context.Background(), actor, enums.CapForceClose)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go sink.Run(ctx)
	sink.Wait()

	inputs := svc.recorded()
	if len(inputs) != 1 {
		t.Fatalf("expected one denial event, got %d", len(inputs))
	}
	if inputs[0].Action != enums.AuditPermissionDenied || inputs[0].ActorID != actor {
		t.Fatalf("unexpected denial event: %+v", inputs[0])
	}
}
