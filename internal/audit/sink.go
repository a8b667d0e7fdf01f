package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
	"github.com/forecourtlabs/forecourt-backend/pkg/logger"
	"github.com/forecourtlabs/forecourt-backend/pkg/metrics"
)

// Sink decouples audit appends from the request path. Events are queued on a
// bounded channel and drained by a single goroutine, which also keeps chain
// sequencing free of write contention. When the queue is full the event is
// dropped and counted rather than blocking the caller.
type Sink struct {
	service   Service
	stationID uuid.UUID
	queue     chan Input
	done      chan struct{}
	logg      *logger.Logger
	metrics   *metrics.AuditMetrics
}

// NewSink builds a sink with the given queue capacity.
func NewSink(service Service, stationID uuid.UUID, queueSize int, logg *logger.Logger, m *metrics.AuditMetrics) (*Sink, error) {
	if service == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if stationID == uuid.Nil {
		return nil, fmt.Errorf("station id required")
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Sink{
		service:   service,
		stationID: stationID,
		queue:     make(chan Input, queueSize),
		done:      make(chan struct{}),
		logg:      logg,
		metrics:   m,
	}, nil
}

// Record queues one event. It never blocks the caller.
func (s *Sink) Record(ctx context.Context, input Input) {
	if input.StationID == uuid.Nil {
		input.StationID = s.stationID
	}
	select {
	case s.queue <- input:
		s.metrics.SetQueueDepth(len(s.queue))
	default:
		s.metrics.IncDropped()
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "action", string(input.Action)), "audit queue full, event dropped")
		}
	}
}

// PermissionDenied satisfies the permission gate's denial recorder.
func (s *Sink) PermissionDenied(ctx context.Context, actorID uuid.UUID, capability enums.Capability) {
	s.Record(ctx, Input{
		StationID: s.stationID,
		ActorID:   actorID,
		Action:    enums.AuditPermissionDenied,
		RecordRef: "capability:" + string(capability),
		Payload:   map[string]string{"capability": string(capability)},
	})
}

// Run drains the queue until the context is cancelled, then flushes what is
// already queued before returning.
func (s *Sink) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case input := <-s.queue:
			s.append(input)
			s.metrics.SetQueueDepth(len(s.queue))
		case <-ctx.Done():
			for {
				select {
				case input := <-s.queue:
					s.append(input)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (s *Sink) Wait() {
	<-s.done
}

func (s *Sink) append(input Input) {
	// Appends run outside the originating request; use a fresh context.
	if _, err := s.service.Record(context.Background(), input); err != nil {
		s.metrics.IncAppendFailure()
		if s.logg != nil {
			ctx := s.logg.WithFields(context.Background(), map[string]any{
				"action":     string(input.Action),
				"record_ref": input.RecordRef,
			})
			s.logg.Error(ctx, "audit append failed", err)
		}
	}
}
