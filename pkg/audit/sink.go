package audit

import (
	"context"
	"time"

	"parkade/pkg/kafka"
	"parkade/pkg/logger"
)

// Event kinds emitted by the reservation coordinator and space catalog.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationFinished  = "reservation.finished"
	EventSpaceMaintenanceSet  = "space.maintenance_set"
	EventSpaceMaintenanceEnd  = "space.maintenance_cleared"
)

// Event is a business fact recorded after a transaction commits.
type Event struct {
	Kind       string            `json:"kind"`
	ActorID    string            `json:"actor_id"`
	SubjectIDs map[string]string `json:"subject_ids"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Sink records audit events. Record is strictly fire-and-forget: delivery
// failure must never affect the outcome of the transaction that produced
// the event, so implementations log failures and return nothing.
type Sink interface {
	Record(ctx context.Context, event Event)
	Close() error
}

type kafkaSink struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewKafkaSink publishes audit events to Kafka, keyed by the space subject
// so per-space event order is preserved.
func NewKafkaSink(producer *kafka.Producer, log *logger.Logger) Sink {
	return &kafkaSink{
		producer: producer,
		log:      log,
	}
}

func (s *kafkaSink) Record(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	key := event.SubjectIDs["space_id"]
	if key == "" {
		key = event.ActorID
	}

	msg := kafka.NewMessage().
		WithKey(key).
		WithEventType(event.Kind).
		WithSource("parkade").
		WithValue(event).
		Build()

	if err := s.producer.Publish(ctx, msg); err != nil {
		s.log.Warn("Failed to record audit event",
			"kind", event.Kind,
			"actor_id", event.ActorID,
			"error", err,
		)
	}
}

func (s *kafkaSink) Close() error {
	return s.producer.Close()
}

type nopSink struct {
	log *logger.Logger
}

// NewNopSink is used when no broker is configured; events are only logged.
func NewNopSink(log *logger.Logger) Sink {
	return &nopSink{log: log}
}

func (s *nopSink) Record(_ context.Context, event Event) {
	s.log.Debug("Audit event (sink disabled)",
		"kind", event.Kind,
		"actor_id", event.ActorID,
	)
}

func (s *nopSink) Close() error {
	return nil
}
