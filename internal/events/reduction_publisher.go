package events

import (
	"context"

	"github.com/google/uuid"

	"argus/internal/adapters/kafka"
	"argus/internal/domain/results"
	"argus/pkg/logger"
)

// ReductionPublisher publishes reduction crossings to Kafka, keyed by
// instrument so all events of one instrument land in the same partition
type ReductionPublisher struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

// NewReductionPublisher creates a Kafka-backed reduction publisher
func NewReductionPublisher(producer *kafka.Producer, topic string) *ReductionPublisher {
	return &ReductionPublisher{
		producer: producer,
		topic:    topic,
		log:      logger.Get().With("component", "reduction_publisher"),
	}
}

// PublishReductions sends one message per crossing
func (p *ReductionPublisher) PublishReductions(ctx context.Context, runID uuid.UUID, events []results.ReductionEvent) error {
	for _, e := range events {
		msg := NewReductionMessage(runID, e)
		if err := p.producer.Publish(ctx, p.topic, e.InstrumentID, msg); err != nil {
			return err
		}
	}

	p.log.Debugw("Published reduction events",
		"run_id", runID.String(),
		"count", len(events),
	)
	return nil
}
