package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"argus/internal/domain/results"
)

// Publisher announces freshly detected reduction crossings. Publication is
// best-effort and happens after the transactional write; it never affects
// output store state.
type Publisher interface {
	PublishReductions(ctx context.Context, runID uuid.UUID, events []results.ReductionEvent) error
}

// ReductionMessage is the wire payload for one reduction crossing
type ReductionMessage struct {
	RunID         string    `json:"run_id"`
	InstrumentID  string    `json:"instrument_id"`
	StrikePrice   float64   `json:"strike_price"`
	OptionClass   string    `json:"option_class"`
	BaselineDate  string    `json:"baseline_date"`
	BaselinePrice float64   `json:"baseline_price"`
	TargetDate    string    `json:"target_date"`
	TargetPrice   float64   `json:"target_price"`
	PctChange     float64   `json:"pct_change"`
	DetectedAt    time.Time `json:"detected_at"`
}

// NewReductionMessage builds the wire payload for one event
func NewReductionMessage(runID uuid.UUID, e results.ReductionEvent) ReductionMessage {
	return ReductionMessage{
		RunID:         runID.String(),
		InstrumentID:  e.InstrumentID,
		StrikePrice:   e.StrikePrice,
		OptionClass:   string(e.OptionClass),
		BaselineDate:  e.BaselineDate.Format("2006-01-02"),
		BaselinePrice: e.BaselinePrice,
		TargetDate:    e.TargetDate.Format("2006-01-02"),
		TargetPrice:   e.TargetPrice,
		PctChange:     e.PctChange,
		DetectedAt:    e.RunTimestamp,
	}
}

// NoopPublisher discards events; used when Kafka is not configured
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that does nothing
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

// PublishReductions does nothing
func (p *NoopPublisher) PublishReductions(ctx context.Context, runID uuid.UUID, events []results.ReductionEvent) error {
	return nil
}
