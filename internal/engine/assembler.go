package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"argus/internal/domain/results"
	"argus/internal/events"
	"argus/internal/metrics"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// ResultAssembler stamps computed rows and writes them to the output store.
// Each write replaces the (instrument_id, baseline_date) slice in one
// transaction, so rerunning a unit leaves the store in the same state as
// running it once.
type ResultAssembler struct {
	results   results.Repository
	publisher events.Publisher
	recorder  *metrics.Recorder
	now       func() time.Time
	log       *logger.Logger
}

// NewResultAssembler creates a result assembler
func NewResultAssembler(resultRepo results.Repository, publisher events.Publisher, recorder *metrics.Recorder) *ResultAssembler {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &ResultAssembler{
		results:   resultRepo,
		publisher: publisher,
		recorder:  recorder,
		now:       time.Now,
		log:       logger.Get().With("component", "result_assembler"),
	}
}

// PersistSelections replaces the stored strike selections for one unit
func (a *ResultAssembler) PersistSelections(ctx context.Context, instrumentID string, baselineDate time.Time, rows []results.StrikeSelection) error {
	stamp := a.now().UTC()
	for i := range rows {
		rows[i].RunTimestamp = stamp
	}

	if err := a.results.ReplaceSelections(ctx, instrumentID, baselineDate, rows); err != nil {
		return errors.Wrapf(err, "replace selections for %s/%s", instrumentID, baselineDate.Format("2006-01-02"))
	}

	if a.recorder != nil {
		a.recorder.SelectionsWritten(len(rows))
	}
	return nil
}

// PersistReductions replaces the stored reduction events for one unit and
// publishes the fresh set. Publication is best-effort: a publish failure is
// logged and never rolls back the transactional write.
func (a *ResultAssembler) PersistReductions(ctx context.Context, runID uuid.UUID, instrumentID string, baselineDate time.Time, rows []results.ReductionEvent) error {
	stamp := a.now().UTC()
	for i := range rows {
		rows[i].RunTimestamp = stamp
	}

	if err := a.results.ReplaceReductionEvents(ctx, instrumentID, baselineDate, rows); err != nil {
		return errors.Wrapf(err, "replace reduction events for %s/%s", instrumentID, baselineDate.Format("2006-01-02"))
	}

	if a.recorder != nil {
		a.recorder.ReductionEventsWritten(len(rows))
	}

	if len(rows) > 0 {
		if err := a.publisher.PublishReductions(ctx, runID, rows); err != nil {
			a.log.Warnw("Failed to publish reduction events",
				"instrument", instrumentID,
				"events", len(rows),
				"error", err,
			)
		}
	}
	return nil
}
