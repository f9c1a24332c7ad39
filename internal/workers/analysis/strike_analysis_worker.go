package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"argus/internal/adapters/config"
	"argus/internal/domain/instrument_metrics"
	"argus/internal/engine"
	"argus/internal/metrics"
	"argus/internal/workers"
	"argus/pkg/errors"
)

// StrikeAnalysisWorker runs the matching and reduction batch. Each
// (instrument, period) unit is independent, so units fan out over a bounded
// pool with no cross-unit coordination; one unit's failure never stops the
// others.
type StrikeAnalysisWorker struct {
	*workers.BaseWorker

	engine      *engine.Engine
	metricsRepo instrument_metrics.Repository
	cfg         config.EngineConfig
	recorder    *metrics.Recorder

	now func() time.Time
}

// NewStrikeAnalysisWorker creates the batch worker
func NewStrikeAnalysisWorker(
	eng *engine.Engine,
	metricsRepo instrument_metrics.Repository,
	cfg config.EngineConfig,
	workerCfg config.WorkerConfig,
	recorder *metrics.Recorder,
) *StrikeAnalysisWorker {
	return &StrikeAnalysisWorker{
		BaseWorker:  workers.NewBaseWorker("strike_analysis", workerCfg.AnalysisInterval, workerCfg.AnalysisEnabled),
		engine:      eng,
		metricsRepo: metricsRepo,
		cfg:         cfg,
		recorder:    recorder,
		now:         time.Now,
	}
}

// Run executes one batch: resolve the period, list the instruments, process
// every unit, and report collected failures without halting the run
func (w *StrikeAnalysisWorker) Run(ctx context.Context) error {
	period, err := w.resolvePeriod()
	if err != nil {
		return err
	}

	instruments := w.cfg.Instruments
	if len(instruments) == 0 {
		instruments, err = w.metricsRepo.ListInstruments(ctx, instrument_metrics.MetricType(w.cfg.MetricType), period)
		if err != nil {
			return errors.Wrap(err, "list instruments")
		}
	}
	if len(instruments) == 0 {
		w.Log().Infow("No instruments to process", "period", period.String())
		return nil
	}

	runID := uuid.New()
	w.Log().Infow("Batch run starting",
		"run_id", runID.String(),
		"period", period.String(),
		"instruments", len(instruments),
	)

	concurrency := w.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu              sync.Mutex
		merr            errors.MultiError
		totalSelections int64
		totalEvents     int64
		processed       int64
	)

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, instrumentID := range instruments {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			start := w.now()
			result, err := w.engine.ProcessUnit(ctx, runID, id, period)
			elapsed := w.now().Sub(start)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				merr.Add(errors.Wrapf(err, "unit %s/%s", id, period.String()))
				if w.recorder != nil {
					w.recorder.UnitFailed(failureReason(err))
				}
				w.Log().Errorw("Unit failed",
					"run_id", runID.String(),
					"instrument", id,
					"error", err,
				)
				return
			}

			processed++
			totalSelections += int64(result.Selections)
			totalEvents += int64(result.ReductionHits)
			if w.recorder != nil {
				w.recorder.UnitProcessed(elapsed.Seconds())
			}
		}(instrumentID)
	}
	wg.Wait()

	w.Log().Infow("Batch run finished",
		"run_id", runID.String(),
		"processed", processed,
		"failed", len(merr.Errors),
		"selections", humanize.Comma(totalSelections),
		"reduction_events", humanize.Comma(totalEvents),
	)

	return merr.ToError()
}

// resolvePeriod returns the configured month, defaulting to the previous
// calendar month
func (w *StrikeAnalysisWorker) resolvePeriod() (instrument_metrics.Period, error) {
	if w.cfg.Period == "" {
		return instrument_metrics.PreviousMonth(w.now().UTC()), nil
	}
	period, err := instrument_metrics.ParseMonth(w.cfg.Period)
	if err != nil {
		return instrument_metrics.Period{}, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	return period, nil
}

// failureReason buckets unit errors for the failure counter
func failureReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrNoBaseline):
		return "no_baseline"
	case errors.Is(err, errors.ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, errors.ErrZeroBaselinePrice):
		return "zero_baseline_price"
	case errors.Is(err, errors.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "store_error"
	}
}
