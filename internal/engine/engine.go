package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"argus/internal/domain/instrument_metrics"
	"argus/internal/domain/quotes"
	"argus/internal/domain/results"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// Params holds the matching and scan defaults used when a caller does not
// override them
type Params struct {
	MetricType      instrument_metrics.MetricType
	StrikesPerClass int
	OptionClasses   []quotes.OptionClass
	ThresholdPct    float64
	Mode            results.ScanMode
}

// DefaultParams returns the engine defaults: 3 strikes per class for both
// classes, first-crossing scans at a 50% drop, baselines from closing price
func DefaultParams() Params {
	return Params{
		MetricType:      instrument_metrics.MetricClosingPrice,
		StrikesPerClass: 3,
		OptionClasses:   []quotes.OptionClass{quotes.OptionClassCall, quotes.OptionClassPut},
		ThresholdPct:    50.0,
		Mode:            results.ScanFirst,
	}
}

// Engine wires the extractor, matcher, resolver, scanner and assembler into
// the two library operations plus the per-unit batch path
type Engine struct {
	extractor *ReferenceExtractor
	matcher   *StrikeMatcher
	scanner   *ReductionScanner
	assembler *ResultAssembler
	metrics   instrument_metrics.Repository
	params    Params
	log       *logger.Logger
}

// New creates an engine
func New(
	quoteRepo quotes.Repository,
	metricRepo instrument_metrics.Repository,
	assembler *ResultAssembler,
	params Params,
) *Engine {
	return &Engine{
		extractor: NewReferenceExtractor(metricRepo),
		matcher:   NewStrikeMatcher(quoteRepo, NewExpiryResolver()),
		scanner:   NewReductionScanner(quoteRepo),
		assembler: assembler,
		metrics:   metricRepo,
		params:    params,
		log:       logger.Get().With("component", "engine"),
	}
}

// FindNearestStrikes returns the K strikes per option class nearest to the
// instrument's metric value on the baseline date. Pure: reads the store,
// writes nothing.
func (e *Engine) FindNearestStrikes(ctx context.Context, instrumentID string, baselineDate time.Time, k int, classes []quotes.OptionClass) ([]results.StrikeSelection, error) {
	if k == 0 {
		k = e.params.StrikesPerClass
	}
	if len(classes) == 0 {
		classes = e.params.OptionClasses
	}

	m, err := e.metrics.GetMetricOn(ctx, instrumentID, e.params.MetricType, baselineDate)
	if err != nil {
		return nil, err
	}

	match, err := e.matcher.Match(ctx, MatchRequest{
		InstrumentID:   instrumentID,
		TradeDate:      baselineDate,
		ReferenceValue: m.Value,
		K:              k,
		OptionClasses:  classes,
	})
	if err != nil {
		return nil, err
	}
	return match.Selections, nil
}

// ScanReduction finds later trading days on which the contract's price fell
// by at least the threshold. Zero threshold and empty mode fall back to the
// engine defaults. Pure: reads the store, writes nothing.
func (e *Engine) ScanReduction(ctx context.Context, req ScanRequest) ([]results.ReductionEvent, error) {
	if req.ThresholdPct == 0 {
		req.ThresholdPct = e.params.ThresholdPct
	}
	if req.Mode == "" {
		req.Mode = e.params.Mode
	}
	return e.scanner.Scan(ctx, req)
}

// UnitResult summarizes one processed (instrument, baseline) unit
type UnitResult struct {
	InstrumentID   string
	BaselineDate   time.Time
	ReferenceValue float64
	Selections     int
	ReductionHits  int
	Partial        bool
}

// ProcessUnit runs the full static and temporal path for one instrument
// against a baseline period: extract baseline, match strikes, scan each
// selection forward, then persist both result sets. All computation happens
// before the first write, so a unit cancelled mid-flight leaves no partial
// output.
func (e *Engine) ProcessUnit(ctx context.Context, runID uuid.UUID, instrumentID string, period instrument_metrics.Period) (UnitResult, error) {
	baseline, err := e.extractor.GetBaseline(ctx, instrumentID, e.params.MetricType, period)
	if err != nil {
		return UnitResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return UnitResult{}, err
	}

	match, err := e.matcher.Match(ctx, MatchRequest{
		InstrumentID:   instrumentID,
		TradeDate:      baseline.Date,
		ReferenceValue: baseline.Value,
		K:              e.params.StrikesPerClass,
		OptionClasses:  e.params.OptionClasses,
	})
	if err != nil {
		return UnitResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return UnitResult{}, err
	}

	var events []results.ReductionEvent
	for _, sel := range match.Selections {
		found, err := e.scanner.Scan(ctx, ScanRequest{
			InstrumentID:  sel.InstrumentID,
			StrikePrice:   sel.StrikePrice,
			OptionClass:   sel.OptionClass,
			BaselineDate:  sel.BaselineDate,
			BaselinePrice: sel.ClosePrice,
			ThresholdPct:  e.params.ThresholdPct,
			Mode:          e.params.Mode,
		})
		if err != nil {
			return UnitResult{}, errors.Wrapf(err, "scan strike %v %s", sel.StrikePrice, sel.OptionClass)
		}
		events = append(events, found...)
	}
	if err := ctx.Err(); err != nil {
		return UnitResult{}, err
	}

	// Writes happen last and replace the unit's slice of both tables, so a
	// rerun with the same inputs converges to the same store state.
	if err := e.assembler.PersistSelections(ctx, instrumentID, baseline.Date, match.Selections); err != nil {
		return UnitResult{}, err
	}
	if err := e.assembler.PersistReductions(ctx, runID, instrumentID, baseline.Date, events); err != nil {
		return UnitResult{}, err
	}

	return UnitResult{
		InstrumentID:   instrumentID,
		BaselineDate:   baseline.Date,
		ReferenceValue: baseline.Value,
		Selections:     len(match.Selections),
		ReductionHits:  len(events),
		Partial:        match.Partial,
	}, nil
}
