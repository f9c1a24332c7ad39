package analysis

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/adapters/config"
	"argus/internal/domain/instrument_metrics"
	"argus/internal/domain/quotes"
	"argus/internal/domain/results"
	"argus/internal/engine"
	"argus/pkg/errors"
)

func testDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type memMetricRepo struct {
	metrics []instrument_metrics.InstrumentMetric
}

func (r *memMetricRepo) GetPeakMetric(ctx context.Context, instrumentID string, metricType instrument_metrics.MetricType, period instrument_metrics.Period) (*instrument_metrics.InstrumentMetric, error) {
	var best *instrument_metrics.InstrumentMetric
	for i := range r.metrics {
		m := r.metrics[i]
		if m.InstrumentID != instrumentID || m.MetricType != metricType || !period.Contains(m.Date) {
			continue
		}
		if best == nil || m.Value > best.Value {
			best = &r.metrics[i]
		}
	}
	if best == nil {
		return nil, errors.Wrapf(errors.ErrNoBaseline, "instrument %s", instrumentID)
	}
	return best, nil
}

func (r *memMetricRepo) GetMetricOn(ctx context.Context, instrumentID string, metricType instrument_metrics.MetricType, date time.Time) (*instrument_metrics.InstrumentMetric, error) {
	for i := range r.metrics {
		m := r.metrics[i]
		if m.InstrumentID == instrumentID && m.MetricType == metricType && m.Date.Equal(date) {
			return &r.metrics[i], nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNoBaseline, "instrument %s", instrumentID)
}

func (r *memMetricRepo) ListInstruments(ctx context.Context, metricType instrument_metrics.MetricType, period instrument_metrics.Period) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, m := range r.metrics {
		if m.MetricType == metricType && period.Contains(m.Date) && !seen[m.InstrumentID] {
			seen[m.InstrumentID] = true
			out = append(out, m.InstrumentID)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memQuoteRepo struct {
	quotes []quotes.DerivativeQuote
}

func (r *memQuoteRepo) GetQuotes(ctx context.Context, instrumentID string, tradeDate time.Time, strikes []float64) ([]quotes.DerivativeQuote, error) {
	var out []quotes.DerivativeQuote
	for _, q := range r.quotes {
		if q.InstrumentID == instrumentID && q.TradeDate.Equal(tradeDate) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *memQuoteRepo) GetQuoteRange(ctx context.Context, instrumentID string, strike float64, class quotes.OptionClass, afterDate time.Time) (quotes.RangeIterator, error) {
	return emptyIterator{}, nil
}

type emptyIterator struct{}

func (emptyIterator) Next() bool                   { return false }
func (emptyIterator) Quote() quotes.DerivativeQuote { return quotes.DerivativeQuote{} }
func (emptyIterator) Err() error                   { return nil }
func (emptyIterator) Close() error                 { return nil }

type memResultRepo struct {
	selections map[string][]results.StrikeSelection
	events     map[string][]results.ReductionEvent
}

func newMemResultRepo() *memResultRepo {
	return &memResultRepo{
		selections: make(map[string][]results.StrikeSelection),
		events:     make(map[string][]results.ReductionEvent),
	}
}

func (r *memResultRepo) ReplaceSelections(ctx context.Context, instrumentID string, baselineDate time.Time, rows []results.StrikeSelection) error {
	r.selections[instrumentID] = rows
	return nil
}

func (r *memResultRepo) ReplaceReductionEvents(ctx context.Context, instrumentID string, baselineDate time.Time, rows []results.ReductionEvent) error {
	r.events[instrumentID] = rows
	return nil
}

func (r *memResultRepo) GetSelections(ctx context.Context, instrumentID string, baselineDate time.Time) ([]results.StrikeSelection, error) {
	return r.selections[instrumentID], nil
}

func (r *memResultRepo) GetReductionEvents(ctx context.Context, instrumentID string, baselineDate time.Time) ([]results.ReductionEvent, error) {
	return r.events[instrumentID], nil
}

func buildWorker(t *testing.T, cfg config.EngineConfig, metricRepo *memMetricRepo, quoteRepo *memQuoteRepo, resultRepo *memResultRepo) *StrikeAnalysisWorker {
	t.Helper()
	assembler := engine.NewResultAssembler(resultRepo, nil, nil)
	eng := engine.New(quoteRepo, metricRepo, assembler, engine.DefaultParams())
	return NewStrikeAnalysisWorker(eng, metricRepo, cfg, config.WorkerConfig{
		AnalysisInterval: time.Hour,
		AnalysisEnabled:  true,
	}, nil)
}

func marketFor(instrument string, baseline time.Time) []quotes.DerivativeQuote {
	expiry := baseline.AddDate(0, 2, 0)
	strike := 100.0
	cls := string(quotes.OptionClassCall)
	return []quotes.DerivativeQuote{{
		InstrumentID: instrument,
		TradeDate:    baseline,
		StrikePrice:  &strike,
		OptionClass:  &cls,
		ExpiryDate:   expiry,
		ClosePrice:   12,
		OpenInterest: 400,
	}}
}

func TestStrikeAnalysisWorker_FailedUnitDoesNotStopOthers(t *testing.T) {
	baseline := testDay(2026, time.July, 17)
	metricRepo := &memMetricRepo{metrics: []instrument_metrics.InstrumentMetric{
		{InstrumentID: "GOOD", Date: baseline, MetricType: instrument_metrics.MetricClosingPrice, Value: 100},
		{InstrumentID: "NOMARKET", Date: baseline, MetricType: instrument_metrics.MetricClosingPrice, Value: -3},
	}}
	quoteRepo := &memQuoteRepo{quotes: marketFor("GOOD", baseline)}
	resultRepo := newMemResultRepo()

	w := buildWorker(t, config.EngineConfig{
		Period:      "2026-07",
		MetricType:  string(instrument_metrics.MetricClosingPrice),
		Concurrency: 2,
	}, metricRepo, quoteRepo, resultRepo)

	err := w.Run(context.Background())

	// NOMARKET's negative reference is reported, GOOD's results still land
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidReference))
	assert.Len(t, resultRepo.selections["GOOD"], 1)
	_, wrote := resultRepo.selections["NOMARKET"]
	assert.False(t, wrote)
}

func TestStrikeAnalysisWorker_ConfiguredInstrumentsOverrideDiscovery(t *testing.T) {
	baseline := testDay(2026, time.July, 17)
	metricRepo := &memMetricRepo{metrics: []instrument_metrics.InstrumentMetric{
		{InstrumentID: "GOOD", Date: baseline, MetricType: instrument_metrics.MetricClosingPrice, Value: 100},
		{InstrumentID: "SKIPPED", Date: baseline, MetricType: instrument_metrics.MetricClosingPrice, Value: 100},
	}}
	quoteRepo := &memQuoteRepo{quotes: append(marketFor("GOOD", baseline), marketFor("SKIPPED", baseline)...)}
	resultRepo := newMemResultRepo()

	w := buildWorker(t, config.EngineConfig{
		Instruments: []string{"GOOD"},
		Period:      "2026-07",
		MetricType:  string(instrument_metrics.MetricClosingPrice),
		Concurrency: 2,
	}, metricRepo, quoteRepo, resultRepo)

	require.NoError(t, w.Run(context.Background()))
	assert.Len(t, resultRepo.selections["GOOD"], 1)
	_, wrote := resultRepo.selections["SKIPPED"]
	assert.False(t, wrote)
}

func TestStrikeAnalysisWorker_NoInstrumentsIsANoop(t *testing.T) {
	w := buildWorker(t, config.EngineConfig{
		Period:      "2026-07",
		MetricType:  string(instrument_metrics.MetricClosingPrice),
		Concurrency: 2,
	}, &memMetricRepo{}, &memQuoteRepo{}, newMemResultRepo())

	assert.NoError(t, w.Run(context.Background()))
}

func TestStrikeAnalysisWorker_InvalidPeriod(t *testing.T) {
	w := buildWorker(t, config.EngineConfig{
		Period: "July 2026",
	}, &memMetricRepo{}, &memQuoteRepo{}, newMemResultRepo())

	err := w.Run(context.Background())
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
