package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"argus/internal/domain/instrument_metrics"
	"argus/internal/domain/quotes"
	"argus/internal/domain/results"
	"argus/pkg/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func optionQuote(instrument string, tradeDate time.Time, strike float64, class quotes.OptionClass, expiry time.Time, closePrice, oi float64) quotes.DerivativeQuote {
	cls := string(class)
	return quotes.DerivativeQuote{
		InstrumentID: instrument,
		TradeDate:    tradeDate,
		StrikePrice:  &strike,
		OptionClass:  &cls,
		ExpiryDate:   expiry,
		ClosePrice:   closePrice,
		OpenInterest: oi,
	}
}

func futuresQuote(instrument string, tradeDate, expiry time.Time, closePrice float64) quotes.DerivativeQuote {
	return quotes.DerivativeQuote{
		InstrumentID: instrument,
		TradeDate:    tradeDate,
		ExpiryDate:   expiry,
		ClosePrice:   closePrice,
	}
}

// fakeQuoteRepo serves quotes from memory; rangeReads counts how many rows
// the reduction scanner actually pulled through the iterator
type fakeQuoteRepo struct {
	quotes     []quotes.DerivativeQuote
	rangeReads int
	failWith   error
}

func (f *fakeQuoteRepo) GetQuotes(ctx context.Context, instrumentID string, tradeDate time.Time, strikes []float64) ([]quotes.DerivativeQuote, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	want := make(map[float64]bool, len(strikes))
	for _, s := range strikes {
		want[s] = true
	}

	var out []quotes.DerivativeQuote
	for _, q := range f.quotes {
		if q.InstrumentID != instrumentID || !q.TradeDate.Equal(tradeDate) {
			continue
		}
		if len(strikes) > 0 && (q.StrikePrice == nil || !want[*q.StrikePrice]) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeQuoteRepo) GetQuoteRange(ctx context.Context, instrumentID string, strike float64, class quotes.OptionClass, afterDate time.Time) (quotes.RangeIterator, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}

	var matched []quotes.DerivativeQuote
	for _, q := range f.quotes {
		if q.InstrumentID == instrumentID && q.Strike() == strike && q.Class() == class && q.TradeDate.After(afterDate) {
			matched = append(matched, q)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].TradeDate.Before(matched[j].TradeDate)
	})
	return &sliceIterator{quotes: matched, reads: &f.rangeReads}, nil
}

type sliceIterator struct {
	quotes  []quotes.DerivativeQuote
	pos     int
	reads   *int
	current quotes.DerivativeQuote
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.quotes) {
		return false
	}
	it.current = it.quotes[it.pos]
	it.pos++
	if it.reads != nil {
		*it.reads++
	}
	return true
}

func (it *sliceIterator) Quote() quotes.DerivativeQuote { return it.current }
func (it *sliceIterator) Err() error                    { return nil }
func (it *sliceIterator) Close() error                  { return nil }

// fakeMetricRepo serves instrument metrics from memory
type fakeMetricRepo struct {
	metrics []instrument_metrics.InstrumentMetric
}

func (f *fakeMetricRepo) GetPeakMetric(ctx context.Context, instrumentID string, metricType instrument_metrics.MetricType, period instrument_metrics.Period) (*instrument_metrics.InstrumentMetric, error) {
	var best *instrument_metrics.InstrumentMetric
	for i := range f.metrics {
		m := f.metrics[i]
		if m.InstrumentID != instrumentID || m.MetricType != metricType || !period.Contains(m.Date) {
			continue
		}
		if best == nil || m.Value > best.Value || (m.Value == best.Value && m.Date.Before(best.Date)) {
			best = &f.metrics[i]
		}
	}
	if best == nil {
		return nil, errors.Wrapf(errors.ErrNoBaseline, "instrument %s in %s", instrumentID, period.String())
	}
	return best, nil
}

func (f *fakeMetricRepo) GetMetricOn(ctx context.Context, instrumentID string, metricType instrument_metrics.MetricType, date time.Time) (*instrument_metrics.InstrumentMetric, error) {
	for i := range f.metrics {
		m := f.metrics[i]
		if m.InstrumentID == instrumentID && m.MetricType == metricType && m.Date.Equal(date) {
			return &f.metrics[i], nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNoBaseline, "instrument %s on %s", instrumentID, date.Format("2006-01-02"))
}

func (f *fakeMetricRepo) ListInstruments(ctx context.Context, metricType instrument_metrics.MetricType, period instrument_metrics.Period) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, m := range f.metrics {
		if m.MetricType == metricType && period.Contains(m.Date) && !seen[m.InstrumentID] {
			seen[m.InstrumentID] = true
			out = append(out, m.InstrumentID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// fakeResultRepo implements the delete-then-insert contract in memory
type fakeResultRepo struct {
	selections map[string][]results.StrikeSelection
	events     map[string][]results.ReductionEvent

	selectionWrites int
	eventWrites     int
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{
		selections: make(map[string][]results.StrikeSelection),
		events:     make(map[string][]results.ReductionEvent),
	}
}

func unitKey(instrumentID string, baselineDate time.Time) string {
	return fmt.Sprintf("%s/%s", instrumentID, baselineDate.Format("2006-01-02"))
}

func (f *fakeResultRepo) ReplaceSelections(ctx context.Context, instrumentID string, baselineDate time.Time, rows []results.StrikeSelection) error {
	f.selectionWrites++
	f.selections[unitKey(instrumentID, baselineDate)] = append([]results.StrikeSelection(nil), rows...)
	return nil
}

func (f *fakeResultRepo) ReplaceReductionEvents(ctx context.Context, instrumentID string, baselineDate time.Time, rows []results.ReductionEvent) error {
	f.eventWrites++
	f.events[unitKey(instrumentID, baselineDate)] = append([]results.ReductionEvent(nil), rows...)
	return nil
}

func (f *fakeResultRepo) GetSelections(ctx context.Context, instrumentID string, baselineDate time.Time) ([]results.StrikeSelection, error) {
	return f.selections[unitKey(instrumentID, baselineDate)], nil
}

func (f *fakeResultRepo) GetReductionEvents(ctx context.Context, instrumentID string, baselineDate time.Time) ([]results.ReductionEvent, error) {
	return f.events[unitKey(instrumentID, baselineDate)], nil
}

// capturePublisher records published events
type capturePublisher struct {
	published []results.ReductionEvent
}

func (p *capturePublisher) PublishReductions(ctx context.Context, runID uuid.UUID, events []results.ReductionEvent) error {
	p.published = append(p.published, events...)
	return nil
}
