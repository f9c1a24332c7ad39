package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/domain/instrument_metrics"
	"argus/pkg/errors"
)

func metric(instrument string, date time.Time, value float64) instrument_metrics.InstrumentMetric {
	return instrument_metrics.InstrumentMetric{
		InstrumentID: instrument,
		Date:         date,
		MetricType:   instrument_metrics.MetricClosingPrice,
		Value:        value,
	}
}

func julyPeriod(t *testing.T) instrument_metrics.Period {
	t.Helper()
	p, err := instrument_metrics.ParseMonth("2026-07")
	require.NoError(t, err)
	return p
}

func TestReferenceExtractor_PicksPeak(t *testing.T) {
	repo := &fakeMetricRepo{metrics: []instrument_metrics.InstrumentMetric{
		metric("NIFTY", day(2026, time.July, 3), 98),
		metric("NIFTY", day(2026, time.July, 17), 112),
		metric("NIFTY", day(2026, time.July, 24), 104),
	}}

	got, err := NewReferenceExtractor(repo).GetBaseline(context.Background(), "NIFTY", instrument_metrics.MetricClosingPrice, julyPeriod(t))
	require.NoError(t, err)

	assert.Equal(t, day(2026, time.July, 17), got.Date)
	assert.Equal(t, 112.0, got.Value)
}

func TestReferenceExtractor_PeakTieGoesToEarliestDate(t *testing.T) {
	repo := &fakeMetricRepo{metrics: []instrument_metrics.InstrumentMetric{
		metric("NIFTY", day(2026, time.July, 22), 112),
		metric("NIFTY", day(2026, time.July, 9), 112),
	}}

	got, err := NewReferenceExtractor(repo).GetBaseline(context.Background(), "NIFTY", instrument_metrics.MetricClosingPrice, julyPeriod(t))
	require.NoError(t, err)

	assert.Equal(t, day(2026, time.July, 9), got.Date)
}

func TestReferenceExtractor_IgnoresOutOfPeriodRows(t *testing.T) {
	repo := &fakeMetricRepo{metrics: []instrument_metrics.InstrumentMetric{
		metric("NIFTY", day(2026, time.June, 30), 500),
		metric("NIFTY", day(2026, time.July, 10), 101),
		metric("NIFTY", day(2026, time.August, 1), 400),
	}}

	got, err := NewReferenceExtractor(repo).GetBaseline(context.Background(), "NIFTY", instrument_metrics.MetricClosingPrice, julyPeriod(t))
	require.NoError(t, err)

	assert.Equal(t, day(2026, time.July, 10), got.Date)
	assert.Equal(t, 101.0, got.Value)
}

func TestReferenceExtractor_NoBaseline(t *testing.T) {
	repo := &fakeMetricRepo{}

	_, err := NewReferenceExtractor(repo).GetBaseline(context.Background(), "GHOST", instrument_metrics.MetricClosingPrice, julyPeriod(t))
	assert.True(t, errors.Is(err, errors.ErrNoBaseline))
}
