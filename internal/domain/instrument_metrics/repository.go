package instrument_metrics

import (
	"context"
	"time"
)

// Repository defines read-only access to the instrument daily metrics series
type Repository interface {
	// GetPeakMetric returns the metric row with the maximum value within
	// the period, including the date it occurred on. Returns an error
	// wrapping errors.ErrNoBaseline when the instrument has no rows of
	// the requested type in the period.
	GetPeakMetric(ctx context.Context, instrumentID string, metricType MetricType, period Period) (*InstrumentMetric, error)

	// GetMetricOn returns the metric observation for one specific date.
	// Returns an error wrapping errors.ErrNoBaseline when absent.
	GetMetricOn(ctx context.Context, instrumentID string, metricType MetricType, date time.Time) (*InstrumentMetric, error)

	// ListInstruments returns the distinct instruments with metric rows
	// of the given type in the period
	ListInstruments(ctx context.Context, metricType MetricType, period Period) ([]string, error)
}
