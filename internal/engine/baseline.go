package engine

import (
	"context"

	"argus/internal/domain/instrument_metrics"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// ReferenceExtractor retrieves the baseline observation for an instrument:
// the date within a period on which the requested metric peaked, and the
// value it peaked at.
type ReferenceExtractor struct {
	metrics instrument_metrics.Repository
	log     *logger.Logger
}

// NewReferenceExtractor creates a reference extractor
func NewReferenceExtractor(metrics instrument_metrics.Repository) *ReferenceExtractor {
	return &ReferenceExtractor{
		metrics: metrics,
		log:     logger.Get().With("component", "reference_extractor"),
	}
}

// GetBaseline returns the peak metric observation within the period.
// An instrument with no metric rows in the period is an upstream absence:
// the error wraps errors.ErrNoBaseline and must propagate to the caller,
// never be treated as a zero baseline.
func (e *ReferenceExtractor) GetBaseline(ctx context.Context, instrumentID string, metricType instrument_metrics.MetricType, period instrument_metrics.Period) (*instrument_metrics.InstrumentMetric, error) {
	m, err := e.metrics.GetPeakMetric(ctx, instrumentID, metricType, period)
	if err != nil {
		if errors.Is(err, errors.ErrNoBaseline) {
			e.log.Warnw("No baseline metric in period",
				"instrument", instrumentID,
				"metric_type", metricType,
				"period", period.String(),
			)
		}
		return nil, err
	}

	e.log.Debugw("Baseline resolved",
		"instrument", instrumentID,
		"date", m.Date.Format("2006-01-02"),
		"value", m.Value,
	)
	return m, nil
}
