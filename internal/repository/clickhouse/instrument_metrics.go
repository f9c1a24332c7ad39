package clickhouse

import (
	"context"
	"database/sql"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"golang.org/x/time/rate"

	"argus/internal/domain/instrument_metrics"
	"argus/pkg/errors"
	"argus/pkg/retry"
)

// Compile-time check
var _ instrument_metrics.Repository = (*InstrumentMetricRepository)(nil)

// InstrumentMetricRepository implements instrument_metrics.Repository for
// ClickHouse
type InstrumentMetricRepository struct {
	conn    driver.Conn
	policy  *retry.Policy
	limiter *rate.Limiter
}

// NewInstrumentMetricRepository creates an instrument metric repository
func NewInstrumentMetricRepository(conn driver.Conn, policy *retry.Policy, limiter *rate.Limiter) *InstrumentMetricRepository {
	return &InstrumentMetricRepository{
		conn:    conn,
		policy:  policy,
		limiter: limiter,
	}
}

// GetPeakMetric returns the row with the maximum value in the period.
// Equal peak values on different dates resolve to the earliest date so the
// baseline is reproducible.
func (r *InstrumentMetricRepository) GetPeakMetric(ctx context.Context, instrumentID string, metricType instrument_metrics.MetricType, period instrument_metrics.Period) (*instrument_metrics.InstrumentMetric, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT instrument_id, date, metric_type, value
		FROM instrument_metrics
		WHERE instrument_id = ?
		  AND metric_type = ?
		  AND date BETWEEN ? AND ?
		ORDER BY value DESC, date ASC
		LIMIT 1`

	var m instrument_metrics.InstrumentMetric
	var typeStr string
	err := r.policy.Do(ctx, "get_peak_metric", func(ctx context.Context) error {
		err := r.conn.QueryRow(ctx, query, instrumentID, string(metricType), period.From, period.To).Scan(
			&m.InstrumentID, &m.Date, &typeStr, &m.Value,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(errors.ErrNoBaseline,
				"instrument %s metric %s in %s", instrumentID, metricType, period.String())
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	m.MetricType = instrument_metrics.MetricType(typeStr)
	return &m, nil
}

// GetMetricOn returns the observation for one date
func (r *InstrumentMetricRepository) GetMetricOn(ctx context.Context, instrumentID string, metricType instrument_metrics.MetricType, date time.Time) (*instrument_metrics.InstrumentMetric, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT instrument_id, date, metric_type, value
		FROM instrument_metrics
		WHERE instrument_id = ? AND metric_type = ? AND date = ?
		LIMIT 1`

	var m instrument_metrics.InstrumentMetric
	var typeStr string
	err := r.policy.Do(ctx, "get_metric_on", func(ctx context.Context) error {
		err := r.conn.QueryRow(ctx, query, instrumentID, string(metricType), date).Scan(
			&m.InstrumentID, &m.Date, &typeStr, &m.Value,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(errors.ErrNoBaseline,
				"instrument %s metric %s on %s", instrumentID, metricType, date.Format("2006-01-02"))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	m.MetricType = instrument_metrics.MetricType(typeStr)
	return &m, nil
}

// ListInstruments returns the distinct instruments with metric rows in the
// period
func (r *InstrumentMetricRepository) ListInstruments(ctx context.Context, metricType instrument_metrics.MetricType, period instrument_metrics.Period) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT DISTINCT instrument_id
		FROM instrument_metrics
		WHERE metric_type = ? AND date BETWEEN ? AND ?
		ORDER BY instrument_id`

	var out []string
	err := r.policy.Do(ctx, "list_instruments", func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, query, string(metricType), period.From, period.To)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			out = append(out, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrap(err, "list instruments")
	}
	return out, nil
}
