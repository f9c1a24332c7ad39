package instrument_metrics

import (
	"fmt"
	"time"
)

// MetricType identifies the daily observation series a metric belongs to
type MetricType string

const (
	MetricClosingPrice      MetricType = "closing_price"
	MetricDeliveredQuantity MetricType = "delivered_quantity"
)

// InstrumentMetric is one daily observation for an instrument, produced by
// upstream ingestion and read-only to the engine
type InstrumentMetric struct {
	InstrumentID string     `ch:"instrument_id"`
	Date         time.Time  `ch:"date"`
	MetricType   MetricType `ch:"metric_type"`
	Value        float64    `ch:"value"`
}

// Period is a closed date range [From, To]
type Period struct {
	From time.Time
	To   time.Time
}

// ParseMonth builds the period covering one calendar month, e.g. "2026-07"
func ParseMonth(s string) (Period, error) {
	from, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Period{
		From: from,
		To:   from.AddDate(0, 1, 0).AddDate(0, 0, -1),
	}, nil
}

// PreviousMonth returns the calendar month before the given time, in UTC
func PreviousMonth(now time.Time) Period {
	firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		From: firstOfThis.AddDate(0, -1, 0),
		To:   firstOfThis.AddDate(0, 0, -1),
	}
}

// Contains reports whether d falls within the period
func (p Period) Contains(d time.Time) bool {
	return !d.Before(p.From) && !d.After(p.To)
}

func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.From.Format("2006-01-02"), p.To.Format("2006-01-02"))
}
