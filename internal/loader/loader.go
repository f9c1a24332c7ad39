package loader

import (
	"context"
	"io"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/dustin/go-humanize"

	"argus/internal/domain/instrument_metrics"
	"argus/internal/domain/quotes"
	clickhousebatch "argus/pkg/clickhouse"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// Loader bulk-loads CSV exports of quotes and instrument metrics into
// ClickHouse through batched INSERTs
type Loader struct {
	conn      driver.Conn
	batchSize int
	log       *logger.Logger
}

// New creates a loader
func New(conn driver.Conn, batchSize int) *Loader {
	return &Loader{
		conn:      conn,
		batchSize: batchSize,
		log:       logger.Get().With("component", "loader"),
	}
}

// LoadQuotes streams one quotes CSV into the derivative_quotes table and
// returns the number of rows written
func (l *Loader) LoadQuotes(ctx context.Context, r io.Reader) (int64, error) {
	writer := clickhousebatch.NewBatchWriter(clickhousebatch.BatchWriterConfig{
		FlushFunc:    l.flushQuotes,
		TableName:    "derivative_quotes",
		MaxBatchSize: l.batchSize,
	})

	var rows int64
	start := time.Now()
	err := readCSV(r, quoteHeader, func(line int, record []string) error {
		q, err := ParseQuoteRow(record)
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		rows++
		return writer.Add(ctx, q)
	})
	if err != nil {
		return 0, err
	}
	if err := writer.Flush(ctx); err != nil {
		return 0, err
	}

	l.log.Infow("Quotes loaded",
		"rows", humanize.Comma(rows),
		"elapsed", time.Since(start),
	)
	return rows, nil
}

// LoadMetrics streams one metrics CSV into the instrument_metrics table and
// returns the number of rows written
func (l *Loader) LoadMetrics(ctx context.Context, r io.Reader) (int64, error) {
	writer := clickhousebatch.NewBatchWriter(clickhousebatch.BatchWriterConfig{
		FlushFunc:    l.flushMetrics,
		TableName:    "instrument_metrics",
		MaxBatchSize: l.batchSize,
	})

	var rows int64
	start := time.Now()
	err := readCSV(r, metricHeader, func(line int, record []string) error {
		m, err := ParseMetricRow(record)
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		rows++
		return writer.Add(ctx, m)
	})
	if err != nil {
		return 0, err
	}
	if err := writer.Flush(ctx); err != nil {
		return 0, err
	}

	l.log.Infow("Metrics loaded",
		"rows", humanize.Comma(rows),
		"elapsed", time.Since(start),
	)
	return rows, nil
}

func (l *Loader) flushQuotes(ctx context.Context, batch []interface{}) error {
	insert, err := l.conn.PrepareBatch(ctx, `
		INSERT INTO derivative_quotes (
			instrument_id, trade_date, strike_price, option_class,
			expiry_date, close_price, open_interest, traded_contracts
		)`)
	if err != nil {
		return errors.Wrap(err, "prepare quote batch")
	}

	for _, row := range batch {
		q := row.(quotes.DerivativeQuote)
		if err := insert.Append(
			q.InstrumentID, q.TradeDate, q.StrikePrice, q.OptionClass,
			q.ExpiryDate, q.ClosePrice, q.OpenInterest, q.TradedContracts,
		); err != nil {
			return errors.Wrap(err, "append quote row")
		}
	}
	return insert.Send()
}

func (l *Loader) flushMetrics(ctx context.Context, batch []interface{}) error {
	insert, err := l.conn.PrepareBatch(ctx, `
		INSERT INTO instrument_metrics (instrument_id, date, metric_type, value)`)
	if err != nil {
		return errors.Wrap(err, "prepare metric batch")
	}

	for _, row := range batch {
		m := row.(instrument_metrics.InstrumentMetric)
		if err := insert.Append(m.InstrumentID, m.Date, string(m.MetricType), m.Value); err != nil {
			return errors.Wrap(err, "append metric row")
		}
	}
	return insert.Send()
}
