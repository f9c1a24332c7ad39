package loader

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"argus/internal/domain/instrument_metrics"
	"argus/internal/domain/quotes"
	"argus/pkg/errors"
)

// Quote CSV layout, one row per contract per trade date. Futures rows leave
// strike_price and option_class empty.
var quoteHeader = []string{
	"instrument_id", "trade_date", "strike_price", "option_class",
	"expiry_date", "close_price", "open_interest", "traded_contracts",
}

// Metric CSV layout, one row per instrument per observation date.
var metricHeader = []string{"instrument_id", "date", "metric_type", "value"}

const dateLayout = "2006-01-02"

// ParseQuoteRow converts one CSV record into a derivative quote
func ParseQuoteRow(record []string) (quotes.DerivativeQuote, error) {
	if len(record) != len(quoteHeader) {
		return quotes.DerivativeQuote{}, errors.Wrapf(errors.ErrInvalidInput,
			"quote row has %d fields, want %d", len(record), len(quoteHeader))
	}

	tradeDate, err := time.Parse(dateLayout, record[1])
	if err != nil {
		return quotes.DerivativeQuote{}, errors.Wrapf(errors.ErrInvalidInput, "trade_date: %v", err)
	}
	expiryDate, err := time.Parse(dateLayout, record[4])
	if err != nil {
		return quotes.DerivativeQuote{}, errors.Wrapf(errors.ErrInvalidInput, "expiry_date: %v", err)
	}
	closePrice, err := strconv.ParseFloat(record[5], 64)
	if err != nil {
		return quotes.DerivativeQuote{}, errors.Wrapf(errors.ErrInvalidInput, "close_price: %v", err)
	}
	openInterest, err := strconv.ParseFloat(record[6], 64)
	if err != nil {
		return quotes.DerivativeQuote{}, errors.Wrapf(errors.ErrInvalidInput, "open_interest: %v", err)
	}
	traded, err := strconv.ParseFloat(record[7], 64)
	if err != nil {
		return quotes.DerivativeQuote{}, errors.Wrapf(errors.ErrInvalidInput, "traded_contracts: %v", err)
	}

	q := quotes.DerivativeQuote{
		InstrumentID:    strings.TrimSpace(record[0]),
		TradeDate:       tradeDate,
		ExpiryDate:      expiryDate,
		ClosePrice:      closePrice,
		OpenInterest:    openInterest,
		TradedContracts: traded,
	}
	if q.InstrumentID == "" {
		return quotes.DerivativeQuote{}, errors.Wrap(errors.ErrInvalidInput, "empty instrument_id")
	}

	// Both option fields or neither: a strike without a class (or the
	// reverse) is a malformed row, not a futures row.
	strikeRaw := strings.TrimSpace(record[2])
	classRaw := strings.TrimSpace(record[3])
	switch {
	case strikeRaw == "" && classRaw == "":
		// Futures row
	case strikeRaw != "" && classRaw != "":
		strike, err := strconv.ParseFloat(strikeRaw, 64)
		if err != nil {
			return quotes.DerivativeQuote{}, errors.Wrapf(errors.ErrInvalidInput, "strike_price: %v", err)
		}
		if !quotes.OptionClass(classRaw).Valid() {
			return quotes.DerivativeQuote{}, errors.Wrapf(errors.ErrInvalidInput, "unknown option class %q", classRaw)
		}
		q.StrikePrice = &strike
		q.OptionClass = &classRaw
	default:
		return quotes.DerivativeQuote{}, errors.Wrap(errors.ErrInvalidInput,
			"strike_price and option_class must both be set or both be empty")
	}

	return q, nil
}

// ParseMetricRow converts one CSV record into an instrument metric
func ParseMetricRow(record []string) (instrument_metrics.InstrumentMetric, error) {
	if len(record) != len(metricHeader) {
		return instrument_metrics.InstrumentMetric{}, errors.Wrapf(errors.ErrInvalidInput,
			"metric row has %d fields, want %d", len(record), len(metricHeader))
	}

	date, err := time.Parse(dateLayout, record[1])
	if err != nil {
		return instrument_metrics.InstrumentMetric{}, errors.Wrapf(errors.ErrInvalidInput, "date: %v", err)
	}
	value, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return instrument_metrics.InstrumentMetric{}, errors.Wrapf(errors.ErrInvalidInput, "value: %v", err)
	}

	m := instrument_metrics.InstrumentMetric{
		InstrumentID: strings.TrimSpace(record[0]),
		Date:         date,
		MetricType:   instrument_metrics.MetricType(strings.TrimSpace(record[2])),
		Value:        value,
	}
	if m.InstrumentID == "" {
		return instrument_metrics.InstrumentMetric{}, errors.Wrap(errors.ErrInvalidInput, "empty instrument_id")
	}
	if m.MetricType != instrument_metrics.MetricClosingPrice && m.MetricType != instrument_metrics.MetricDeliveredQuantity {
		return instrument_metrics.InstrumentMetric{}, errors.Wrapf(errors.ErrInvalidInput, "unknown metric type %q", m.MetricType)
	}
	return m, nil
}

// readCSV streams records from r, validating the header row and handing each
// data record to handle with its 1-based line number
func readCSV(r io.Reader, wantHeader []string, handle func(line int, record []string) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(wantHeader)

	header, err := reader.Read()
	if err != nil {
		return errors.Wrap(err, "read header")
	}
	for i, col := range wantHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return errors.Wrapf(errors.ErrInvalidInput, "column %d is %q, want %q", i+1, header[i], col)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "line %d", line+1)
		}
		line++
		if err := handle(line, record); err != nil {
			return err
		}
	}
}
