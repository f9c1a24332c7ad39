package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"argus/internal/domain/quotes"
	"argus/internal/domain/results"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// ScanRequest describes a baseline contract and the drop threshold to scan
// forward for
type ScanRequest struct {
	InstrumentID  string
	StrikePrice   float64
	OptionClass   quotes.OptionClass
	BaselineDate  time.Time
	BaselinePrice float64
	ThresholdPct  float64
	Mode          results.ScanMode
}

// ReductionScanner walks later trade dates of one contract looking for
// percentage drops crossing the threshold
type ReductionScanner struct {
	quotes quotes.Repository
	log    *logger.Logger
}

// NewReductionScanner creates a reduction scanner
func NewReductionScanner(quoteRepo quotes.Repository) *ReductionScanner {
	return &ReductionScanner{
		quotes: quoteRepo,
		log:    logger.Get().With("component", "reduction_scanner"),
	}
}

// Scan streams the contract's quotes after the baseline date in ascending
// order and emits every qualifying crossing (all mode) or only the first
// (first mode, which stops reading as soon as a match is found). A quote
// exactly at the threshold qualifies. No quotes after the baseline is the
// routine "no reduction found" outcome and yields an empty result.
//
// The percentage comparison runs on decimals so a crossing that lands
// exactly on the threshold is never lost to float rounding.
func (s *ReductionScanner) Scan(ctx context.Context, req ScanRequest) ([]results.ReductionEvent, error) {
	if req.BaselinePrice == 0 {
		return nil, errors.Wrapf(errors.ErrZeroBaselinePrice,
			"instrument %s strike %v %s baseline %s",
			req.InstrumentID, req.StrikePrice, req.OptionClass, req.BaselineDate.Format("2006-01-02"))
	}
	if req.BaselinePrice < 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "negative baseline price %v", req.BaselinePrice)
	}
	if !req.Mode.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown scan mode %q", req.Mode)
	}
	if !req.OptionClass.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown option class %q", req.OptionClass)
	}

	iter, err := s.quotes.GetQuoteRange(ctx, req.InstrumentID, req.StrikePrice, req.OptionClass, req.BaselineDate)
	if err != nil {
		return nil, errors.Wrap(err, "open quote range")
	}
	defer iter.Close()

	baseline := decimal.NewFromFloat(req.BaselinePrice)
	threshold := decimal.NewFromFloat(req.ThresholdPct)
	hundred := decimal.NewFromInt(100)

	var events []results.ReductionEvent
	for iter.Next() {
		q := iter.Quote()
		if !q.TradeDate.After(req.BaselineDate) {
			continue
		}

		pct := baseline.Sub(decimal.NewFromFloat(q.ClosePrice)).Div(baseline).Mul(hundred)
		if pct.Cmp(threshold) < 0 {
			continue
		}

		events = append(events, results.ReductionEvent{
			InstrumentID:  req.InstrumentID,
			StrikePrice:   req.StrikePrice,
			OptionClass:   req.OptionClass,
			BaselineDate:  req.BaselineDate,
			BaselinePrice: req.BaselinePrice,
			TargetDate:    q.TradeDate,
			TargetPrice:   q.ClosePrice,
			PctChange:     pct.InexactFloat64(),
		})

		if req.Mode == results.ScanFirst {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scan quote range")
	}

	if len(events) > 0 {
		s.log.Debugw("Reduction crossings found",
			"instrument", req.InstrumentID,
			"strike", req.StrikePrice,
			"class", req.OptionClass,
			"crossings", len(events),
			"first_target", events[0].TargetDate.Format("2006-01-02"),
		)
	}
	return events, nil
}
