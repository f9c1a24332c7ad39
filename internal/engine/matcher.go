package engine

import (
	"context"
	"math"
	"sort"
	"time"

	"argus/internal/domain/quotes"
	"argus/internal/domain/results"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// MatchRequest asks for the K strikes per option class nearest to a
// reference value observed on a trade date
type MatchRequest struct {
	InstrumentID   string
	TradeDate      time.Time
	ReferenceValue float64
	K              int
	OptionClasses  []quotes.OptionClass
}

// MatchResult carries the selections plus the availability flags the
// output rows record
type MatchResult struct {
	Selections []results.StrikeSelection

	// Partial is set when fewer than K strikes existed in the market;
	// all available strikes are used, never padded
	Partial bool

	// StrikesAvailable is the distinct strike count on the trade date
	StrikesAvailable int
}

// StrikeMatcher ranks available strikes by distance to a reference value
// and selects the nearest K per option class
type StrikeMatcher struct {
	quotes   quotes.Repository
	resolver *ExpiryResolver
	log      *logger.Logger
}

// NewStrikeMatcher creates a strike matcher
func NewStrikeMatcher(quoteRepo quotes.Repository, resolver *ExpiryResolver) *StrikeMatcher {
	return &StrikeMatcher{
		quotes:   quoteRepo,
		resolver: resolver,
		log:      logger.Get().With("component", "strike_matcher"),
	}
}

// Match selects the K strikes nearest the reference value for each
// requested option class. An empty market on the trade date is a routine
// outcome for illiquid instruments and yields an empty result, not an
// error. A strike quoted for one class but not the other contributes a row
// only for the class it is quoted in.
func (m *StrikeMatcher) Match(ctx context.Context, req MatchRequest) (MatchResult, error) {
	if req.ReferenceValue <= 0 {
		return MatchResult{}, errors.Wrapf(errors.ErrInvalidReference,
			"instrument %s on %s: reference %v", req.InstrumentID, req.TradeDate.Format("2006-01-02"), req.ReferenceValue)
	}
	if req.K <= 0 {
		return MatchResult{}, errors.Wrapf(errors.ErrInvalidInput, "k must be positive, got %d", req.K)
	}
	if len(req.OptionClasses) == 0 {
		return MatchResult{}, errors.Wrap(errors.ErrInvalidInput, "no option classes requested")
	}
	for _, c := range req.OptionClasses {
		if !c.Valid() {
			return MatchResult{}, errors.Wrapf(errors.ErrInvalidInput, "unknown option class %q", c)
		}
	}

	chain, err := m.quotes.GetQuotes(ctx, req.InstrumentID, req.TradeDate, nil)
	if err != nil {
		return MatchResult{}, errors.Wrap(err, "query option chain")
	}

	// Group option quotes by (strike, class); futures rows carry no strike
	// and never participate in matching.
	type strikeClass struct {
		strike float64
		class  quotes.OptionClass
	}
	byKey := make(map[strikeClass][]quotes.DerivativeQuote)
	strikeSet := make(map[float64]struct{})
	for _, q := range chain {
		if !q.IsOption() {
			continue
		}
		key := strikeClass{strike: q.Strike(), class: q.Class()}
		byKey[key] = append(byKey[key], q)
		strikeSet[q.Strike()] = struct{}{}
	}

	if len(strikeSet) == 0 {
		m.log.Infow("No derivative data on trade date",
			"instrument", req.InstrumentID,
			"trade_date", req.TradeDate.Format("2006-01-02"),
		)
		return MatchResult{}, nil
	}

	// Rank strikes by (distance, strike): ties go to the lower strike so
	// the ordering is reproducible.
	strikes := make([]float64, 0, len(strikeSet))
	for s := range strikeSet {
		strikes = append(strikes, s)
	}
	sort.Slice(strikes, func(i, j int) bool {
		di := math.Abs(strikes[i] - req.ReferenceValue)
		dj := math.Abs(strikes[j] - req.ReferenceValue)
		if di != dj {
			return di < dj
		}
		return strikes[i] < strikes[j]
	})

	selected := strikes
	partial := false
	if len(strikes) >= req.K {
		selected = strikes[:req.K]
	} else {
		partial = true
		m.log.Warnw("Fewer strikes available than requested",
			"instrument", req.InstrumentID,
			"trade_date", req.TradeDate.Format("2006-01-02"),
			"available", len(strikes),
			"requested", req.K,
		)
	}

	result := MatchResult{
		Partial:          partial,
		StrikesAvailable: len(strikes),
	}

	for _, class := range req.OptionClasses {
		for rank, strike := range selected {
			candidates := byKey[strikeClass{strike: strike, class: class}]
			if len(candidates) == 0 {
				// Expected miss: the strike is not quoted for this class
				// on this date.
				continue
			}

			quote, err := m.resolver.Resolve(candidates, req.TradeDate)
			if err != nil {
				if errors.Is(err, errors.ErrNoValidExpiry) {
					m.log.Warnw("Dropping selection with no live expiry",
						"instrument", req.InstrumentID,
						"strike", strike,
						"class", class,
						"trade_date", req.TradeDate.Format("2006-01-02"),
					)
					continue
				}
				return MatchResult{}, err
			}

			result.Selections = append(result.Selections, results.StrikeSelection{
				InstrumentID:   req.InstrumentID,
				BaselineDate:   req.TradeDate,
				ReferenceValue: req.ReferenceValue,
				StrikePrice:    strike,
				OptionClass:    class,
				Rank:           rank + 1,
				Distance:       math.Abs(strike - req.ReferenceValue),
				ExpiryDate:     quote.ExpiryDate,
				ClosePrice:     quote.ClosePrice,
				Partial:        partial,
			})
		}
	}

	return result, nil
}
