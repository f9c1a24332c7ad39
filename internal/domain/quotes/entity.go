package quotes

import "time"

// OptionClass identifies the side of an options contract
type OptionClass string

const (
	OptionClassCall OptionClass = "CE"
	OptionClassPut  OptionClass = "PE"
)

// Valid reports whether the class is a known options class
func (c OptionClass) Valid() bool {
	return c == OptionClassCall || c == OptionClassPut
}

// DerivativeQuote represents one daily price record for an options or
// futures contract. Futures rows carry no strike and no option class.
// The natural key is (instrument_id, trade_date, strike_price,
// option_class, expiry_date); upstream ingestion guarantees uniqueness.
type DerivativeQuote struct {
	InstrumentID    string    `ch:"instrument_id"`
	TradeDate       time.Time `ch:"trade_date"`
	StrikePrice     *float64  `ch:"strike_price"`
	OptionClass     *string   `ch:"option_class"`
	ExpiryDate      time.Time `ch:"expiry_date"`
	ClosePrice      float64   `ch:"close_price"`
	OpenInterest    float64   `ch:"open_interest"`
	TradedContracts float64   `ch:"traded_contracts"`
}

// Strike returns the strike price, or 0 for futures rows
func (q DerivativeQuote) Strike() float64 {
	if q.StrikePrice == nil {
		return 0
	}
	return *q.StrikePrice
}

// Class returns the option class, or "" for futures rows
func (q DerivativeQuote) Class() OptionClass {
	if q.OptionClass == nil {
		return ""
	}
	return OptionClass(*q.OptionClass)
}

// IsOption reports whether the quote belongs to an options contract
func (q DerivativeQuote) IsOption() bool {
	return q.StrikePrice != nil && q.Class().Valid()
}
