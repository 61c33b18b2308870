package domain

// ReasonCode explains why a quote is not eligible for trading.
type ReasonCode string

const (
	ReasonNoEstimate         ReasonCode = "no_estimate"
	ReasonInvalidPrice       ReasonCode = "invalid_price"
	ReasonInvalidProbability ReasonCode = "invalid_probability"
	ReasonLowVolume          ReasonCode = "low_volume"
	ReasonWideSpread         ReasonCode = "wide_spread"
	ReasonStartsSoon         ReasonCode = "starts_soon"
)

// EdgeResult is the YES-side edge of one market for one cycle.
type EdgeResult struct {
	MarketID        string
	Edge            float64 // fair_probability - yes_price
	FairProbability float64
	YesPrice        float64
	Eligible        bool
	Reasons         []ReasonCode
}

// HasReason reports whether code is among the ineligibility reasons.
func (r EdgeResult) HasReason(code ReasonCode) bool {
	for _, c := range r.Reasons {
		if c == code {
			return true
		}
	}
	return false
}
