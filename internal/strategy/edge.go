package strategy

import (
	"math"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// EvaluateEdge computes the YES-side edge of quote against estimate.
// estimate may be nil (no fair probability for the team).
//
// Every failing filter contributes its reason code; checks never short-circuit
// so the decision log can explain every rejection. The edge threshold is not
// applied here.
func EvaluateEdge(quote domain.MarketQuote, estimate *domain.FairEstimate, f Filters) domain.EdgeResult {
	res := domain.EdgeResult{
		MarketID: quote.MarketID,
		YesPrice: quote.YesPrice,
	}

	validPrice := quote.YesPrice > 0 && quote.YesPrice < 1 && !math.IsNaN(quote.YesPrice)
	if !validPrice {
		res.Reasons = append(res.Reasons, domain.ReasonInvalidPrice)
	}

	if estimate == nil {
		res.Reasons = append(res.Reasons, domain.ReasonNoEstimate)
	} else {
		p := estimate.FairProbability
		res.FairProbability = p
		if p < 0 || p > 1 || math.IsNaN(p) {
			res.Reasons = append(res.Reasons, domain.ReasonInvalidProbability)
		} else if validPrice {
			res.Edge = p - quote.YesPrice
		}
	}

	if quote.Volume < f.MinVolume {
		res.Reasons = append(res.Reasons, domain.ReasonLowVolume)
	}
	if quote.Spread() > f.MaxSpread {
		res.Reasons = append(res.Reasons, domain.ReasonWideSpread)
	}
	if quote.SecondsToStart < f.MinMinutesToStart*60 {
		res.Reasons = append(res.Reasons, domain.ReasonStartsSoon)
	}

	res.Eligible = len(res.Reasons) == 0
	return res
}
