package strategy

import (
	"math"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// KellyFraction returns the full-Kelly fraction for a binary YES contract
// priced pMarket that pays 1 with probability pFair:
//
//	f* = (pFair - pMarket) / (1 - pMarket)
//
// Never negative. Zero when pFair <= pMarket or when the fraction is
// undefined (pMarket >= 1, NaN inputs).
func KellyFraction(pFair, pMarket float64) float64 {
	if math.IsNaN(pFair) || math.IsNaN(pMarket) || pMarket <= 0 || pMarket >= 1 {
		return 0
	}
	if pFair <= pMarket {
		return 0
	}
	f := (pFair - pMarket) / (1 - pMarket)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Size converts an edge result into the stake fraction handed to the risk ledger:
// max(0, f*) × kelly_factor × confidence multiplier, clamped to [0, MaxPerBetPct].
// Ineligible results size to zero.
func Size(edge domain.EdgeResult, conf domain.Confidence, cfg SizingConfig) float64 {
	if !edge.Eligible {
		return 0
	}
	f := KellyFraction(edge.FairProbability, edge.YesPrice)
	applied := f * cfg.KellyFactor * cfg.confidenceMultiplier(conf)
	if math.IsNaN(applied) || applied <= 0 {
		return 0
	}
	if applied > cfg.MaxPerBetPct {
		applied = cfg.MaxPerBetPct
	}
	return applied
}
