package strategy_test

import (
	"math"
	"testing"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/strategy"
	"github.com/stretchr/testify/assert"
)

var defaultFilters = strategy.Filters{MinVolume: 2000, MaxSpread: 0.08, MinMinutesToStart: 5}

func liquidQuote(price float64) domain.MarketQuote {
	return domain.MarketQuote{
		MarketID: "KXNBA-LAL", GameID: "G1", TeamID: "LAL",
		YesPrice: price, Bid: price - 0.01, Ask: price + 0.01,
		Volume: 5000, SecondsToStart: 3600,
	}
}

func TestEvaluateEdge_ScenarioA(t *testing.T) {
	est := &domain.FairEstimate{GameID: "G1", TeamID: "LAL", FairProbability: 0.734}
	res := strategy.EvaluateEdge(liquidQuote(0.19), est, defaultFilters)

	assert.True(t, res.Eligible)
	assert.Empty(t, res.Reasons)
	assert.InDelta(t, 0.544, res.Edge, 1e-9)
}

func TestEvaluateEdge_NegativeEdgeStillEligible(t *testing.T) {
	est := &domain.FairEstimate{FairProbability: 0.90}
	res := strategy.EvaluateEdge(liquidQuote(0.95), est, defaultFilters)

	// el threshold lo aplica admission, no el calculator
	assert.True(t, res.Eligible)
	assert.InDelta(t, -0.05, res.Edge, 1e-9)
}

func TestEvaluateEdge_AllReasonsReported(t *testing.T) {
	q := domain.MarketQuote{
		MarketID: "M1", YesPrice: 0.40, Bid: 0.30, Ask: 0.50,
		Volume: 100, SecondsToStart: 120,
	}
	res := strategy.EvaluateEdge(q, nil, defaultFilters)

	assert.False(t, res.Eligible)
	assert.ElementsMatch(t, []domain.ReasonCode{
		domain.ReasonNoEstimate, domain.ReasonLowVolume,
		domain.ReasonWideSpread, domain.ReasonStartsSoon,
	}, res.Reasons)
}

func TestEvaluateEdge_InvalidInputs(t *testing.T) {
	for _, price := range []float64{0, 1, -0.2, 1.5, math.NaN()} {
		res := strategy.EvaluateEdge(liquidQuote(price), &domain.FairEstimate{FairProbability: 0.5}, strategy.Filters{})
		assert.False(t, res.Eligible)
		assert.True(t, res.HasReason(domain.ReasonInvalidPrice))
		assert.Zero(t, res.Edge)
	}

	res := strategy.EvaluateEdge(liquidQuote(0.5), &domain.FairEstimate{FairProbability: 1.2}, strategy.Filters{})
	assert.True(t, res.HasReason(domain.ReasonInvalidProbability))
	assert.False(t, res.Eligible)
}

func TestEvaluateEdge_Idempotent(t *testing.T) {
	est := &domain.FairEstimate{FairProbability: 0.61}
	q := liquidQuote(0.48)
	assert.Equal(t, strategy.EvaluateEdge(q, est, defaultFilters), strategy.EvaluateEdge(q, est, defaultFilters))
}

func TestKellyFraction(t *testing.T) {
	assert.InDelta(t, 0.6716, strategy.KellyFraction(0.734, 0.19), 1e-4)
	assert.Zero(t, strategy.KellyFraction(0.40, 0.40))
	assert.Zero(t, strategy.KellyFraction(0.30, 0.60))
	assert.Zero(t, strategy.KellyFraction(0.99, 1.0))
	assert.Zero(t, strategy.KellyFraction(math.NaN(), 0.5))

	// f* ≥ 0 en toda la rejilla
	for pm := 0.01; pm < 1; pm += 0.07 {
		for pf := 0.0; pf <= 1; pf += 0.05 {
			f := strategy.KellyFraction(pf, pm)
			assert.GreaterOrEqual(t, f, 0.0)
			if pf <= pm {
				assert.Zero(t, f)
			}
		}
	}
}

func TestSize(t *testing.T) {
	cfg := strategy.SizingConfig{KellyFactor: 0.25, MaxPerBetPct: 0.02}
	edge := domain.EdgeResult{FairProbability: 0.734, YesPrice: 0.19, Edge: 0.544, Eligible: true}

	// 0.6716 * 0.25 = 0.1679 → clamp a 0.02
	assert.InDelta(t, 0.02, strategy.Size(edge, domain.ConfidenceHigh, cfg), 1e-12)

	cfg.MaxPerBetPct = 1
	assert.InDelta(t, 0.1679, strategy.Size(edge, domain.ConfidenceHigh, cfg), 1e-4)

	cfg.ConfidenceMul = map[domain.Confidence]float64{domain.ConfidenceLow: 0.5}
	assert.InDelta(t, 0.08395, strategy.Size(edge, domain.ConfidenceLow, cfg), 1e-4)
	assert.InDelta(t, 0.1679, strategy.Size(edge, domain.ConfidenceMedium, cfg), 1e-4)

	edge.Eligible = false
	assert.Zero(t, strategy.Size(edge, domain.ConfidenceHigh, cfg))
}

func TestBlend(t *testing.T) {
	est := domain.FairEstimate{GameID: "G1", TeamID: "LAL", FairProbability: 0.60, Confidence: domain.ConfidenceMedium}
	w := strategy.DefaultBlendWeights()

	out := strategy.Blend(est, &domain.ResearchAdjustment{Probability: 0.80, Confidence: domain.ConfidenceHigh}, w)
	assert.InDelta(t, 0.85*0.80+0.15*0.60, out.FairProbability, 1e-9)
	assert.Equal(t, domain.ConfidenceHigh, out.Confidence)
	assert.Equal(t, 0.60, est.FairProbability)

	// sin ajuste, NONE o fuera de rango: sin cambios
	assert.Equal(t, est, strategy.Blend(est, nil, w))
	assert.Equal(t, est, strategy.Blend(est, &domain.ResearchAdjustment{Probability: 0.9, Confidence: domain.ConfidenceNone}, w))
	assert.Equal(t, est, strategy.Blend(est, &domain.ResearchAdjustment{Probability: 1.4, Confidence: domain.ConfidenceHigh}, w))
}
