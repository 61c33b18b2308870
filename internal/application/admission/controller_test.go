package admission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/application/admission"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/risk"
	"github.com/alejandrodnm/edgebot/internal/strategy"
)

func testConfig() admission.Config {
	return admission.Config{
		EdgeThreshold: 0.07,
		Slippage:      0.02,
		Filters:       strategy.Filters{MinVolume: 2000, MaxSpread: 0.08, MinMinutesToStart: 5},
		Sizing:        strategy.SizingConfig{KellyFactor: 0.25, MaxPerBetPct: 0.02},
	}
}

func candidate(market, game, team string, price, fair float64) admission.Candidate {
	return admission.Candidate{
		Quote: domain.MarketQuote{
			MarketID: market, GameID: game, TeamID: team,
			YesPrice: price, Bid: price - 0.01, Ask: price + 0.01,
			Volume: 10000, SecondsToStart: 7200,
		},
		Estimate: &domain.FairEstimate{GameID: game, TeamID: team, FairProbability: fair, Confidence: domain.ConfidenceHigh},
	}
}

func TestController_ScenarioA(t *testing.T) {
	ledger := risk.NewLedger(risk.Limits{PerBetPct: 0.02, PerGamePct: 0.05, PerTeamPct: 0.08, DailyPct: 0.10}, 10000)
	c := admission.NewController(testConfig(), ledger)

	res := c.Admit("c1", 10000, []admission.Candidate{candidate("KXNBA-LAL", "G1", "LAL", 0.19, 0.734)})

	require.Len(t, res.Admitted, 1)
	in := res.Admitted[0].Intent
	assert.Equal(t, "c1:KXNBA-LAL", in.IntentID)
	assert.InDelta(t, 0.544, in.Edge, 1e-9)
	assert.Equal(t, 200.0, in.StakeAmount)
	assert.Equal(t, 0.21, in.LimitPrice)
	assert.Equal(t, 952, in.Quantity)
	assert.Equal(t, domain.StateAdmitted, in.State)

	d := res.Decisions[0]
	assert.True(t, d.Admitted())
	assert.Equal(t, 200.0, ledger.Snapshot().CommittedToday)
}

func TestController_ScenarioB_BelowThreshold(t *testing.T) {
	ledger := risk.NewLedger(risk.Limits{PerBetPct: 0.02, PerGamePct: 0.05, PerTeamPct: 0.08, DailyPct: 0.10}, 10000)
	before := ledger.Snapshot()
	c := admission.NewController(testConfig(), ledger)

	res := c.Admit("c1", 10000, []admission.Candidate{candidate("M1", "G1", "BOS", 0.95, 0.90)})

	require.Len(t, res.Decisions, 1)
	assert.Empty(t, res.Admitted)
	assert.Equal(t, domain.AdmissionRejected, res.Decisions[0].State)
	assert.Equal(t, domain.RejectBelowThreshold, res.Decisions[0].Reason)
	assert.Equal(t, before, ledger.Snapshot())
}

func TestController_ScenarioC_PerTeam(t *testing.T) {
	ledger := risk.NewLedger(risk.Limits{PerBetPct: 0.02, PerGamePct: 0.05, PerTeamPct: 0.08, DailyPct: 0.10}, 10000)
	for _, g := range []string{"G1", "G2", "G3", "G4"} {
		_, err := ledger.Reserve(domain.TradeIntent{IntentID: "c0:" + g, GameID: g, TeamID: "LAL", StakeAmount: 200})
		require.NoError(t, err)
	}
	before := ledger.Snapshot()
	c := admission.NewController(testConfig(), ledger)

	res := c.Admit("c1", 10000, []admission.Candidate{candidate("M5", "G5", "LAL", 0.30, 0.60)})

	assert.Empty(t, res.Admitted)
	d := res.Decisions[0]
	assert.Equal(t, domain.RejectReason("risk_cap:per_team"), d.Reason)
	assert.ErrorIs(t, d.Err, domain.ErrRiskLimitExceeded)
	assert.Equal(t, before, ledger.Snapshot())
}

func TestController_ScenarioD_LargestEdgeFirst(t *testing.T) {
	// capacidad diaria para un solo bet de $200
	ledger := risk.NewLedger(risk.Limits{PerBetPct: 0.02, PerGamePct: 0.05, PerTeamPct: 0.08, DailyPct: 0.03}, 10000)
	c := admission.NewController(testConfig(), ledger)

	small := candidate("A-SMALL", "G1", "BOS", 0.40, 0.50) // edge 0.10
	big := candidate("Z-BIG", "G2", "LAL", 0.30, 0.60)     // edge 0.30

	res := c.Admit("c1", 10000, []admission.Candidate{small, big})

	require.Len(t, res.Admitted, 1)
	assert.Equal(t, "Z-BIG", res.Admitted[0].Intent.MarketID)

	require.Len(t, res.Decisions, 2)
	assert.Equal(t, "Z-BIG", res.Decisions[0].Quote.MarketID)
	assert.Equal(t, "A-SMALL", res.Decisions[1].Quote.MarketID)
	assert.Equal(t, domain.RejectReason("risk_cap:daily"), res.Decisions[1].Reason)

	assert.LessOrEqual(t, ledger.Snapshot().CommittedToday, 0.03*10000)
}

func TestController_TieBreakByMarketID(t *testing.T) {
	ledger := risk.NewLedger(risk.Limits{PerBetPct: 0.02, PerGamePct: 0.05, PerTeamPct: 0.08, DailyPct: 0.10}, 10000)
	c := admission.NewController(testConfig(), ledger)

	res := c.Admit("c1", 10000, []admission.Candidate{
		candidate("M-B", "G1", "BOS", 0.30, 0.50),
		candidate("M-A", "G2", "LAL", 0.30, 0.50),
	})

	require.Len(t, res.Decisions, 2)
	assert.Equal(t, "M-A", res.Decisions[0].Quote.MarketID)
	assert.Equal(t, "M-B", res.Decisions[1].Quote.MarketID)
}

func TestController_FiltersAndMissingEstimate(t *testing.T) {
	ledger := risk.NewLedger(risk.Limits{PerBetPct: 0.02, PerGamePct: 0.05, PerTeamPct: 0.08, DailyPct: 0.10}, 10000)
	c := admission.NewController(testConfig(), ledger)

	noEst := candidate("M1", "G1", "BOS", 0.30, 0.60)
	noEst.Estimate = nil
	illiquid := candidate("M2", "G2", "LAL", 0.30, 0.60)
	illiquid.Quote.Volume = 10

	res := c.Admit("c1", 10000, []admission.Candidate{noEst, illiquid})

	assert.Empty(t, res.Admitted)
	byMarket := map[string]domain.Decision{}
	for _, d := range res.Decisions {
		byMarket[d.Quote.MarketID] = d
	}
	assert.Equal(t, domain.RejectFilters, byMarket["M1"].Reason)
	assert.ErrorIs(t, byMarket["M1"].Err, domain.ErrDataUnavailable)
	assert.Equal(t, domain.RejectFilters, byMarket["M2"].Reason)
	assert.ErrorIs(t, byMarket["M2"].Err, domain.ErrFilterRejected)
	assert.Equal(t, "low_volume", byMarket["M2"].ReasonCodes())
}

func TestController_ZeroSize(t *testing.T) {
	ledger := risk.NewLedger(risk.Limits{PerBetPct: 0.02, PerGamePct: 0.05, PerTeamPct: 0.08, DailyPct: 0.10}, 10)
	c := admission.NewController(testConfig(), ledger)

	// stake = 0.02 * 10 = $0.20, limit 0.92 → 0 contratos
	res := c.Admit("c1", 10, []admission.Candidate{candidate("M1", "G1", "BOS", 0.90, 0.99)})

	assert.Empty(t, res.Admitted)
	assert.Equal(t, domain.RejectZeroSize, res.Decisions[0].Reason)
	assert.Zero(t, ledger.Snapshot().CommittedToday)
}

func TestController_HaltedLedger(t *testing.T) {
	ledger := risk.NewLedger(risk.Limits{PerBetPct: 0.02, PerGamePct: 0.05, PerTeamPct: 0.08, DailyPct: 0.10}, 10000)
	_ = ledger.Release(risk.Token{ID: "bogus"})
	require.True(t, ledger.Halted())
	c := admission.NewController(testConfig(), ledger)

	res := c.Admit("c1", 10000, []admission.Candidate{candidate("M1", "G1", "BOS", 0.30, 0.60)})

	assert.Empty(t, res.Admitted)
	assert.Equal(t, domain.RejectLedgerHalted, res.Decisions[0].Reason)
	assert.ErrorIs(t, res.Decisions[0].Err, domain.ErrLedgerHalted)
}

func TestController_DuplicateMarketKeepsFirst(t *testing.T) {
	ledger := risk.NewLedger(risk.Limits{PerBetPct: 0.02, PerGamePct: 0.05, PerTeamPct: 0.08, DailyPct: 0.10}, 10000)
	c := admission.NewController(testConfig(), ledger)

	first := candidate("M1", "G1", "LAL", 0.30, 0.60)
	second := candidate("M1", "G1", "LAL", 0.30, 0.60)
	res := c.Admit("c1", 10000, []admission.Candidate{first, second})

	require.Len(t, res.Admitted, 1)
	assert.Equal(t, "c1:M1", res.Admitted[0].Intent.IntentID)
	require.Len(t, res.Decisions, 2)
	assert.True(t, res.Decisions[0].Admitted())
	assert.Equal(t, domain.RejectDuplicate, res.Decisions[1].Reason)
	assert.ErrorIs(t, res.Decisions[1].Err, domain.ErrFilterRejected)
	assert.False(t, ledger.Halted())

	// el siguiente ciclo admite con normalidad
	res = c.Admit("c2", 10000, []admission.Candidate{candidate("M2", "G2", "BOS", 0.30, 0.60)})
	require.Len(t, res.Admitted, 1)
	assert.Equal(t, "c2:M2", res.Admitted[0].Intent.IntentID)
}

func TestController_DuplicateWithHigherEdgeStillRejected(t *testing.T) {
	ledger := risk.NewLedger(risk.Limits{PerBetPct: 0.02, PerGamePct: 0.05, PerTeamPct: 0.08, DailyPct: 0.10}, 10000)
	c := admission.NewController(testConfig(), ledger)

	res := c.Admit("c1", 10000, []admission.Candidate{
		candidate("M1", "G1", "LAL", 0.40, 0.60),
		candidate("M1", "G1", "LAL", 0.20, 0.60),
	})

	require.Len(t, res.Admitted, 1)
	assert.Equal(t, 0.40, res.Admitted[0].Intent.QuotePrice)
	assert.Equal(t, domain.RejectDuplicate, res.Decisions[0].Reason, "la copia con más edge se ordena primero pero no se admite")
}
