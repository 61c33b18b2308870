// Package admission decide qué candidatos de un ciclo se convierten en
// trade intents: Edge Calculator → Kelly Sizer → Risk Ledger.
package admission

import (
	"cmp"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/risk"
	"github.com/alejandrodnm/edgebot/internal/strategy"
)

// maxLimitPrice es el precio límite máximo de un contrato YES.
var maxLimitPrice = decimal.RequireFromString("0.99")

// Config agrupa la política de admisión.
type Config struct {
	EdgeThreshold float64
	Slippage      float64
	Filters       strategy.Filters
	Sizing        strategy.SizingConfig
}

// Reserver es la parte del risk ledger que usa la admisión.
type Reserver interface {
	Reserve(intent domain.TradeIntent) (risk.Token, error)
}

// Candidate es un par (mercado, estimación ya mezclada) del ciclo.
// Estimate es nil cuando el colaborador no tiene probabilidad para el equipo.
type Candidate struct {
	Quote    domain.MarketQuote
	Estimate *domain.FairEstimate
}

// Admission es un intent admitido junto con su reserva.
type Admission struct {
	Intent domain.TradeIntent
	Token  risk.Token
}

// Result es la salida de la fase de admisión de un ciclo.
type Result struct {
	Decisions []domain.Decision // en orden de procesamiento
	Admitted  []Admission
}

// Controller procesa los candidatos de un ciclo secuencialmente.
type Controller struct {
	cfg    Config
	ledger Reserver
	now    func() time.Time
}

// NewController crea un controller sobre el ledger dado.
func NewController(cfg Config, ledger Reserver) *Controller {
	return &Controller{cfg: cfg, ledger: ledger, now: time.Now}
}

// Admit evaluates every candidate, orders them by edge (descending, ties by
// market_id ascending) and walks them one at a time so the largest
// opportunities claim risk capacity first.
// A market_id repeated in the snapshot keeps its first occurrence; the rest
// are rejected as duplicate_market.
func (c *Controller) Admit(cycleID string, bankroll float64, candidates []Candidate) Result {
	decisions := make([]domain.Decision, len(candidates))
	confidence := make(map[string]domain.Confidence, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for i, cand := range candidates {
		d := &decisions[i]
		*d = domain.Decision{
			CycleID: cycleID,
			Quote:   cand.Quote,
			Edge:    strategy.EvaluateEdge(cand.Quote, cand.Estimate, c.cfg.Filters),
			State:   domain.AdmissionEvaluated,
		}
		if _, dup := seen[cand.Quote.MarketID]; dup {
			c.reject(d, domain.RejectDuplicate, domain.ErrFilterRejected)
			continue
		}
		seen[cand.Quote.MarketID] = struct{}{}
		if cand.Estimate != nil {
			confidence[cand.Quote.MarketID] = cand.Estimate.Confidence
		}
	}

	slices.SortStableFunc(decisions, func(a, b domain.Decision) int {
		if a.Edge.Edge != b.Edge.Edge {
			return cmp.Compare(b.Edge.Edge, a.Edge.Edge)
		}
		return cmp.Compare(a.Quote.MarketID, b.Quote.MarketID)
	})

	var res Result
	for i := range decisions {
		d := &decisions[i]
		if d.State == domain.AdmissionRejected {
			continue
		}
		if adm, ok := c.decide(d, bankroll, confidence[d.Quote.MarketID]); ok {
			res.Admitted = append(res.Admitted, adm)
		}
	}
	res.Decisions = decisions
	return res
}

// decide lleva una decisión EVALUATED a ADMITTED o REJECTED.
func (c *Controller) decide(d *domain.Decision, bankroll float64, conf domain.Confidence) (Admission, bool) {
	if !d.Edge.Eligible {
		err := domain.ErrFilterRejected
		if d.Edge.HasReason(domain.ReasonNoEstimate) {
			err = domain.ErrDataUnavailable
		}
		c.reject(d, domain.RejectFilters, err)
		return Admission{}, false
	}
	if d.Edge.Edge < c.cfg.EdgeThreshold {
		c.reject(d, domain.RejectBelowThreshold, nil)
		return Admission{}, false
	}

	fraction := strategy.Size(d.Edge, conf, c.cfg.Sizing)
	stake := decimal.NewFromFloat(fraction).Mul(decimal.NewFromFloat(bankroll)).Truncate(2)
	limit := decimal.NewFromFloat(d.Quote.YesPrice).Add(decimal.NewFromFloat(c.cfg.Slippage)).Round(2)
	if limit.GreaterThan(maxLimitPrice) {
		limit = maxLimitPrice
	}
	var qty int64
	if stake.IsPositive() && limit.IsPositive() {
		qty = stake.Div(limit).Floor().IntPart()
	}

	d.StakeFraction = fraction
	d.StakeAmount = stake.InexactFloat64()
	if qty <= 0 {
		c.reject(d, domain.RejectZeroSize, nil)
		return Admission{}, false
	}
	d.State = domain.AdmissionSized

	intent := domain.TradeIntent{
		IntentID:        d.CycleID + ":" + d.Quote.MarketID,
		CycleID:         d.CycleID,
		MarketID:        d.Quote.MarketID,
		GameID:          d.Quote.GameID,
		TeamID:          d.Quote.TeamID,
		FairProbability: d.Edge.FairProbability,
		QuotePrice:      d.Quote.YesPrice,
		Edge:            d.Edge.Edge,
		StakeFraction:   fraction,
		StakeAmount:     d.StakeAmount,
		LimitPrice:      limit.InexactFloat64(),
		Quantity:        int(qty),
		State:           domain.StateAdmitted,
		CreatedAt:       c.now(),
	}

	tok, err := c.ledger.Reserve(intent)
	if err != nil {
		var rle *domain.RiskLimitExceeded
		switch {
		case errors.As(err, &rle):
			c.reject(d, domain.RejectRiskCap(rle), err)
		case errors.Is(err, domain.ErrDuplicateIntent):
			c.reject(d, domain.RejectDuplicate, err)
		default:
			c.reject(d, domain.RejectLedgerHalted, err)
		}
		return Admission{}, false
	}

	d.State = domain.AdmissionAdmitted
	d.Intent = &intent
	slog.Info("admission: ADMITTED",
		"intent", intent.IntentID,
		"team", intent.TeamID,
		"edge", round3(intent.Edge),
		"stake", intent.StakeAmount,
		"limit", intent.LimitPrice,
		"qty", intent.Quantity,
	)
	return Admission{Intent: intent, Token: tok}, true
}

func (c *Controller) reject(d *domain.Decision, reason domain.RejectReason, err error) {
	d.State = domain.AdmissionRejected
	d.Reason = reason
	d.Err = err
	slog.Debug("admission: rejected",
		"market", d.Quote.MarketID,
		"reason", reason,
		"codes", d.ReasonCodes(),
		"edge", round3(d.Edge.Edge),
	)
}

func round3(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}
