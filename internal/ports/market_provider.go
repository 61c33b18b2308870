package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// MarketProvider obtiene los snapshots de mercado de cada ciclo.
type MarketProvider interface {
	// GetMarketSnapshots devuelve los mercados YES abiertos.
	// Los mercados de empate ya vienen filtrados.
	GetMarketSnapshots(ctx context.Context) ([]domain.MarketQuote, error)
}

// FairProvider devuelve la probabilidad justa (sin vig) de un equipo.
type FairProvider interface {
	// GetFairEstimate devuelve nil, nil si no hay estimación para el par.
	GetFairEstimate(ctx context.Context, gameID, teamID string) (*domain.FairEstimate, error)
}

// ResearchProvider devuelve ajustes opcionales de research.
type ResearchProvider interface {
	// GetResearchAdjustment devuelve nil, nil si no hay ajuste.
	GetResearchAdjustment(ctx context.Context, gameID, teamID string) (*domain.ResearchAdjustment, error)
}

// BankrollProvider reporta el capital disponible al inicio de cada ciclo.
type BankrollProvider interface {
	Bankroll(ctx context.Context) (float64, error)
}
