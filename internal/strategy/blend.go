package strategy

import (
	"math"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// BlendWeights es el peso del research por tier de confianza.
// Un tier con peso 0 (o ausente) no mezcla: se conserva la probabilidad de referencia.
type BlendWeights map[domain.Confidence]float64

// DefaultBlendWeights son los pesos por defecto del research.
func DefaultBlendWeights() BlendWeights {
	return BlendWeights{
		domain.ConfidenceHigh:   0.85,
		domain.ConfidenceMedium: 0.70,
		domain.ConfidenceLow:    0.50,
		domain.ConfidenceNone:   0,
	}
}

// Blend mezcla el ajuste de research en la estimación de referencia:
//
//	p = w·research + (1-w)·fair
//
// con w según la confianza del ajuste. Devuelve una copia; estimate no se modifica.
// Ajustes fuera de (0,1) se ignoran.
func Blend(estimate domain.FairEstimate, adj *domain.ResearchAdjustment, weights BlendWeights) domain.FairEstimate {
	if adj == nil {
		return estimate
	}
	p := adj.Probability
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return estimate
	}
	w := weights[adj.Confidence]
	if w <= 0 {
		return estimate
	}
	if w > 1 {
		w = 1
	}

	out := estimate
	out.FairProbability = w*p + (1-w)*estimate.FairProbability
	out.Confidence = adj.Confidence
	return out
}
