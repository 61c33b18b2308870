// Package strategy contiene las funciones puras de la estrategia sharp-mismatch:
// cálculo de edge, sizing Kelly fraccional y mezcla con research.
// Ninguna función de este paquete tiene estado ni hace I/O.
package strategy

import "github.com/alejandrodnm/edgebot/internal/domain"

// Filters son los filtros de liquidez y timing del Edge Calculator.
type Filters struct {
	MinVolume         float64
	MaxSpread         float64
	MinMinutesToStart float64
}

// SizingConfig controla el Kelly Sizer.
type SizingConfig struct {
	KellyFactor   float64 // fracción de Kelly en (0,1]
	MaxPerBetPct  float64 // clamp superior de la fracción
	ConfidenceMul map[domain.Confidence]float64
}

// confidenceMultiplier devuelve el multiplicador del tier; 1.0 si no está configurado.
func (c SizingConfig) confidenceMultiplier(conf domain.Confidence) float64 {
	if c.ConfidenceMul == nil {
		return 1.0
	}
	m, ok := c.ConfidenceMul[conf]
	if !ok || m < 0 {
		return 1.0
	}
	return m
}
