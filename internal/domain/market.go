package domain

// Confidence es el nivel de confianza de una estimación de probabilidad.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
	ConfidenceNone   Confidence = "NONE"
)

// ParseConfidence normaliza el texto recibido de un colaborador.
// Cualquier valor desconocido se trata como NONE.
func ParseConfidence(s string) Confidence {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return Confidence(s)
	}
	return ConfidenceNone
}

// MarketQuote es el snapshot inmutable de un mercado YES para un equipo.
// Se produce externamente una vez por ciclo.
type MarketQuote struct {
	MarketID       string
	GameID         string
	TeamID         string
	YesPrice       float64 // precio YES en (0,1)
	Bid            float64
	Ask            float64
	Volume         float64
	SecondsToStart float64 // segundos hasta el inicio del partido
}

// Spread devuelve ask - bid.
func (q MarketQuote) Spread() float64 {
	return q.Ask - q.Bid
}

// FairEstimate es la probabilidad justa (sin vig) de que gane un equipo.
type FairEstimate struct {
	GameID          string
	TeamID          string
	FairProbability float64
	Confidence      Confidence
}

// ResearchAdjustment es la probabilidad propuesta por el servicio de research.
type ResearchAdjustment struct {
	Probability float64
	Confidence  Confidence
}

// TruncateID acorta un identificador largo para tablas de consola.
func TruncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	if maxLen <= 3 {
		return id[:maxLen]
	}
	return id[:maxLen-3] + "..."
}
