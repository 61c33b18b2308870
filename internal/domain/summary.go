package domain

import "time"

// CycleSummary is what one evaluation cycle produced during its admission phase.
type CycleSummary struct {
	CycleID    string
	StartedAt  time.Time
	Duration   time.Duration
	Mode       Mode
	Bankroll   float64
	Quotes     int
	Admitted   int
	Rejected   int
	StakeTotal float64 // sum of admitted stake amounts
	Decisions  []Decision
	Ledger     LedgerSnapshot
}

// LedgerSnapshot is a read-only copy of the risk ledger totals.
type LedgerSnapshot struct {
	Bankroll       float64
	CommittedToday float64
	Reserved       float64 // in-flight reservations
	Committed      float64 // filled commitments
	OpenTokens     int
	ByGame         map[string]float64
	ByTeam         map[string]float64
	DayBoundary    time.Time
	Halted         bool
}

// DailySummary is the persisted per-day snapshot.
type DailySummary struct {
	Date           time.Time
	Cycles         int
	Admitted       int
	Rejected       int
	Filled         int
	Partial        int
	Failed         int
	VenueRejected  int
	StakeTotal     float64
	FilledTotal    float64
	CommittedToday float64
}

// TradeStats aggregates trade records for the report.
type TradeStats struct {
	From          time.Time
	To            time.Time
	Total         int
	ByState       map[IntentState]int
	StakeTotal    float64
	FilledTotal   float64
	AvgEdge       float64
	AvgFairProb   float64
	AvgQuotePrice float64
	Recent        []TradeRecord
}
