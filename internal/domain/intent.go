package domain

import (
	"fmt"
	"time"
)

// Mode selects how admitted intents are executed.
type Mode string

const (
	ModeShadow Mode = "SHADOW"
	ModeLive   Mode = "LIVE"
)

// IntentState represents the lifecycle of a trade intent once admitted.
type IntentState string

const (
	StateAdmitted        IntentState = "ADMITTED"
	StateSubmitting      IntentState = "SUBMITTING"
	StateFilled          IntentState = "FILLED"
	StatePartiallyFilled IntentState = "PARTIALLY_FILLED"
	StateRejectedByVenue IntentState = "REJECTED_BY_VENUE"
	StateFailed          IntentState = "FAILED"
)

// IsTerminal returns true for states an intent never leaves.
func (s IntentState) IsTerminal() bool {
	switch s {
	case StateFilled, StatePartiallyFilled, StateRejectedByVenue, StateFailed:
		return true
	}
	return false
}

// Deployed returns true if the terminal state left capital in the market.
func (s IntentState) Deployed() bool {
	return s == StateFilled || s == StatePartiallyFilled
}

// TradeIntent is an admitted, sized trade waiting for execution.
// Created by the admission controller, owned by the dispatcher until terminal.
type TradeIntent struct {
	IntentID        string // <cycleID>:<marketID>
	CycleID         string
	MarketID        string
	GameID          string
	TeamID          string
	FairProbability float64
	QuotePrice      float64
	Edge            float64
	StakeFraction   float64
	StakeAmount     float64 // USD reserved in the ledger
	LimitPrice      float64
	Quantity        int // contracts = floor(stake / limit)
	State           IntentState
	CreatedAt       time.Time
}

// Transition moves the intent to next, rejecting illegal moves.
// ADMITTED → SUBMITTING → terminal. Terminal states are final.
func (t *TradeIntent) Transition(next IntentState) error {
	switch {
	case t.State == StateAdmitted && next == StateSubmitting:
	case t.State == StateSubmitting && next.IsTerminal():
	default:
		return fmt.Errorf("intent %s: illegal transition %s → %s", t.IntentID, t.State, next)
	}
	t.State = next
	return nil
}

// TradeRecord is the terminal, append-only record of one intent.
type TradeRecord struct {
	IntentID        string
	CycleID         string
	Timestamp       time.Time
	Mode            Mode
	MarketID        string
	GameID          string
	TeamID          string
	FairProbability float64
	QuotePrice      float64
	Edge            float64
	StakeAmount     float64
	LimitPrice      float64
	Quantity        int
	FinalState      IntentState
	FilledQuantity  int
	FilledAmount    float64
	OrderID         string
	Attempts        int
	Error           string
}

// NewTradeRecord builds the terminal record for an intent.
func NewTradeRecord(intent TradeIntent, mode Mode, fill Fill, attempts int, execErr error, at time.Time) TradeRecord {
	rec := TradeRecord{
		IntentID:        intent.IntentID,
		CycleID:         intent.CycleID,
		Timestamp:       at.UTC(),
		Mode:            mode,
		MarketID:        intent.MarketID,
		GameID:          intent.GameID,
		TeamID:          intent.TeamID,
		FairProbability: intent.FairProbability,
		QuotePrice:      intent.QuotePrice,
		Edge:            intent.Edge,
		StakeAmount:     intent.StakeAmount,
		LimitPrice:      intent.LimitPrice,
		Quantity:        intent.Quantity,
		FinalState:      intent.State,
		FilledQuantity:  fill.FilledQuantity,
		FilledAmount:    fill.FilledAmount,
		OrderID:         fill.OrderID,
		Attempts:        attempts,
	}
	if execErr != nil {
		rec.Error = execErr.Error()
	}
	return rec
}

// OrderRequest is sent to the venue in LIVE mode. Side is always YES.
type OrderRequest struct {
	ClientOrderID string
	MarketID      string
	LimitPrice    float64
	Quantity      int
}

// OrderStatus is the venue's view of a submitted order.
type OrderStatus string

const (
	OrderExecuted OrderStatus = "executed"
	OrderResting  OrderStatus = "resting"
	OrderCanceled OrderStatus = "canceled"
	OrderRejected OrderStatus = "rejected"
)

// OrderAck is the venue response to SubmitOrder.
type OrderAck struct {
	OrderID        string
	Status         OrderStatus
	FilledQuantity int
	FilledCost     float64 // USD actually paid
}

// Fill is what an executor reports back to the dispatcher.
type Fill struct {
	OrderID        string
	State          IntentState // FILLED | PARTIALLY_FILLED | REJECTED_BY_VENUE
	FilledQuantity int
	FilledAmount   float64
}
