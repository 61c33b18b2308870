package domain

import (
	"errors"
	"strings"
)

var (
	// ErrDataUnavailable: no fair estimate for the pair. Skipped, no retry this cycle.
	ErrDataUnavailable = errors.New("fair estimate unavailable")

	// ErrFilterRejected: liquidity or timing filter failed.
	ErrFilterRejected = errors.New("filter rejected")

	// ErrRiskLimitExceeded is matched by every *RiskLimitExceeded via errors.Is.
	ErrRiskLimitExceeded = errors.New("risk limit exceeded")

	// ErrDuplicateIntent: the intent already holds a reservation. Not fatal,
	// the second intent is skipped.
	ErrDuplicateIntent = errors.New("intent already reserved")

	// ErrLedgerInvariant signals double commit/release or inconsistent totals.
	// Fatal: the ledger refuses new reservations afterwards.
	ErrLedgerInvariant = errors.New("ledger invariant violation")

	// ErrLedgerHalted is returned by Reserve once an invariant was violated.
	ErrLedgerHalted = errors.New("ledger halted")
)

// RiskCap names one of the four risk limits.
type RiskCap string

const (
	CapPerBet  RiskCap = "per_bet"
	CapPerGame RiskCap = "per_game"
	CapPerTeam RiskCap = "per_team"
	CapDaily   RiskCap = "daily"
)

// RiskLimitExceeded lists every cap a proposed reservation would breach.
type RiskLimitExceeded struct {
	Caps []RiskCap
}

func (e *RiskLimitExceeded) Error() string {
	return "risk limit exceeded: " + e.Names()
}

// Names joins the breached caps with commas, e.g. "per_team,daily".
func (e *RiskLimitExceeded) Names() string {
	names := make([]string, len(e.Caps))
	for i, c := range e.Caps {
		names[i] = string(c)
	}
	return strings.Join(names, ",")
}

// Is lets errors.Is(err, ErrRiskLimitExceeded) match.
func (e *RiskLimitExceeded) Is(target error) bool {
	return target == ErrRiskLimitExceeded
}

// Has reports whether cap was breached.
func (e *RiskLimitExceeded) Has(c RiskCap) bool {
	for _, x := range e.Caps {
		if x == c {
			return true
		}
	}
	return false
}

// VenueError wraps a failure talking to the trading venue.
// Transient errors (timeouts, 429, 5xx) are retried by the dispatcher;
// the rest (malformed request, auth, insufficient funds) are terminal.
type VenueError struct {
	Op        string
	Status    int
	Err       error
	Transient bool
}

func (e *VenueError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *VenueError) Unwrap() error {
	return e.Err
}

// NewTransientVenueError creates a retriable venue error.
func NewTransientVenueError(op string, status int, err error) *VenueError {
	return &VenueError{Op: op, Status: status, Err: err, Transient: true}
}

// NewFatalVenueError creates a non-retriable venue error.
func NewFatalVenueError(op string, status int, err error) *VenueError {
	return &VenueError{Op: op, Status: status, Err: err, Transient: false}
}

// IsTransient reports whether err is a retriable venue error.
func IsTransient(err error) bool {
	var ve *VenueError
	if errors.As(err, &ve) {
		return ve.Transient
	}
	return false
}
