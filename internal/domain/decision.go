package domain

import "strings"

// AdmissionState is the per (market, cycle) admission lifecycle.
type AdmissionState string

const (
	AdmissionCandidate AdmissionState = "CANDIDATE"
	AdmissionEvaluated AdmissionState = "EVALUATED"
	AdmissionSized     AdmissionState = "SIZED"
	AdmissionAdmitted  AdmissionState = "ADMITTED"
	AdmissionRejected  AdmissionState = "REJECTED"
)

// RejectReason explains a terminal REJECTED admission.
type RejectReason string

const (
	RejectFilters        RejectReason = "filters"
	RejectBelowThreshold RejectReason = "below_threshold"
	RejectZeroSize       RejectReason = "zero_size"
	RejectLedgerHalted   RejectReason = "ledger_halted"
	RejectDuplicate      RejectReason = "duplicate_market" // market_id repetido en el snapshot
	rejectRiskCapPrefix               = "risk_cap:"
)

// RejectRiskCap builds "risk_cap:<which>".
func RejectRiskCap(e *RiskLimitExceeded) RejectReason {
	return RejectReason(rejectRiskCapPrefix + e.Names())
}

// IsRiskCap reports whether the reason is a risk cap breach.
func (r RejectReason) IsRiskCap() bool {
	return strings.HasPrefix(string(r), rejectRiskCapPrefix)
}

// Decision is one line of the cycle's decision log.
type Decision struct {
	CycleID string
	Quote   MarketQuote
	Edge    EdgeResult
	State   AdmissionState
	Reason  RejectReason // empty when admitted
	Err     error        // taxonomy error behind the rejection, if any

	StakeFraction float64
	StakeAmount   float64
	Intent        *TradeIntent // set when admitted
}

// Admitted returns true if the decision produced an intent.
func (d Decision) Admitted() bool {
	return d.State == AdmissionAdmitted
}

// ReasonCodes joins the edge ineligibility codes for logging.
func (d Decision) ReasonCodes() string {
	codes := make([]string, len(d.Edge.Reasons))
	for i, c := range d.Edge.Reasons {
		codes[i] = string(c)
	}
	return strings.Join(codes, ",")
}
